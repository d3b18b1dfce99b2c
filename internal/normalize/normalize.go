// Package normalize rewrites contest titles into their short canonical forms.
package normalize

import (
	"regexp"
	"strings"
)

var leadingDecoration = regexp.MustCompile(`^[^\p{L}\p{N}_]+`)

// replacements are applied in order.
var replacements = []struct {
	old string
	new string
}{
	{"Codeforces", "CF"},
	{"AtCoder Beginner Contest", "ABC"},
	{"AtCoder Heuristic Contest", "AHC"},
}

// Name strips decorative prefix glyphs and abbreviates well-known series names.
func Name(name string) string {
	name = leadingDecoration.ReplaceAllString(name, "")
	for _, r := range replacements {
		name = strings.ReplaceAll(name, r.old, r.new)
	}
	return strings.TrimSpace(name)
}
