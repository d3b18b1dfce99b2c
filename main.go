// The main package for the contest-digest executable.
package main

import (
	"github.com/JakeFAU/contest-digest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
