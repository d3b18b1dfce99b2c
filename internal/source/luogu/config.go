// Package luogu fetches upcoming Luogu contests. The listing page is rendered
// in a headless browser; when that fails the JSON API is queried instead.
package luogu

import "time"

// Defaults for the public site.
const (
	DefaultListURL   = "https://www.luogu.com.cn/contest/list"
	DefaultBaseURL   = "https://www.luogu.com.cn"
	DefaultAPIURL    = "https://www.luogu.com.cn/api/contest/list?type=all&page=1&pageSize=100"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Headers is the static header bundle the API expects. The values are opaque
// configuration and are never refreshed here.
type Headers struct {
	UserAgent string
	Cookie    string
	Referer   string
	CSRFToken string
}

// Config locates the listing page and API.
type Config struct {
	ListURL  string
	BaseURL  string
	APIURL   string
	Headers  Headers
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if c.ListURL == "" {
		c.ListURL = DefaultListURL
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.Headers.UserAgent == "" {
		c.Headers.UserAgent = DefaultUserAgent
	}
	if c.Headers.Referer == "" {
		c.Headers.Referer = c.ListURL
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}
