// Package config loads and validates digest configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/spf13/viper"

	"github.com/JakeFAU/contest-digest/internal/digest"
	"github.com/JakeFAU/contest-digest/internal/logging"
)

// Output providers.
const (
	OutputLocal = "local"
	OutputGCS   = "gcs"
)

// Config captures all knobs loaded via Viper.
type Config struct {
	Timezone string         `mapstructure:"timezone"`
	Logging  logging.Config `mapstructure:"logging"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Output   OutputConfig   `mapstructure:"output"`
	Digest   DigestConfig   `mapstructure:"digest"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// HTTPConfig configures the static page fetcher.
type HTTPConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	// RatePerHost caps requests per second to one host; 0 disables pacing.
	RatePerHost float64       `mapstructure:"rate_per_host"`
	Burst       int           `mapstructure:"burst"`
}

// BrowserConfig configures the headless renderer used for Luogu.
type BrowserConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	UserAgent         string        `mapstructure:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	ScrollPause       time.Duration `mapstructure:"scroll_pause"`
	MaxScrolls        int           `mapstructure:"max_scrolls"`
}

// SourcesConfig holds per-source endpoints.
type SourcesConfig struct {
	Codeforces CodeforcesConfig `mapstructure:"codeforces"`
	AtCoder    AtCoderConfig    `mapstructure:"atcoder"`
	Luogu      LuoguConfig      `mapstructure:"luogu"`
}

// CodeforcesConfig locates the contest.list API.
type CodeforcesConfig struct {
	URL            string `mapstructure:"url"`
	ContestBaseURL string `mapstructure:"contest_base_url"`
}

// AtCoderConfig locates the contest listing page.
type AtCoderConfig struct {
	URL     string `mapstructure:"url"`
	BaseURL string `mapstructure:"base_url"`
}

// LuoguConfig locates the rendered listing and its API fallback.
type LuoguConfig struct {
	ListURL string       `mapstructure:"list_url"`
	BaseURL string       `mapstructure:"base_url"`
	APIURL  string       `mapstructure:"api_url"`
	Headers LuoguHeaders `mapstructure:"headers"`
}

// LuoguHeaders is the opaque header bundle sent to the API.
type LuoguHeaders struct {
	UserAgent string `mapstructure:"user_agent"`
	Cookie    string `mapstructure:"cookie"`
	Referer   string `mapstructure:"referer"`
	CSRFToken string `mapstructure:"csrf_token"`
}

// OutputConfig says where the digest is written.
type OutputConfig struct {
	Provider  string `mapstructure:"provider"`
	Dir       string `mapstructure:"dir"`
	Path      string `mapstructure:"path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// DigestConfig controls rendering.
type DigestConfig struct {
	UnavailablePolicy string `mapstructure:"unavailable_policy"`
}

// MetricsConfig controls the optional node_exporter textfile.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// Load builds a Config from defaults, an optional file and DIGEST_* env vars.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timezone", "Asia/Shanghai")
	v.SetDefault("logging.level", logging.DefaultLevel)
	v.SetDefault("logging.development", false)
	v.SetDefault("http.timeout", "15s")
	v.SetDefault("http.user_agent", "contest-digest/1.0")
	v.SetDefault("http.rate_per_host", 1.0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.settle_delay", "5s")
	v.SetDefault("browser.scroll_pause", "2s")
	v.SetDefault("browser.max_scrolls", 5)
	v.SetDefault("sources.codeforces.url", "https://codeforces.com/api/contest.list")
	v.SetDefault("sources.codeforces.contest_base_url", "https://codeforces.com")
	v.SetDefault("sources.atcoder.url", "https://atcoder.jp/contests/")
	v.SetDefault("sources.atcoder.base_url", "https://atcoder.jp")
	v.SetDefault("sources.luogu.list_url", "https://www.luogu.com.cn/contest/list")
	v.SetDefault("sources.luogu.base_url", "https://www.luogu.com.cn")
	v.SetDefault("sources.luogu.api_url", "https://www.luogu.com.cn/api/contest/list?type=all&page=1&pageSize=100")
	v.SetDefault("sources.luogu.headers.user_agent", "")
	v.SetDefault("sources.luogu.headers.cookie", "")
	v.SetDefault("sources.luogu.headers.referer", "")
	v.SetDefault("sources.luogu.headers.csrf_token", "")
	v.SetDefault("output.provider", OutputLocal)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.path", "output.txt")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("digest.unavailable_policy", string(digest.PolicyEmpty))
	v.SetDefault("metrics.textfile_path", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.RatePerHost < 0 || c.HTTP.Burst < 0 {
		return fmt.Errorf("http.rate_per_host and http.burst must be >= 0")
	}
	if c.Browser.Enabled {
		if c.Browser.NavigationTimeout <= 0 {
			return fmt.Errorf("browser.navigation_timeout must be > 0")
		}
		if c.Browser.MaxScrolls < 0 {
			return fmt.Errorf("browser.max_scrolls must be >= 0")
		}
		if c.Browser.SettleDelay < 0 || c.Browser.ScrollPause < 0 {
			return fmt.Errorf("browser.settle_delay and browser.scroll_pause must be >= 0")
		}
	}
	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output.path must be set")
	}
	switch c.Output.Provider {
	case OutputLocal:
		if strings.TrimSpace(c.Output.Dir) == "" {
			return fmt.Errorf("output.dir must be set for the local provider")
		}
	case OutputGCS:
		if c.Output.GCSBucket == "" {
			return fmt.Errorf("output.gcs_bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("output.provider %q is not one of local, gcs", c.Output.Provider)
	}
	if !digest.UnavailablePolicy(c.Digest.UnavailablePolicy).Valid() {
		return fmt.Errorf("digest.unavailable_policy %q is not one of empty, unavailable", c.Digest.UnavailablePolicy)
	}
	return nil
}

// Location resolves the reference timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, fmt.Errorf("timezone must be set")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
