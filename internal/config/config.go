// Package config loads the source registry and pipeline settings from a
// YAML file.
//
// Components receive explicit configuration at construction rather than
// reading ambient state, so tests can run everything against fakes.
// Credentials are never stored in the file itself: sources name the
// environment variable their secret lives in, and validation fails before
// any network activity when one is missing.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds, one per adapter variant.
const (
	KindStatic  = "static"
	KindDetail  = "detail"
	KindFeed    = "feed"
	KindAPI     = "api"
	KindBrowser = "browser"
)

var knownKinds = map[string]bool{
	KindStatic:  true,
	KindDetail:  true,
	KindFeed:    true,
	KindAPI:     true,
	KindBrowser: true,
}

// Duration wraps time.Duration so human-readable values like "500ms" can
// appear in the config file; yaml.v3 has no native duration support.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard-library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Source describes one configured event source.
type Source struct {
	Kind     string `yaml:"kind"`
	URL      string `yaml:"url"`
	BaseURL  string `yaml:"base_url"`  // static: permalink prefix
	Query    string `yaml:"query"`     // api: search term
	PageSize int    `yaml:"page_size"` // api: results per page
	TokenEnv string `yaml:"token_env"` // api: env var holding the bearer token
	Marker   string `yaml:"marker"`    // browser: ready-state selector
}

// HTTP holds the shared fetcher settings.
type HTTP struct {
	Timeout        Duration `yaml:"timeout"`
	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	UserAgent      string   `yaml:"user_agent"`
}

// Config is the full pipeline configuration.
type Config struct {
	Sources        map[string]Source `yaml:"sources"`
	HTTP           HTTP              `yaml:"http"`
	MaxPages       int               `yaml:"max_pages"`
	Workers        int               `yaml:"workers"`
	DatabaseURLEnv string            `yaml:"database_url_env"`
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxPages <= 0 {
		c.MaxPages = 50
	}
	if c.Workers <= 0 {
		c.Workers = 3
	}
	if c.DatabaseURLEnv == "" {
		c.DatabaseURLEnv = "DATABASE_URL"
	}
}

// Validate checks structural problems that must fail before any network
// activity begins.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}
	for name, src := range c.Sources {
		if !knownKinds[src.Kind] {
			return fmt.Errorf("source %s: unknown kind %q", name, src.Kind)
		}
		if src.URL == "" {
			return fmt.Errorf("source %s: url is required", name)
		}
		switch src.Kind {
		case KindStatic:
			if src.BaseURL == "" {
				return fmt.Errorf("source %s: base_url is required for static sources", name)
			}
		case KindAPI:
			if src.TokenEnv == "" {
				return fmt.Errorf("source %s: token_env is required for api sources", name)
			}
		case KindBrowser:
			if src.Marker == "" {
				return fmt.Errorf("source %s: marker is required for browser sources", name)
			}
		}
	}
	return nil
}

// SourceNames returns the configured source names in stable order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Token resolves the source's credential from the environment. Missing
// credentials are a hard configuration failure.
func (s Source) Token() (string, error) {
	if s.TokenEnv == "" {
		return "", nil
	}
	token := os.Getenv(s.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("missing credential: environment variable %s is not set", s.TokenEnv)
	}
	return token, nil
}
