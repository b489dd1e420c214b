package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dailywrap/pipeline/internal/feed"
)

type Config struct {
	Schedule       string                          `yaml:"schedule"`
	TimezoneOffset int                             `yaml:"timezone_offset_hours"`
	RunOnStart     bool                            `yaml:"run_on_start"`
	Feeds          map[feed.Category][]feed.Source `yaml:"feeds"`
	RecentHours    int                             `yaml:"recent_window_hours"`
	FetchTimeout   int                             `yaml:"fetch_timeout_seconds"`
	TopPerCategory int                             `yaml:"top_per_category"`
	Dedup          DedupConfig                     `yaml:"dedup"`
	Generator      GeneratorConfig                 `yaml:"generator"`
	Store          StoreConfig                     `yaml:"store"`
	Revalidate     RevalidateConfig                `yaml:"revalidate"`
}

type DedupConfig struct {
	URLThreshold   float64 `yaml:"url_threshold"`
	TitleThreshold float64 `yaml:"title_threshold"`
	NgramSize      int     `yaml:"ngram_size"`
	CrossCategory  bool    `yaml:"cross_category"`
}

type GeneratorConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BatchSize int    `yaml:"batch_size"`
	Offline   bool   `yaml:"offline"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type RevalidateConfig struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Paths  []string `yaml:"paths"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 6 * * *"
	}
	if cfg.TimezoneOffset == 0 {
		cfg.TimezoneOffset = 9 // KST
	}
	if cfg.RecentHours == 0 {
		cfg.RecentHours = 24
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 10
	}
	if cfg.TopPerCategory == 0 {
		cfg.TopPerCategory = 5
	}
	if cfg.Dedup.URLThreshold == 0 {
		cfg.Dedup.URLThreshold = 0.95
	}
	if cfg.Dedup.TitleThreshold == 0 {
		cfg.Dedup.TitleThreshold = 0.70
	}
	if cfg.Dedup.NgramSize == 0 {
		cfg.Dedup.NgramSize = 2
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "anthropic"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Generator.BatchSize == 0 {
		cfg.Generator.BatchSize = 10
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "dailywrap.db"
	}
	if len(cfg.Revalidate.Paths) == 0 {
		cfg.Revalidate.Paths = []string{"/", "/archive"}
	}
}

// normalize clears settings whose ${VAR} placeholders were not expanded, so
// an unset optional endpoint degrades to "not configured" instead of a
// literal placeholder URL.
func normalize(cfg *Config) {
	if envVarRegex.MatchString(cfg.Revalidate.URL) {
		cfg.Revalidate.URL = ""
		cfg.Revalidate.Secret = ""
	}
}

func validate(cfg *Config) error {
	if len(cfg.Feeds) == 0 {
		return fmt.Errorf("config: at least one feed is required")
	}
	for category, sources := range cfg.Feeds {
		switch category {
		case feed.CategoryPolitics, feed.CategoryEconomy, feed.CategorySociety:
		default:
			return fmt.Errorf("config: unknown feed category %q (supported: politics, economy, society)", category)
		}
		for _, source := range sources {
			if source.URL == "" {
				return fmt.Errorf("config: feed in category %q is missing url", category)
			}
			if source.SourceName == "" {
				return fmt.Errorf("config: feed %s is missing source_name", source.URL)
			}
		}
	}
	if cfg.Generator.Type != "anthropic" {
		return fmt.Errorf("config: unsupported generator type %q (supported: anthropic)", cfg.Generator.Type)
	}
	if cfg.Revalidate.URL != "" && cfg.Revalidate.Secret == "" {
		return fmt.Errorf("config: revalidate.secret is required when revalidate.url is set")
	}
	return nil
}

// Offline reports whether the pipeline should run with the deterministic
// offline generator: either forced by config, or no API credential present.
// An unexpanded ${VAR} placeholder counts as absent.
func (c *Config) Offline() bool {
	if c.Generator.Offline {
		return true
	}
	key := c.Generator.APIKey
	return key == "" || envVarRegex.MatchString(key)
}

// Load reads the config file, expands environment variables, applies
// defaults, and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)
	normalize(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
