package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config path is given and the file exists.
const DefaultPath = "symindex.yaml"

const (
	defaultLimit = 50
	defaultModel = "gemini-2.5-flash"
)

// Config is the runtime configuration shared by the binaries.
type Config struct {
	// Root is the documentation output directory payload patterns are
	// resolved against.
	Root      string    `yaml:"root"`
	Patterns  []string  `yaml:"patterns"`
	Strict    bool      `yaml:"strict"`
	Limit     int       `yaml:"limit"`
	LogLevel  string    `yaml:"log_level"`
	LogFormat string    `yaml:"log_format"`
	Assistant Assistant `yaml:"assistant"`
}

// Assistant configures the optional question-answering tool.
type Assistant struct {
	APIKey       string `yaml:"-"` // GEMINI_API_KEY only
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Enabled reports whether an API key is available.
func (a Assistant) Enabled() bool { return a.APIKey != "" }

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Root:     ".",
		Patterns: []string{"search/*.js"},
		Limit:    defaultLimit,
		LogLevel: "info",
		Assistant: Assistant{
			Model: defaultModel,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. An empty path falls back to $SYMINDEX_CONFIG, then
// to DefaultPath if that file exists.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, ok := lookup("SYMINDEX_CONFIG"); ok && p != "" {
			path, explicit = p, true
		} else {
			path = DefaultPath
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SYMINDEX_ROOT"); ok && v != "" {
		c.Root = v
	}
	if v, ok := lookup("SYMINDEX_PATTERNS"); ok && v != "" {
		c.Patterns = strings.Split(v, ",")
	}
	if v, ok := lookup("SYMINDEX_STRICT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SYMINDEX_STRICT %q: %w", v, err)
		}
		c.Strict = b
	}
	if v, ok := lookup("SYMINDEX_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("GEMINI_API_KEY"); ok {
		c.Assistant.APIKey = v
	}
	return nil
}

// Validate checks the configuration for values the binaries cannot use.
func (c *Config) Validate() error {
	if c.Root == "" {
		return errors.New("config: root is empty")
	}
	if len(c.Patterns) == 0 {
		return errors.New("config: at least one payload pattern is required")
	}
	for _, p := range c.Patterns {
		if strings.TrimSpace(p) == "" {
			return errors.New("config: empty payload pattern")
		}
	}
	if c.Limit <= 0 {
		return fmt.Errorf("config: limit must be positive, got %d", c.Limit)
	}
	if c.Assistant.Model == "" {
		c.Assistant.Model = defaultModel
	}
	return nil
}
