package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/etslang/kestrel/driver/parser"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "kestrel.yaml"

// Config holds the settings read from kestrel.yaml. Command-line flags take precedence over
// the environment, which takes precedence over the file.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Color is auto, always, or never.
	Color string `yaml:"color"`

	// Language names the registered language used when no grammar is given.
	Language string `yaml:"language"`

	Parser ParserConfig `yaml:"parser"`
}

type ParserConfig struct {
	RecoveryWindow int  `yaml:"recovery_window"`
	MaxVersions    int  `yaml:"max_versions"`
	DisableReuse   bool `yaml:"disable_reuse"`
}

func defaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Color:    "auto",
		Language: "ets",
		Parser: ParserConfig{
			RecoveryWindow: parser.DefaultRecoveryWindow,
			MaxVersions:    parser.DefaultMaxVersions,
		},
	}
}

// loadConfig reads a configuration file over the defaults. An empty path reads
// kestrel.yaml in the working directory when it exists.
func loadConfig(path string) (*Config, error) {
	c := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("cannot read the configuration file %v: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("cannot open the configuration file %v: %w", path, err)
	}

	applyEnv(c)

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %v: %w", path, err)
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("KESTREL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("KESTREL_LANGUAGE"); v != "" {
		c.Language = v
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Color) {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("unknown color mode: %v", c.Color)
	}
	if c.Parser.RecoveryWindow < 1 {
		return fmt.Errorf("recovery_window must be positive: %v", c.Parser.RecoveryWindow)
	}
	if c.Parser.MaxVersions < 1 {
		return fmt.Errorf("max_versions must be positive: %v", c.Parser.MaxVersions)
	}
	return nil
}

// parserOptions turns the parser settings into options.
func (c *Config) parserOptions() []parser.ParserOption {
	opts := []parser.ParserOption{
		parser.RecoveryWindow(c.Parser.RecoveryWindow),
		parser.MaxVersions(c.Parser.MaxVersions),
	}
	if c.Parser.DisableReuse {
		opts = append(opts, parser.DisableReuse())
	}
	return opts
}
