package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/exploopio/cvss/pkg/compress"
	"github.com/exploopio/cvss/pkg/core"
	sdkerrors "github.com/exploopio/cvss/pkg/errors"
	"github.com/exploopio/cvss/pkg/shared/severity"
)

// configEnv names the environment variable consulted when --config is unset.
const configEnv = "CVSS_CONFIG"

// Config is the CLI configuration file.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Output struct {
		Format      string `yaml:"format"`      // text, json or yaml
		Compression string `yaml:"compression"` // none, zstd or gzip; applies to --out files
	} `yaml:"output"`

	Assess struct {
		FailOn      string   `yaml:"fail_on"`
		MinSeverity string   `yaml:"min_severity"`
		Tags        []string `yaml:"tags"`
		Asset       string   `yaml:"asset"`
		KeepInvalid bool     `yaml:"keep_invalid"`
		Fingerprint bool     `yaml:"fingerprint"`
	} `yaml:"assess"`

	Metrics struct {
		Namespace string `yaml:"namespace"` // prefix for metric names, e.g. "vulndash"
		File      string `yaml:"file"`
		Runtime   bool   `yaml:"runtime"` // include Go runtime and process metrics
	} `yaml:"metrics"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.LogLevel = "warn"
	cfg.Output.Format = "text"
	cfg.Output.Compression = "none"
	cfg.Assess.Fingerprint = true
	return cfg
}

func loadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return cfg.validate()
}

func (c *Config) validate() error {
	invalid := func(format string, args ...any) error {
		return sdkerrors.E("config.validate", sdkerrors.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return invalid("log_level: %v", err)
	}
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return invalid("output.format %q: want text, json or yaml", c.Output.Format)
	}
	if _, err := compress.ParseAlgorithm(c.Output.Compression); err != nil {
		return invalid("output.compression: %v", err)
	}
	if err := validLevel(c.Assess.FailOn); err != nil {
		return invalid("assess.fail_on: %v", err)
	}
	if err := validLevel(c.Assess.MinSeverity); err != nil {
		return invalid("assess.min_severity: %v", err)
	}
	return nil
}

// validLevel accepts an empty string or a known severity band name.
func validLevel(s string) error {
	if s == "" {
		return nil
	}
	if severity.FromString(s) == severity.Unknown {
		return fmt.Errorf("unknown severity %q", s)
	}
	return nil
}
