// Package config loads slidekit settings from the environment.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name, e.g. SLIDEKIT_SOFFICE.
const Prefix = "SLIDEKIT"

// Config holds the settings shared by the command line tool and the
// pipeline. Command line flags take precedence over these values.
type Config struct {
	Soffice        string        `envconfig:"SOFFICE" default:"soffice"`
	Mutool         string        `envconfig:"MUTOOL" default:"mutool"`
	ArchiveDir     string        `envconfig:"ARCHIVE_DIR" default:"extracted_images"`
	MatchTolerance float64       `envconfig:"MATCH_TOLERANCE" default:"1.5"`
	InlineFallback bool          `envconfig:"INLINE_FALLBACK" default:"false"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"text"`
	Workers        int           `envconfig:"WORKERS" default:"4"`
	RenderTimeout  time.Duration `envconfig:"RENDER_TIMEOUT" default:"2m"`
}

// Load reads the configuration from SLIDEKIT_* variables.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges envconfig cannot express.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%s_WORKERS must be at least 1, got %d", Prefix, c.Workers)
	}
	if c.MatchTolerance < 0 {
		return fmt.Errorf("%s_MATCH_TOLERANCE must not be negative, got %g", Prefix, c.MatchTolerance)
	}
	if c.RenderTimeout < 0 {
		return fmt.Errorf("%s_RENDER_TIMEOUT must not be negative, got %s", Prefix, c.RenderTimeout)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%s_LOG_FORMAT must be text or json, got %q", Prefix, c.LogFormat)
	}
	return nil
}

const usageFormat = `{{range .}}{{usage_key .}}={{usage_default .}}
{{end}}`

// Usage writes the recognized variables and their defaults to w, one
// KEY=default pair per line.
func Usage(w io.Writer) error {
	return envconfig.Usagef(Prefix, &Config{}, w, usageFormat)
}
