package httpapi

import "time"

// Config holds dashboard API client configuration.
type Config struct {
	URL     string        `yaml:"url"`
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}
