package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings; durations such as
// "15s" and comma separated slices are supported by the underlying parser.
//
// Example:
//
//	type Config struct {
//	    Port    int           `env:"HTTP_PORT" envDefault:"8080"`
//	    Timeout time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LoadWithPrefix behaves like Load but only reads variables whose names start
// with prefix, e.g. "CLOUDINARY_" maps `env:"CLOUD_NAME"` to CLOUDINARY_CLOUD_NAME.
func LoadWithPrefix(cfg any, prefix string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("parse config with prefix %q: %w", prefix, err)
	}
	return nil
}
