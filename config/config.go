// Package config holds the relay's runtime configuration: defaults,
// an optional YAML file, and validation. Flags and environment
// variables layered on top are handled by the command entry point.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults match the observed deployment: the engine connects to
// localhost:7777 and the connection never times out.
const (
	DefaultHost        = "localhost"
	DefaultPort        = 7777
	DefaultMatchCutoff = 0.4
)

// Duration wraps time.Duration so YAML values can be written as "30s"
// or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the root relay configuration.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MatchCutoff is the minimum similarity for spectate-by-name
	// resolution, in (0, 1].
	MatchCutoff float64 `yaml:"match_cutoff"`

	// Keepalive tuning. Zero disables the corresponding deadline,
	// which is the observed engine-facing behavior.
	WriteWait      Duration `yaml:"write_wait"`
	PongWait       Duration `yaml:"pong_wait"`
	PingInterval   Duration `yaml:"ping_interval"`
	MaxMessageSize int64    `yaml:"max_message_size"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		MatchCutoff: DefaultMatchCutoff,
	}
}

// Load reads a YAML config file layered over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MatchCutoff <= 0 || c.MatchCutoff > 1 {
		return fmt.Errorf("match_cutoff %v out of range (0, 1]", c.MatchCutoff)
	}
	if c.PongWait > 0 && c.PingInterval <= 0 {
		return fmt.Errorf("pong_wait requires ping_interval")
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
