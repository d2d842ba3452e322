package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/speccam/speccam/config"
)

// runLoadConfig exercises loadConfig through a real CLI invocation so
// flag parsing and precedence behave as in production.
func runLoadConfig(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()

	var cfg config.Config
	var cfgErr error

	cmd := &cli.Command{
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: config.DefaultHost},
			&cli.IntFlag{Name: "port", Value: config.DefaultPort},
			&cli.StringFlag{Name: "config"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, cfgErr = loadConfig(cmd)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), append([]string{"speccam"}, args...)); err != nil {
		t.Fatalf("Command run failed: %v", err)
	}
	return cfg, cfgErr
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := runLoadConfig(t)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Host != config.DefaultHost || cfg.Port != config.DefaultPort {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte("host: 0.0.0.0\nport: 9000\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := runLoadConfig(t, "--config", path, "--port", "8080")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Expected host from file, got %s", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected flag to override file port, got %d", cfg.Port)
	}
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte("port: -1\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := runLoadConfig(t, "--config", path); err == nil {
		t.Error("Expected error for invalid port")
	}
}
