// Package config loads golem's runtime configuration from CLI flags and
// environment variables, with a .env file loaded first if present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the CLI surface exposes. Fields mirror the
// flags documented for `golem`: provider selection, the store path,
// engine bounds, and the shell tool's sandbox policy.
type Config struct {
	Provider       string        `yaml:"provider,omitempty"`
	Model          string        `yaml:"model,omitempty"`
	DBPath         string        `yaml:"db_path,omitempty"`
	MaxIterations  int           `yaml:"max_iterations,omitempty"`
	ToolTimeout    time.Duration `yaml:"tool_timeout,omitempty"`
	AllowWrite     bool          `yaml:"allow_write,omitempty"`
	WorkDir        string        `yaml:"work_dir,omitempty"`
	NoConfirm      bool          `yaml:"no_confirm,omitempty"`
	MaxOutputBytes int           `yaml:"max_output_bytes,omitempty"`
}

// Default returns the baseline configuration before flags or
// environment variables are applied.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Provider:       "anthropic",
		Model:          "",
		DBPath:         filepath.Join(home, ".golem", "golem.db"),
		MaxIterations:  20,
		ToolTimeout:    30 * time.Second,
		AllowWrite:     false,
		WorkDir:        ".",
		NoConfirm:      false,
		MaxOutputBytes: 50_000,
	}
}

// FilePath is the default location of the persisted YAML config, layered
// underneath flags and environment variables.
func FilePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".golem", "config.yaml")
}

// LoadFile reads a YAML config file and applies it on top of Default(),
// so a config file only naming a few fields doesn't reset the rest. A
// missing file is not an error — it just means nothing overrides the
// defaults yet.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveFile persists cfg as YAML at path, creating its parent directory
// if needed. Used by `golem login` to remember the provider that was
// just authorized, so subsequent runs default to it without a flag.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads a .env file from the current directory if one exists. A
// missing file is not an error; a malformed one is.
func LoadEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

// APIKeyEnvVar returns the canonical environment variable name carrying
// the API key for a provider.
func APIKeyEnvVar(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}
