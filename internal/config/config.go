// Package config loads the triador YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML parsing for values like "30s".
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

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full triador configuration.
type Config struct {
	// WorkingDir holds the input folder and the category folders.
	WorkingDir string `yaml:"working_dir"`
	// Database is the path of the hash ledger sqlite file.
	Database string `yaml:"database"`
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// HeartbeatTimeout is how long a session survives without a heartbeat.
	HeartbeatTimeout Duration `yaml:"heartbeat_timeout"`
	// Extensions are the accepted image file extensions.
	Extensions []string `yaml:"extensions"`
	// Classifier configures the model sidecar. With an empty endpoint the
	// stand-in scorer is used instead.
	Classifier struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"classifier"`
}

// Load reads and validates a configuration file, applying defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes configuration bytes, applying defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("while parsing config: %w", err)
	}
	if cfg.WorkingDir == "" {
		return nil, fmt.Errorf("working_dir must be set")
	}
	if cfg.Database == "" {
		cfg.Database = "triador.db"
	}
	if cfg.Listen == "" {
		cfg.Listen = ":5000"
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = Duration(30 * time.Second)
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".jpg", ".jpeg", ".png"}
	}
	return &cfg, nil
}
