package vouchservice

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	// Path of the badger database directory. Empty means in-memory, which
	// loses all state on restart and is only useful for local runs.
	Path         string        `yaml:"path"`
	DiscardRatio float64       `yaml:"discardRatio"`
	GcFrequency  time.Duration `yaml:"gcFrequency"`
}

type Config struct {
	RPCEndpoint string   `yaml:"rpcEndpoint"`
	LogLevel    string   `yaml:"logLevel"`
	DB          DBConfig `yaml:"db"`
}

func NewDefaultConfig() *Config {
	return &Config{
		RPCEndpoint: "127.0.0.1:8529",
		LogLevel:    "info",
		DB: DBConfig{
			DiscardRatio: 0.5,
			GcFrequency:  time.Minute,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty name
// returns the defaults unchanged.
func LoadConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()
	if name == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("can't read config %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("can't parse config %s: %w", name, err)
	}
	return cfg, nil
}
