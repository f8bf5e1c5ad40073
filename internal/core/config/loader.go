package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load parses the YAML file at path into an AppConfig. ${VAR}
// references in the file are substituted from the environment before
// parsing, so secrets like the database URL stay out of the file.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Chain.RPCTimeout == 0 {
		cfg.Chain.RPCTimeout = 30 * time.Second
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Chain.Endpoint == "" {
		return errors.New("chain.endpoint is required")
	}
	return nil
}
