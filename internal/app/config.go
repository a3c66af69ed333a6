package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProviderConfigDir string // *.hcl provider definitions
	InventoryPath     string // cloud inventory (yaml)

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProviderConfigDir == "" {
		return nil, errors.New("ProviderConfigDir is a required configuration field and cannot be empty")
	}
	if cfg.InventoryPath == "" {
		return nil, errors.New("InventoryPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, errors.New("WorkerCount cannot be negative")
	}
	return &cfg, nil
}
