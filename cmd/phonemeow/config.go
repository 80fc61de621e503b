package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// AccountID scopes the contact archive and hash snapshots when several
	// accounts share one database.
	AccountID string `yaml:"account_id"`
	Directory struct {
		BaseURL   string `yaml:"base_url"`
		AuthToken string `yaml:"auth_token"`
		Watch     bool   `yaml:"watch"`
	} `yaml:"directory"`
	AddressBook struct {
		VCardPath string `yaml:"vcard_path"`
	} `yaml:"address_book"`
	Database struct {
		Type string `yaml:"type"`
		URI  string `yaml:"uri"`
	} `yaml:"database"`
	Listen  string `yaml:"listen"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Listen  string `yaml:"listen"`
	} `yaml:"metrics"`
	Logging struct {
		MinLevel string `yaml:"min_level"`
	} `yaml:"logging"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("account_id is required")
	}
	if cfg.Directory.BaseURL == "" {
		return nil, fmt.Errorf("directory.base_url is required")
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite3"
	}
	if cfg.Database.URI == "" {
		cfg.Database.URI = "phonemeow.db"
	}
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:29330"
	}
	if cfg.Logging.MinLevel == "" {
		cfg.Logging.MinLevel = "debug"
	}
	return &cfg, nil
}
