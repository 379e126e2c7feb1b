// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the channelforge
// server. It handles loading and parsing the YAML configuration file and
// provides structured access to server, logging, catalog, and store
// settings, plus verification of the management key.
package config

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces.
	Host string `yaml:"host"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port"`

	// Debug enables or disables debug-level logging.
	Debug bool `yaml:"debug"`

	// LoggingToFile controls whether application logs are written to
	// rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// LogsMaxTotalSizeMB limits the total size (in MB) of log files under
	// the logs directory. Set to 0 to disable cleanup.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb"`

	// RemoteManagement nests management-related options under 'remote-management'.
	RemoteManagement RemoteManagement `yaml:"remote-management"`

	// CatalogPath is the YAML model/group catalog file.
	CatalogPath string `yaml:"catalog-path"`

	// DatabasePath is the sqlite database file holding channel records.
	DatabasePath string `yaml:"database-path"`
}

// RemoteManagement holds management API configuration under 'remote-management'.
type RemoteManagement struct {
	// AllowRemote toggles remote (non-localhost) access to the management API.
	AllowRemote bool `yaml:"allow-remote"`
	// SecretKey is the management key (plaintext or bcrypt hashed). YAML key intentionally 'secret-key'.
	SecretKey string `yaml:"secret-key"`
}

// LoadConfig reads the YAML configuration file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 8319
	}
	if c.CatalogPath == "" {
		c.CatalogPath = "catalog.yaml"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "channelforge.db"
	}
}

// looksLikeBcrypt returns true if the provided string appears to be a bcrypt hash.
func looksLikeBcrypt(s string) bool {
	return len(s) > 4 && (s[:4] == "$2a$" || s[:4] == "$2b$" || s[:4] == "$2y$")
}

// CheckManagementKey verifies a presented management key against the
// configured secret, which may be stored plaintext or bcrypt hashed.
// An empty configured secret rejects everything.
func (c *Config) CheckManagementKey(presented string) bool {
	secret := c.RemoteManagement.SecretKey
	if secret == "" || presented == "" {
		return false
	}
	if looksLikeBcrypt(secret) {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(presented)) == nil
	}
	return secret == presented
}

// HashSecret hashes a management secret with bcrypt for storage.
func HashSecret(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
