// Package config provides YAML-based configuration for the chat front-end.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Chat    ChatConfig    `yaml:"chat"`
	Upload  UploadConfig  `yaml:"upload"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                 int    `yaml:"port"`
	BindAddress          string `yaml:"bindAddress"`
	EnableCORS           bool   `yaml:"enableCORS"`
	AllowOrigins         string `yaml:"allowOrigins"`
	ReadTimeout          int    `yaml:"readTimeoutSeconds"`
	WriteTimeout         int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout          int    `yaml:"idleTimeoutSeconds"`
	BodyLimit            string `yaml:"bodyLimit"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
}

// BackendConfig contains settings for the remote RAG backend.
type BackendConfig struct {
	BaseURL       string `yaml:"baseURL"`
	AskTimeout    int    `yaml:"askTimeoutSeconds"`
	UploadTimeout int    `yaml:"uploadTimeoutSeconds"`
}

// ChatConfig contains session lifecycle settings.
type ChatConfig struct {
	SessionTimeoutMinutes  int `yaml:"sessionTimeoutMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// UploadConfig contains pending-upload spool settings.
type UploadConfig struct {
	SpoolDirectory   string `yaml:"spoolDirectory"`
	AllowedFileTypes string `yaml:"allowedFileTypes"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:                 8090,
			BindAddress:          "0.0.0.0",
			EnableCORS:           true,
			AllowOrigins:         "*",
			ReadTimeout:          30,
			WriteTimeout:         60,
			IdleTimeout:          120,
			BodyLimit:            "32M",
			EnableRequestLogging: true,
		},
		Backend: BackendConfig{
			BaseURL:       "http://localhost:8000",
			AskTimeout:    90,
			UploadTimeout: 300,
		},
		Chat: ChatConfig{
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
		},
		Upload: UploadConfig{
			SpoolDirectory:   "./data/spool",
			AllowedFileTypes: ".pdf",
		},
	}
}

// LoadConfig reads the YAML config file at path, falling back to defaults
// when the file does not exist. Environment variables override file values.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override the file without
// editing it.
func (c *AppConfig) applyEnvOverrides() {
	if v := os.Getenv("DOCCHAT_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("DOCCHAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DOCCHAT_SPOOL_DIR"); v != "" {
		c.Upload.SpoolDirectory = v
	}
}

func (c *AppConfig) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend baseURL must not be empty")
	}
	return nil
}

// EnsureDirectories creates the directories the server needs at startup.
func (c *AppConfig) EnsureDirectories() error {
	if err := os.MkdirAll(c.Upload.SpoolDirectory, 0755); err != nil {
		return fmt.Errorf("creating spool directory: %w", err)
	}
	return nil
}

// GetServerAddr returns the listen address in host:port form.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetSpoolDir returns the pending-upload spool directory.
func (c *AppConfig) GetSpoolDir() string {
	return c.Upload.SpoolDirectory
}
