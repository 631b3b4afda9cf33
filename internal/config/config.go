package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vmanager/internal/logging"
)

const (
	defaultConfigName   = "config.json"
	defaultDatabaseFile = "journal.db"
	defaultListenAddr   = ":25580"
	defaultBackendURL   = "http://localhost:3005/api"
	defaultCatalogURL   = "https://api.papermc.io/v2/"
	defaultProxyURL     = "ws://localhost:25580/channel"
	defaultPageSize     = 28

	FlowFull    = "full"
	FlowReduced = "reduced"
)

type ProxyConfig struct {
	ListenAddr            string `json:"listen_addr"`
	BackendURL            string `json:"backend_url"`
	CatalogURL            string `json:"catalog_url"`
	DatabasePath          string `json:"database_path"`
	CatalogTTLSeconds     int    `json:"catalog_ttl_seconds"`
	BackendTimeoutSeconds int    `json:"backend_timeout_seconds"`
}

func (p ProxyConfig) CatalogTTL() time.Duration {
	return time.Duration(p.CatalogTTLSeconds) * time.Second
}

func (p ProxyConfig) BackendTimeout() time.Duration {
	return time.Duration(p.BackendTimeoutSeconds) * time.Second
}

type FrontendConfig struct {
	ProxyURL         string `json:"proxy_url"`
	RouteServer      string `json:"route_server"`
	RoutePort        int    `json:"route_port"`
	PageSize         int    `json:"page_size"`
	WizardFlow       string `json:"wizard_flow"`
	WizardTTLSeconds int    `json:"wizard_ttl_seconds"`
	ListTTLSeconds   int    `json:"list_ttl_seconds"`
	Correlation      bool   `json:"correlation"`
}

func (f FrontendConfig) WizardTTL() time.Duration {
	return time.Duration(f.WizardTTLSeconds) * time.Second
}

func (f FrontendConfig) ListTTL() time.Duration {
	return time.Duration(f.ListTTLSeconds) * time.Second
}

type Config struct {
	Proxy    ProxyConfig    `json:"proxy"`
	Frontend FrontendConfig `json:"frontend"`
	Log      logging.Config `json:"log"`
}

func Default(configDir string) Config {
	return Config{
		Proxy: ProxyConfig{
			ListenAddr:            defaultListenAddr,
			BackendURL:            defaultBackendURL,
			CatalogURL:            defaultCatalogURL,
			DatabasePath:          filepath.Join(configDir, defaultDatabaseFile),
			CatalogTTLSeconds:     600,
			BackendTimeoutSeconds: 15,
		},
		Frontend: FrontendConfig{
			ProxyURL:         defaultProxyURL,
			PageSize:         defaultPageSize,
			WizardFlow:       FlowFull,
			WizardTTLSeconds: 600,
			ListTTLSeconds:   900,
			Correlation:      true,
		},
		Log: logging.DefaultConfig(configDir),
	}
}

// LoadConfig reads config.json from configDir, writing the defaults on first run.
// Environment overrides are applied after the file is read.
func LoadConfig(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, defaultConfigName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg, err := createDefaultConfig(configPath, configDir)
		if err != nil {
			return nil, err
		}
		applyEnv(cfg)
		return cfg, cfg.Validate()
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := Default(configDir)
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", configPath, err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Frontend.PageSize <= 0 {
		return fmt.Errorf("frontend.page_size must be > 0 (got %d)", c.Frontend.PageSize)
	}
	if c.Frontend.WizardFlow != FlowFull && c.Frontend.WizardFlow != FlowReduced {
		return fmt.Errorf("frontend.wizard_flow must be %q or %q (got %q)", FlowFull, FlowReduced, c.Frontend.WizardFlow)
	}
	if c.Frontend.WizardTTLSeconds <= 0 || c.Frontend.ListTTLSeconds <= 0 {
		return fmt.Errorf("frontend TTLs must be > 0")
	}
	if c.Proxy.CatalogTTLSeconds <= 0 {
		return fmt.Errorf("proxy.catalog_ttl_seconds must be > 0")
	}
	if c.Proxy.BackendTimeoutSeconds <= 0 {
		return fmt.Errorf("proxy.backend_timeout_seconds must be > 0")
	}
	if c.Frontend.RoutePort < 0 || c.Frontend.RoutePort > 65535 {
		return fmt.Errorf("frontend.route_port out of range (got %d)", c.Frontend.RoutePort)
	}
	return nil
}

func createDefaultConfig(configPath, configDir string) (*Config, error) {
	cfg := Default(configDir)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VMANAGER_PROXY_ADDR"); v != "" {
		cfg.Proxy.ListenAddr = v
	}
	if v := os.Getenv("VMANAGER_BACKEND_URL"); v != "" {
		cfg.Proxy.BackendURL = v
	}
	if v := os.Getenv("VMANAGER_PROXY_URL"); v != "" {
		cfg.Frontend.ProxyURL = v
	}
}

func IsDev() bool {
	return os.Getenv("VMANAGER_ENV") == "dev"
}

// Dir resolves the configuration directory under the user config dir.
func Dir() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting user config directory: %w", err)
	}
	appName := "vmanager"
	if IsDev() {
		appName = "vmanager-dev"
	}
	return filepath.Join(userConfigDir, appName), nil
}
