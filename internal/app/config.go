// Package app assembles the server health bot from its parts.
package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/serverhealth/core/config"
	coredatabase "github.com/m3rciful/serverhealth/core/database"
	"github.com/m3rciful/serverhealth/core/telegram/state"
	"github.com/m3rciful/serverhealth/internal/api"
	"github.com/m3rciful/serverhealth/internal/llm"
	"github.com/m3rciful/serverhealth/internal/predict"
)

// ChartsConfig points at the site that renders metric charts.
type ChartsConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"CHARTS_BASE_URL"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database   coredatabase.Config `yaml:"database"`
	Redis      state.RedisConfig   `yaml:"redis"`
	LLM        llm.Config          `yaml:"llm"`
	Prediction predict.Config      `yaml:"prediction"`
	Charts     ChartsConfig        `yaml:"charts"`
	API        api.Config          `yaml:"api"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// Load reads path, applies env overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	c.LLM.Normalize()
	c.Prediction.Normalize()
	if err := c.API.Validate(); err != nil {
		return err
	}

	c.Charts.BaseURL = strings.TrimSpace(c.Charts.BaseURL)
	if c.Charts.BaseURL == "" {
		return fmt.Errorf("charts.base_url is required")
	}
	if !strings.HasPrefix(c.Charts.BaseURL, "http://") && !strings.HasPrefix(c.Charts.BaseURL, "https://") {
		return fmt.Errorf("charts.base_url must be an http(s) url, got %q", c.Charts.BaseURL)
	}
	return nil
}
