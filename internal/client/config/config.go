package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for the socialmaster CLI.
//
// Units: RequestTimeout bounds unary calls; batch generation streams are
// not limited by it.
type Config struct {
	ServerEndpointAddr string        `env:"SOCIALMASTER_SERVER_ADDR"`
	AccessToken        string        `env:"SOCIALMASTER_ACCESS_TOKEN"`
	RequestTimeout     time.Duration `env:"SOCIALMASTER_REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 2 * time.Minute
}

// LoadConfig applies defaults, then the JSON file at jsonPath (if any), then
// the environment. Later sources take precedence over earlier ones.
func LoadConfig(jsonPath string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, jsonPath); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
