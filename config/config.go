/*
Package config loads server configuration from a YAML file with
environment-variable overrides.

PURPOSE:
  Everything an operator tunes in one struct: listen address, database
  path, CORS origins, token signing and the bootstrap admin credentials.
  The file is optional; defaults plus environment variables are enough
  for development.

PRECEDENCE:
  defaults < YAML file < environment

ENVIRONMENT:
  FUELLEDGER_ADDR        listen address
  FUELLEDGER_DB          SQLite database path
  FUELLEDGER_JWT_SECRET  token signing secret
  FUELLEDGER_ADMIN_USER  bootstrap admin username
  FUELLEDGER_ADMIN_PASS  bootstrap admin password
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret     string        `yaml:"jwt_secret"`
		TokenTTL      time.Duration `yaml:"token_ttl"`
		AdminUsername string        `yaml:"admin_username"`
		AdminPassword string        `yaml:"admin_password"`
	} `yaml:"auth"`
}

func defaults() Config {
	var c Config
	c.Server.Addr = ":8080"
	c.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	c.Database.Path = "fuel-ledger.db"
	c.Auth.TokenTTL = 12 * time.Hour
	c.Auth.AdminUsername = "admin"
	return c
}

// Load reads path (skipped when empty or missing), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	c := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &c); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&c)

	if c.Auth.JWTSecret == "" {
		return Config{}, errors.New("config: auth.jwt_secret (or FUELLEDGER_JWT_SECRET) is required")
	}
	if c.Auth.AdminPassword == "" {
		return Config{}, errors.New("config: auth.admin_password (or FUELLEDGER_ADMIN_PASS) is required")
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 12 * time.Hour
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("FUELLEDGER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FUELLEDGER_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("FUELLEDGER_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("FUELLEDGER_ADMIN_USER"); v != "" {
		c.Auth.AdminUsername = v
	}
	if v := os.Getenv("FUELLEDGER_ADMIN_PASS"); v != "" {
		c.Auth.AdminPassword = v
	}
}
