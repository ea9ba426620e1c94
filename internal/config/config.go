package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       Server       `yaml:"server"`
	Log          Log          `yaml:"log"`
	Auth         Auth         `yaml:"auth"`
	Redis        Redis        `yaml:"redis"`
	Postgres     Postgres     `yaml:"postgres"`
	QuestionBank QuestionBank `yaml:"questionBank"`
	// Couples pre-pairs users in the partner directory (memory or Postgres).
	Couples []Couple `yaml:"couples"`
}

type Server struct {
	Port string `yaml:"port" env:"HTTP_PORT"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
}

// Auth configures verification of bearer tokens issued by the identity provider.
type Auth struct {
	JWTSecret string `yaml:"jwtSecret" env:"JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"JWT_ISSUER"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type Postgres struct {
	URL string `yaml:"url" env:"POSTGRES_URL"`
}

type QuestionBank struct {
	TTL string `yaml:"ttl" env:"QUESTION_BANK_TTL"`
}

type Couple struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Load reads YAML config from path and applies environment overrides on top.
// A missing file is not an error; the service can run from environment alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg, nil
}

// Partners expands the configured couples into a symmetric user -> partner map.
func (c Config) Partners() map[string]string {
	out := make(map[string]string, 2*len(c.Couples))
	for _, couple := range c.Couples {
		if couple.A == "" || couple.B == "" {
			continue
		}
		out[couple.A] = couple.B
		out[couple.B] = couple.A
	}
	return out
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
