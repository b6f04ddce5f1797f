package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	Store struct {
		Dir string `yaml:"dir"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"questions"`
	RateLimits struct {
		AIGeneration     LimitConfig `yaml:"ai_generation"`
		AnswerSubmission LimitConfig `yaml:"answer_submission"`
		APICalls         LimitConfig `yaml:"api_calls"`
	} `yaml:"rate_limits"`
	Auth struct {
		MockUser MockUser `yaml:"mock_user"`
	} `yaml:"auth"`
}

// LimitConfig is a fixed-window quota in YAML form; zero values fall back to
// the built-in defaults.
type LimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

// MockUser is the stubbed identity every request resolves to.
type MockUser struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
