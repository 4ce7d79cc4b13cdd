package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		CacheTTL string `yaml:"cacheTTL"`
		Topic    string `yaml:"topic"`
	} `yaml:"questions"`
	Match Match `yaml:"match"`
}

// Match holds the rules of a duel. Zero values fall back to the defaults.
type Match struct {
	Duration          string `yaml:"duration"`
	TotalQuestions    int    `yaml:"totalQuestions"`
	BroadcastInterval string `yaml:"broadcastInterval"`
	TimeoutGrace      string `yaml:"timeoutGrace"`
	KFactor           int    `yaml:"kFactor"`
	RatingFloor       int    `yaml:"ratingFloor"`
	DefaultRating     int    `yaml:"defaultRating"`
}

const (
	DefaultMatchDuration     = 120 * time.Second
	DefaultTotalQuestions    = 10
	DefaultBroadcastInterval = 5 * time.Second
	DefaultTimeoutGrace      = 2 * time.Second
	DefaultRedisPrefix       = "quizduel"
	DefaultTopic             = "general"
)

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

// Duration parses a duration string or returns the fallback if empty or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Int returns v, or fallback when v is not positive.
func Int(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// String returns v, or fallback when v is empty.
func String(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
