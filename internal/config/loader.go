package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a P21 connection config from environment variables,
// loading a .env file first if one exists. Required: P21_BASE_URL,
// P21_USERNAME, P21_PASSWORD. Optional: P21_VERIFY_SSL, P21_CONSUMER_KEY.
func FromEnv() (*P21Config, error) {
	// Ignore the error: a missing .env file just means the variables
	// come from the real environment.
	_ = godotenv.Load()

	p := P21Config{
		BaseURL:     strings.TrimRight(os.Getenv("P21_BASE_URL"), "/"),
		Username:    os.Getenv("P21_USERNAME"),
		Password:    os.Getenv("P21_PASSWORD"),
		ConsumerKey: os.Getenv("P21_CONSUMER_KEY"),
		VerifySSL:   strings.EqualFold(os.Getenv("P21_VERIFY_SSL"), "true"),
	}

	var missing []string
	if p.BaseURL == "" {
		missing = append(missing, "P21_BASE_URL")
	}
	if p.Username == "" {
		missing = append(missing, "P21_USERNAME")
	}
	if p.Password == "" {
		missing = append(missing, "P21_PASSWORD")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	applyP21Defaults(&p)
	return &p, nil
}
