package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.P21.Validate(); err != nil {
		return err
	}

	if c.Diag.RapidCount < 1 {
		return errors.New("diag.rapid_count must be >= 1")
	}
	if c.Diag.ParallelCount < 1 {
		return errors.New("diag.parallel_count must be >= 1")
	}
	if c.Diag.Probe.CompanyID == "" {
		return errors.New("diag.probe.company_id is required")
	}
	if c.Diag.Probe.ProductGroupID == "" {
		return errors.New("diag.probe.product_group_id is required")
	}

	if c.Database.Enabled {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}

	return nil
}

// Validate checks the P21 connection settings.
func (p *P21Config) Validate() error {
	if p.BaseURL == "" {
		return errors.New("p21.base_url is required")
	}
	if !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
		return fmt.Errorf("p21.base_url must start with http:// or https://, got %q", p.BaseURL)
	}
	if p.ConsumerKey == "" {
		if p.Username == "" {
			return errors.New("p21.username is required when no consumer key is set")
		}
		if p.Password == "" {
			return errors.New("p21.password is required when no consumer key is set")
		}
	}
	if p.MaxRetries < 0 {
		return errors.New("p21.max_retries must be >= 0")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
