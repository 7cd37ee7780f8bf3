package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 1 * time.Second

	DefaultRapidCount    = 10
	DefaultDelayedCount  = 10
	DefaultDelayedGap    = 500 * time.Millisecond
	DefaultSlowCount     = 5
	DefaultSlowGap       = 2 * time.Second
	DefaultParallelCount = 5
	DefaultJitterCount   = 10
	DefaultPauseBetween  = 2 * time.Second
	DefaultOutputPath    = "session_pool_results.json"

	DefaultProbeMultiplier = 0.5

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultLogLevel = "info"
)

func (c *Config) applyDefaults() {
	applyP21Defaults(&c.P21)

	// Diagnostic defaults
	if c.Diag.RapidCount == 0 {
		c.Diag.RapidCount = DefaultRapidCount
	}
	if c.Diag.DelayedCount == 0 {
		c.Diag.DelayedCount = DefaultDelayedCount
	}
	if c.Diag.DelayedGap == 0 {
		c.Diag.DelayedGap = DefaultDelayedGap
	}
	if c.Diag.SlowCount == 0 {
		c.Diag.SlowCount = DefaultSlowCount
	}
	if c.Diag.SlowGap == 0 {
		c.Diag.SlowGap = DefaultSlowGap
	}
	if c.Diag.ParallelCount == 0 {
		c.Diag.ParallelCount = DefaultParallelCount
	}
	if c.Diag.JitterCount == 0 {
		c.Diag.JitterCount = DefaultJitterCount
	}
	if c.Diag.PauseBetween == 0 {
		c.Diag.PauseBetween = DefaultPauseBetween
	}
	if c.Diag.OutputPath == "" {
		c.Diag.OutputPath = DefaultOutputPath
	}
	if c.Diag.Probe.Multiplier == 0 {
		c.Diag.Probe.Multiplier = DefaultProbeMultiplier
	}

	if c.Database.Enabled {
		applyDBDefaults(&c.Database.Postgres)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

func applyP21Defaults(p *P21Config) {
	if p.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.RetryBackoff == 0 {
		p.RetryBackoff = DefaultRetryBackoff
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
