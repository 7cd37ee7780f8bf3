package config

import (
	"strings"
	"time"
)

// Config is the root configuration for the P21 tools.
type Config struct {
	P21      P21Config      `yaml:"p21"`
	Diag     DiagConfig     `yaml:"diag"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// P21Config holds connection settings for a Prophet 21 server.
type P21Config struct {
	BaseURL      string        `yaml:"base_url"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	ConsumerKey  string        `yaml:"consumer_key"` // service-account app key, optional
	VerifySSL    bool          `yaml:"verify_ssl"`   // most P21 installs use self-signed certs
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// TokenURL is the V1 token endpoint (credentials in headers).
func (p P21Config) TokenURL() string {
	return p.root() + "/api/security/token"
}

// TokenV2URL is the V2 token endpoint (credentials in body).
func (p P21Config) TokenV2URL() string {
	return p.root() + "/api/security/token/v2"
}

// ODataURL is the OData service root.
func (p P21Config) ODataURL() string {
	return p.root() + "/odataservice/odata"
}

// RouterURL is the UI-server discovery endpoint.
func (p P21Config) RouterURL() string {
	return p.root() + "/api/ui/router/v1?urlType=external"
}

func (p P21Config) root() string {
	return strings.TrimRight(p.BaseURL, "/")
}

// DiagConfig holds session-pool diagnostic settings.
type DiagConfig struct {
	RapidCount    int           `yaml:"rapid_count"`
	DelayedCount  int           `yaml:"delayed_count"`
	DelayedGap    time.Duration `yaml:"delayed_gap"`
	SlowCount     int           `yaml:"slow_count"`
	SlowGap       time.Duration `yaml:"slow_gap"`
	ParallelCount int           `yaml:"parallel_count"`
	JitterCount   int           `yaml:"jitter_count"`
	PauseBetween  time.Duration `yaml:"pause_between"`
	OutputPath    string        `yaml:"output_path"`

	Probe ProbeConfig `yaml:"probe"`
}

// ProbeConfig identifies the price page used for diagnostic writes.
// Price pages are safe test records: they can be expired without side effects.
type ProbeConfig struct {
	CompanyID      string  `yaml:"company_id"`
	SupplierID     float64 `yaml:"supplier_id"`
	ProductGroupID string  `yaml:"product_group_id"`
	Multiplier     float64 `yaml:"multiplier"`
}

// DatabaseConfig holds the optional postgres store for diagnostic runs.
type DatabaseConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
