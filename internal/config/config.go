package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"

	"github.com/simp-lee/vaultfeed/internal/domain"
)

// Defaults applied by Validate when a field is left empty.
const (
	DefaultRefreshSchedule   = "@every 1m"
	DefaultRefreshTimeout    = "10s"
	DefaultViewTTL           = "30m"
	DefaultDesktopBreakpoint = 768
	DefaultMetricsPath       = "/metrics"
	DefaultWalletAppName     = "Vault"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Feed     FeedConfig     `koanf:"feed"`
	Wallet   WalletConfig   `koanf:"wallet"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string     `koanf:"host"`
	Port    int        `koanf:"port"`
	Mode    string     `koanf:"mode"`
	Timeout string     `koanf:"timeout"`
	CORS    CORSConfig `koanf:"cors"`
}

// TimeoutDuration returns the per-request deadline, 0 when unset.
// Call only after Validate.
func (s ServerConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.Timeout)
	return d
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// MaxAgeDuration returns the preflight cache lifetime, 0 when unset.
// Call only after Validate.
func (c CORSConfig) MaxAgeDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxAge)
	return d
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver      string         `koanf:"driver"`
	AutoMigrate bool           `koanf:"auto_migrate"`
	SQLite      SQLiteConfig   `koanf:"sqlite"`
	Postgres    PostgresConfig `koanf:"postgres"`
	Pool        PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// FeedConfig holds activity feed settings.
type FeedConfig struct {
	// RefreshSchedule is a five-field cron spec or a descriptor such as
	// "@every 30s".
	RefreshSchedule   string   `koanf:"refresh_schedule"`
	RefreshTimeout    string   `koanf:"refresh_timeout"`
	Vaults            []string `koanf:"vaults"`
	DesktopBreakpoint int      `koanf:"desktop_breakpoint"`
	ViewTTL           string   `koanf:"view_ttl"`
}

// RefreshTimeoutDuration returns the parsed refresh timeout.
// Call only after Validate.
func (f FeedConfig) RefreshTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(f.RefreshTimeout)
	return d
}

// ViewTTLDuration returns the parsed view TTL.
// Call only after Validate.
func (f FeedConfig) ViewTTLDuration() time.Duration {
	d, _ := time.ParseDuration(f.ViewTTL)
	return d
}

// WalletConfig holds the wallet connector network settings.
type WalletConfig struct {
	// Environment "development" selects the test network.
	Environment string `koanf:"environment"`
	TestnetURI  string `koanf:"testnet_uri"`
	MainnetURI  string `koanf:"mainnet_uri"`
	AppName     string `koanf:"app_name"`
}

// Development reports whether the test network is selected.
func (w WalletConfig) Development() bool {
	return w.Environment == "development"
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__FEED__REFRESH_TIMEOUT=5s overrides feed.refresh_timeout.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate normalizes the configuration, fills defaults and checks
// supported values.
func (c *Config) Validate() error {
	for _, validate := range []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateLog,
		c.validateFeed,
		c.validateWallet,
		c.validateMetrics,
	} {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	if err := optionalDuration("server.timeout", &c.Server.Timeout); err != nil {
		return err
	}
	return optionalDuration("server.cors.max_age", &c.Server.CORS.MaxAge)
}

func (c *Config) validateDatabase() error {
	db := &c.Database
	switch db.Driver {
	case "sqlite":
		path := strings.TrimSpace(db.SQLite.Path)
		if path == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		db.SQLite.Path = path
	case "postgres":
		if err := c.validatePostgres(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", db.Driver, "sqlite", "postgres")
	}

	return optionalDuration("database.pool.conn_max_lifetime", &db.Pool.ConnMaxLifetime)
}

func (c *Config) validatePostgres() error {
	pg := &c.Database.Postgres

	pg.Host = strings.TrimSpace(pg.Host)
	if pg.Host == "" {
		return fmt.Errorf("database.postgres.host is required when driver is postgres")
	}
	if pg.Port < 1 || pg.Port > 65535 {
		return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
	}
	pg.User = strings.TrimSpace(pg.User)
	if pg.User == "" {
		return fmt.Errorf("database.postgres.user is required when driver is postgres")
	}
	pg.DBName = strings.TrimSpace(pg.DBName)
	if pg.DBName == "" {
		return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
	}

	sslMode := strings.TrimSpace(pg.SSLMode)
	switch sslMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of %q, %q, %q, %q, %q, %q", pg.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full")
	}
	if c.Server.Mode == gin.ReleaseMode {
		switch sslMode {
		case "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", pg.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
		}
	}
	pg.SSLMode = sslMode
	return nil
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}
	return nil
}

func (c *Config) validateFeed() error {
	f := &c.Feed

	f.RefreshSchedule = strings.TrimSpace(f.RefreshSchedule)
	if f.RefreshSchedule == "" {
		f.RefreshSchedule = DefaultRefreshSchedule
	}
	if _, err := cron.ParseStandard(f.RefreshSchedule); err != nil {
		return fmt.Errorf("invalid feed.refresh_schedule %q: %w", f.RefreshSchedule, err)
	}

	if strings.TrimSpace(f.RefreshTimeout) == "" {
		f.RefreshTimeout = DefaultRefreshTimeout
	}
	if err := optionalDuration("feed.refresh_timeout", &f.RefreshTimeout); err != nil {
		return err
	}
	if strings.TrimSpace(f.ViewTTL) == "" {
		f.ViewTTL = DefaultViewTTL
	}
	if err := optionalDuration("feed.view_ttl", &f.ViewTTL); err != nil {
		return err
	}

	if f.DesktopBreakpoint == 0 {
		f.DesktopBreakpoint = DefaultDesktopBreakpoint
	}
	if f.DesktopBreakpoint < 0 {
		return fmt.Errorf("invalid feed.desktop_breakpoint %d: must be positive", f.DesktopBreakpoint)
	}

	vaults := make([]string, 0, len(f.Vaults))
	seen := make(map[string]struct{}, len(f.Vaults))
	for i, v := range f.Vaults {
		v = strings.TrimSpace(v)
		if !domain.ValidVault(v) {
			return fmt.Errorf("invalid feed.vaults[%d] %q: must be 1-64 letters, digits or '-'", i, f.Vaults[i])
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		vaults = append(vaults, v)
	}
	f.Vaults = vaults
	return nil
}

func (c *Config) validateWallet() error {
	w := &c.Wallet

	w.Environment = strings.ToLower(strings.TrimSpace(w.Environment))
	switch w.Environment {
	case "":
		w.Environment = "production"
	case "development", "production":
	default:
		return fmt.Errorf("invalid wallet.environment %q: must be one of %q, %q", c.Wallet.Environment, "development", "production")
	}

	uri, name := &w.MainnetURI, "wallet.mainnet_uri"
	if w.Development() {
		uri, name = &w.TestnetURI, "wallet.testnet_uri"
	}
	*uri = strings.TrimSpace(*uri)
	if *uri == "" {
		return fmt.Errorf("%s is required when wallet.environment is %q", name, w.Environment)
	}
	if u, err := url.Parse(*uri); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an http(s) URL", name, *uri)
	}

	w.AppName = strings.TrimSpace(w.AppName)
	if w.AppName == "" {
		w.AppName = DefaultWalletAppName
	}
	return nil
}

func (c *Config) validateMetrics() error {
	path := strings.TrimSpace(c.Metrics.Path)
	if path == "" {
		path = DefaultMetricsPath
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("invalid metrics.path %q: must start with '/'", c.Metrics.Path)
	}
	if strings.HasPrefix(path, "/api/") {
		return fmt.Errorf("invalid metrics.path %q: must not be under /api/", c.Metrics.Path)
	}
	c.Metrics.Path = path
	return nil
}

// optionalDuration trims *value; whitespace-only means unset. A set value
// must parse as a positive duration.
func optionalDuration(name string, value *string) error {
	v := strings.TrimSpace(*value)
	*value = v
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, v)
	}
	return nil
}
