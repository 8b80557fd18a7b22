package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/marketplace-mirror/internal/domain"
)

const serviceName = "marketplace-mirror"

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// StoreConfig selects the mirror storage backend
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "postgres" or "memory"
}

// EthereumConfig holds the marketplace chain configuration
type EthereumConfig struct {
	// RPCURL serves contract reads, WebSocketURL serves log subscriptions.
	// Either may be empty, in which case the other serves both; a subscription needs a websocket endpoint.
	RPCURL               string        `mapstructure:"rpc_url"`
	WebSocketURL         string        `mapstructure:"websocket_url"`
	ChainID              domain.Chain  `mapstructure:"chain_id"`
	MarketplaceAddress   string        `mapstructure:"marketplace_address"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxElapsed      time.Duration `mapstructure:"retry_max_elapsed"`
	RetryMaxAttempts     uint64        `mapstructure:"retry_max_attempts"`
	RequestsPerSecond    float64       `mapstructure:"requests_per_second"` // 0 = no cap
	RequestBurst         int           `mapstructure:"request_burst"`
}

// BackfillConfig holds backfill tuning
type BackfillConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"` // 0 = unbounded
}

// SinkConfig holds the audit file configuration
type SinkConfig struct {
	Path string `mapstructure:"path"`
}

// NATSConfig holds NATS JetStream configuration for the optional audit stream.
// The stream is disabled when URL is empty.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	Subject        string        `mapstructure:"subject"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// ServerConfig holds the status server configuration
type ServerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// MirrorConfig holds configuration for marketplace-mirror
type MirrorConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Store      StoreConfig    `mapstructure:"store"`
	Ethereum   EthereumConfig `mapstructure:"ethereum"`
	Backfill   BackfillConfig `mapstructure:"backfill"`
	Sink       SinkConfig     `mapstructure:"sink"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Server     ServerConfig   `mapstructure:"server"`
}

// LoadMirrorConfig loads configuration for marketplace-mirror
func LoadMirrorConfig(configFile string, envPath string) (*MirrorConfig, error) {
	v := configureViper(serviceName, configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("ethereum.chain_id", "eip155:1")
	v.SetDefault("ethereum.retry_initial_interval", "500ms")
	v.SetDefault("ethereum.retry_max_elapsed", "2m")
	v.SetDefault("ethereum.retry_max_attempts", 5)
	v.SetDefault("ethereum.requests_per_second", 25)
	v.SetDefault("ethereum.request_burst", 5)
	v.SetDefault("backfill.max_concurrency", 0)
	v.SetDefault("sink.path", "logs/log.txt")
	v.SetDefault("nats.stream_name", "MARKETPLACE_AUDIT")
	v.SetDefault("nats.subject", "marketplace.audit")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", serviceName)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)

	if err := v.ReadInConfig(); err != nil && !isMissingConfig(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg MirrorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// isMissingConfig reports whether the config file is absent, in which case only environment variables apply
func isMissingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Validate checks the fields the mirror cannot start without
func (c *MirrorConfig) Validate() error {
	if c.Ethereum.RPCURL == "" && c.Ethereum.WebSocketURL == "" {
		return errors.New("ethereum.rpc_url or ethereum.websocket_url is required")
	}
	if c.Ethereum.MarketplaceAddress == "" {
		return errors.New("ethereum.marketplace_address is required")
	}
	if _, err := domain.NormalizeAddress(c.Ethereum.MarketplaceAddress); err != nil {
		return fmt.Errorf("ethereum.marketplace_address: %w", err)
	}
	if !domain.IsValidChain(c.Ethereum.ChainID) {
		return fmt.Errorf("unsupported ethereum.chain_id %q", c.Ethereum.ChainID)
	}
	if c.Ethereum.RequestsPerSecond < 0 {
		return errors.New("ethereum.requests_per_second must not be negative")
	}
	if c.Backfill.MaxConcurrency < 0 {
		return errors.New("backfill.max_concurrency must not be negative")
	}
	if c.Sink.Path == "" {
		return errors.New("sink.path is required")
	}

	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Database.Host == "" {
			return errors.New("database.host is required")
		}
		if c.Database.DBName == "" {
			return errors.New("database.dbname is required")
		}
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}

	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return errors.New("nats.subject is required when nats.url is set")
	}
	return nil
}

// ReadURL returns the endpoint used for contract reads
func (c *EthereumConfig) ReadURL() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return c.WebSocketURL
}

// SubscribeURL returns the endpoint used for log subscriptions
func (c *EthereumConfig) SubscribeURL() string {
	if c.WebSocketURL != "" {
		return c.WebSocketURL
	}
	return c.RPCURL
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/marketplace-mirror/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("MARKETPLACE_MIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Store
		"store.driver",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.websocket_url",
		"ethereum.chain_id",
		"ethereum.marketplace_address",
		"ethereum.retry_initial_interval",
		"ethereum.retry_max_elapsed",
		"ethereum.retry_max_attempts",
		"ethereum.requests_per_second",
		"ethereum.request_burst",
		// Backfill
		"backfill.max_concurrency",
		// Sink
		"sink.path",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.subject",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Server
		"server.enabled",
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
