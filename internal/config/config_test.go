package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMarketplace = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestLoadMirrorConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *MirrorConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
database:
  host: localhost
  port: 5433
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
  max_open_conns: 4
store:
  driver: memory
ethereum:
  rpc_url: "http://localhost:8545"
  websocket_url: "ws://localhost:8546"
  chain_id: "eip155:11155111"
  marketplace_address: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
  retry_max_elapsed: "30s"
  retry_max_attempts: 3
  requests_per_second: 0
backfill:
  max_concurrency: 4
sink:
  path: "/var/log/mirror/audit.txt"
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  subject: "test.audit"
  max_reconnects: 5
  reconnect_wait: "5s"
server:
  enabled: false
  port: 9090
`,
			expectError: false,
			validate: func(t *testing.T, cfg *MirrorConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, 4, cfg.Database.MaxOpenConns)
				assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
				assert.Equal(t, "http://localhost:8545", cfg.Ethereum.RPCURL)
				assert.Equal(t, "ws://localhost:8546", cfg.Ethereum.WebSocketURL)
				assert.Equal(t, "eip155:11155111", string(cfg.Ethereum.ChainID))
				assert.Equal(t, 30*time.Second, cfg.Ethereum.RetryMaxElapsed)
				assert.Equal(t, uint64(3), cfg.Ethereum.RetryMaxAttempts)
				assert.Zero(t, cfg.Ethereum.RequestsPerSecond)
				assert.Equal(t, 4, cfg.Backfill.MaxConcurrency)
				assert.Equal(t, "/var/log/mirror/audit.txt", cfg.Sink.Path)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, "test.audit", cfg.NATS.Subject)
				assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
				assert.False(t, cfg.Server.Enabled)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  dbname: testdb
ethereum:
  websocket_url: "ws://localhost:8546"
  marketplace_address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *MirrorConfig) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
				assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
				assert.Equal(t, "eip155:1", string(cfg.Ethereum.ChainID))
				assert.Equal(t, 500*time.Millisecond, cfg.Ethereum.RetryInitialInterval)
				assert.Equal(t, 2*time.Minute, cfg.Ethereum.RetryMaxElapsed)
				assert.Equal(t, uint64(5), cfg.Ethereum.RetryMaxAttempts)
				assert.Equal(t, float64(25), cfg.Ethereum.RequestsPerSecond)
				assert.Equal(t, 5, cfg.Ethereum.RequestBurst)
				assert.Zero(t, cfg.Backfill.MaxConcurrency, "backfill fan-out is unbounded by default")
				assert.Equal(t, "logs/log.txt", cfg.Sink.Path)
				assert.Empty(t, cfg.NATS.URL)
				assert.Equal(t, "marketplace.audit", cfg.NATS.Subject)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.True(t, cfg.Server.Enabled)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 120, cfg.Server.IdleTimeout)
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name:        "missing config file",
			configFile:  "",
			expectError: false,
			validate: func(t *testing.T, cfg *MirrorConfig) {
				assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
				assert.Zero(t, cfg.Backfill.MaxConcurrency)
			},
		},
		{
			name: "invalid value",
			configFile: `
database:
  port: invalid
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			var configFile string

			if tt.configFile != "" {
				configFile = filepath.Join(tmpDir, "config.yaml")
				err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
				require.NoError(t, err)
			} else {
				configFile = filepath.Join(tmpDir, "nonexistent.yaml")
			}

			cfg, err := LoadMirrorConfig(configFile, tmpDir)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func validConfig() MirrorConfig {
	return MirrorConfig{
		Database: DatabaseConfig{Host: "localhost", DBName: "mirror"},
		Store:    StoreConfig{Driver: StoreDriverPostgres},
		Ethereum: EthereumConfig{
			WebSocketURL:       "ws://localhost:8546",
			ChainID:            "eip155:1",
			MarketplaceAddress: testMarketplace,
		},
		Backfill: BackfillConfig{MaxConcurrency: 8},
		Sink:     SinkConfig{Path: "logs/log.txt"},
	}
}

func TestMirrorConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MirrorConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*MirrorConfig) {},
		},
		{
			name:   "local development chain",
			mutate: func(c *MirrorConfig) { c.Ethereum.ChainID = "eip155:31337" },
		},
		{
			name:    "missing endpoints",
			mutate:  func(c *MirrorConfig) { c.Ethereum.WebSocketURL = "" },
			wantErr: "ethereum.rpc_url or ethereum.websocket_url is required",
		},
		{
			name:    "missing marketplace",
			mutate:  func(c *MirrorConfig) { c.Ethereum.MarketplaceAddress = "" },
			wantErr: "ethereum.marketplace_address is required",
		},
		{
			name:    "invalid marketplace",
			mutate:  func(c *MirrorConfig) { c.Ethereum.MarketplaceAddress = "0x1234" },
			wantErr: "ethereum.marketplace_address",
		},
		{
			name:    "unsupported chain",
			mutate:  func(c *MirrorConfig) { c.Ethereum.ChainID = "tezos:mainnet" },
			wantErr: "unsupported ethereum.chain_id",
		},
		{
			name:    "malformed chain",
			mutate:  func(c *MirrorConfig) { c.Ethereum.ChainID = "eip155:abc" },
			wantErr: "unsupported ethereum.chain_id",
		},
		{
			name:    "negative rate",
			mutate:  func(c *MirrorConfig) { c.Ethereum.RequestsPerSecond = -1 },
			wantErr: "ethereum.requests_per_second",
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *MirrorConfig) { c.Backfill.MaxConcurrency = -1 },
			wantErr: "backfill.max_concurrency",
		},
		{
			name:    "missing sink path",
			mutate:  func(c *MirrorConfig) { c.Sink.Path = "" },
			wantErr: "sink.path is required",
		},
		{
			name:    "postgres without host",
			mutate:  func(c *MirrorConfig) { c.Database.Host = "" },
			wantErr: "database.host is required",
		},
		{
			name:    "postgres without dbname",
			mutate:  func(c *MirrorConfig) { c.Database.DBName = "" },
			wantErr: "database.dbname is required",
		},
		{
			name: "memory store needs no database",
			mutate: func(c *MirrorConfig) {
				c.Store.Driver = StoreDriverMemory
				c.Database = DatabaseConfig{}
			},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *MirrorConfig) { c.Store.Driver = "mongodb" },
			wantErr: "unsupported store.driver",
		},
		{
			name: "nats without subject",
			mutate: func(c *MirrorConfig) {
				c.NATS.URL = "nats://localhost:4222"
				c.NATS.Subject = ""
			},
			wantErr: "nats.subject is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEthereumConfig_URLs(t *testing.T) {
	both := EthereumConfig{RPCURL: "http://rpc", WebSocketURL: "ws://ws"}
	assert.Equal(t, "http://rpc", both.ReadURL())
	assert.Equal(t, "ws://ws", both.SubscribeURL())

	wsOnly := EthereumConfig{WebSocketURL: "ws://ws"}
	assert.Equal(t, "ws://ws", wsOnly.ReadURL())
	assert.Equal(t, "ws://ws", wsOnly.SubscribeURL())

	rpcOnly := EthereumConfig{RPCURL: "http://rpc"}
	assert.Equal(t, "http://rpc", rpcOnly.SubscribeURL())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "complete config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				DBName:   "testdb",
				SSLMode:  "require",
			},
			expected: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require",
		},
		{
			name: "with special characters in password",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "p@ssw0rd!",
				DBName:   "testdb",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	envDir := filepath.Join(tmpDir, "env")
	err := os.MkdirAll(envDir, 0750)
	require.NoError(t, err)

	// Viper uses the MARKETPLACE_MIRROR_ prefix
	envFile := filepath.Join(envDir, ".env")
	envContent := `MARKETPLACE_MIRROR_DEBUG=true
MARKETPLACE_MIRROR_DATABASE_HOST=env-host
MARKETPLACE_MIRROR_DATABASE_PORT=6543
MARKETPLACE_MIRROR_STORE_DRIVER=memory
MARKETPLACE_MIRROR_ETHEREUM_MARKETPLACE_ADDRESS=0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed
MARKETPLACE_MIRROR_BACKFILL_MAX_CONCURRENCY=2
`
	err = os.WriteFile(envFile, []byte(envContent), 0600)
	require.NoError(t, err)

	// the service-specific local file overrides the shared one
	localFile := filepath.Join(envDir, ".env.marketplace-mirror.local")
	err = os.WriteFile(localFile, []byte("MARKETPLACE_MIRROR_BACKFILL_MAX_CONCURRENCY=3\n"), 0600)
	require.NoError(t, err)

	configPath := filepath.Join(tmpDir, "config.yaml")
	configFile := `
debug: false
database:
  host: file-host
  port: 5432
store:
  driver: postgres
backfill:
  max_concurrency: 32
`
	err = os.WriteFile(configPath, []byte(configFile), 0600)
	require.NoError(t, err)

	for _, key := range []string{
		"MARKETPLACE_MIRROR_DEBUG",
		"MARKETPLACE_MIRROR_DATABASE_HOST",
		"MARKETPLACE_MIRROR_DATABASE_PORT",
		"MARKETPLACE_MIRROR_STORE_DRIVER",
		"MARKETPLACE_MIRROR_ETHEREUM_MARKETPLACE_ADDRESS",
		"MARKETPLACE_MIRROR_BACKFILL_MAX_CONCURRENCY",
	} {
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}

	cfg, err := LoadMirrorConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, testMarketplace, cfg.Ethereum.MarketplaceAddress)
	assert.Equal(t, 3, cfg.Backfill.MaxConcurrency)
}
