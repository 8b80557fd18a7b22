package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testDB      *gorm.DB
	pgContainer *postgres.PostgresContainer
)

// TestMain sets up the test database before running tests.
// When no database can be reached the PostgreSQL tests are skipped and the memory store tests still run.
func TestMain(m *testing.M) {
	ctx := context.Background()

	dsn, err := testDSN(ctx)
	if err != nil {
		fmt.Printf("PostgreSQL unavailable, skipping PostgreSQL store tests: %v\n", err)
		os.Exit(m.Run())
	}

	testDB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err == nil {
		err = AutoMigrate(testDB)
	}
	if err != nil {
		fmt.Printf("Failed to initialize database: %v\n", err)
		terminateContainer(ctx)
		os.Exit(1)
	}

	code := m.Run()

	terminateContainer(ctx)
	os.Exit(code)
}

// testDSN returns the DSN of an external database (for CI or local development)
// or starts a PostgreSQL container
func testDSN(ctx context.Context) (string, error) {
	if dbHost := os.Getenv("TEST_DB_HOST"); dbHost != "" {
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			dbHost,
			envOr("TEST_DB_PORT", "5432"),
			envOr("TEST_DB_USER", "postgres"),
			envOr("TEST_DB_PASSWORD", "postgres"),
			envOr("TEST_DB_NAME", "test_db"))
		fmt.Printf("Using external database: %s\n", dbHost)
		return dsn, nil
	}

	if err := dockerAvailable(ctx); err != nil {
		return "", fmt.Errorf("docker unavailable: %w", err)
	}

	err := panicToError(func() error {
		var runErr error
		pgContainer, runErr = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		return runErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminateContainer(ctx)
		return "", fmt.Errorf("failed to get connection string: %w", err)
	}

	fmt.Printf("Started PostgreSQL container\n")
	return dsn, nil
}

// dockerAvailable reports whether a container runtime can be reached
func dockerAvailable(ctx context.Context) error {
	return panicToError(func() error {
		provider, err := testcontainers.NewDockerProvider()
		if err != nil {
			return err
		}
		defer provider.Close()
		return provider.Health(ctx)
	})
}

// panicToError runs fn and returns a panic as an error.
// testcontainers panics when it cannot resolve a docker host.
func panicToError(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	return fn()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func terminateContainer(ctx context.Context) {
	if pgContainer == nil {
		return
	}
	if err := pgContainer.Terminate(ctx); err != nil {
		fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
	}
	pgContainer = nil
}

// initPGTestDB returns a store bound to a transaction that is rolled back after the test
func initPGTestDB(t *testing.T) Store {
	tx := testDB.Begin()
	require.NotNil(t, tx)
	require.NoError(t, tx.Error)

	t.Cleanup(func() {
		tx.Rollback()
	})

	return NewPGStore(tx)
}

// TestPostgreSQLStore runs all store tests against PostgreSQL
func TestPostgreSQLStore(t *testing.T) {
	if testDB == nil {
		t.Skip("test database not initialized")
	}

	RunStoreTests(t, initPGTestDB)
}

func TestCalculateSafeBatchSize(t *testing.T) {
	tests := []struct {
		name            string
		totalRecords    int
		fieldsPerRecord int
		expected        int
	}{
		{
			name:            "small batch fits entirely",
			totalRecords:    10,
			fieldsPerRecord: 8,
			expected:        10,
		},
		{
			name:            "large batch is capped by parameter limit",
			totalRecords:    100000,
			fieldsPerRecord: 8,
			expected:        (65535 - 1000) / 8,
		},
		{
			name:            "zero fields never divides by zero",
			totalRecords:    3,
			fieldsPerRecord: 0,
			expected:        3,
		},
		{
			name:            "wide records still produce a batch of one",
			totalRecords:    5,
			fieldsPerRecord: 100000,
			expected:        1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateSafeBatchSize(tt.totalRecords, tt.fieldsPerRecord))
		})
	}
}

func TestConflictColumnsAreSorted(t *testing.T) {
	columns := conflictColumns(ByOffer(1, testBuyer))
	require.Len(t, columns, 2)
	assert.Equal(t, ColumnItemID, columns[0].Name)
	assert.Equal(t, ColumnOfferer, columns[1].Name)
}

func TestPanicToError(t *testing.T) {
	err := panicToError(func() error {
		panic("rootless Docker not found")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rootless Docker not found")

	assert.NoError(t, panicToError(func() error { return nil }))

	err = panicToError(func() error { return fmt.Errorf("connection refused") })
	assert.EqualError(t, err, "connection refused")
}

func TestDockerAvailable_DoesNotPanic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	assert.NotPanics(t, func() {
		_ = dockerAvailable(ctx)
	})
}
