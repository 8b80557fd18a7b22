package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/marketplace-mirror/internal/store/schema"
)

type pgStore struct {
	db          *gorm.DB
	collections *pgCollection[schema.Collection]
	items       *pgCollection[schema.Item]
	offers      *pgCollection[schema.Offer]
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{
		db:          db,
		collections: &pgCollection[schema.Collection]{
			db:              db,
			name:            "collections",
			fieldsPerRecord: 2,
			upsertColumns:   []string{ColumnAddress},
		},
		items: &pgCollection[schema.Item]{
			db:              db,
			name:            "items",
			fieldsPerRecord: 8,
			upsertColumns:   []string{ColumnContractAddress, ColumnTokenID, ColumnOwner, ColumnPrice},
		},
		offers: &pgCollection[schema.Offer]{
			db:              db,
			name:            "offers",
			fieldsPerRecord: 5,
			upsertColumns:   []string{ColumnSeller, ColumnPrice, ColumnIsAccepted},
		},
	}
}

// AutoMigrate creates or updates the mirror tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schema.Collection{}, &schema.Item{}, &schema.Offer{}); err != nil {
		return fmt.Errorf("failed to migrate mirror tables: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings of the underlying *sql.DB.
// Zero values fall back to: 20 open, 5 idle, 5 minutes lifetime, 10 minutes idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	maxIdleConns = min(maxIdleConns, maxOpenConns)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// calculateSafeBatchSize computes the batch size for bulk inserts that stays under
// PostgreSQL's limit of 65535 parameters per statement, keeping 1000 parameters of headroom.
func calculateSafeBatchSize(totalRecords int, fieldsPerRecord int) int {
	const maxParams = 65535
	const totalHeadroom = 1000

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/max(fieldsPerRecord, 1), 1)

	if safeBatchSize > totalRecords {
		return totalRecords
	}

	return safeBatchSize
}

func (s *pgStore) Collections() Collection[schema.Collection] {
	return s.collections
}

func (s *pgStore) Items() Collection[schema.Item] {
	return s.items
}

func (s *pgStore) Offers() Collection[schema.Offer] {
	return s.offers
}

// Clear removes every mirrored document in a single transaction
func (s *pgStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return clearAll(ctx, NewPGStore(tx))
	})
}

// pgCollection maps one mirror collection onto a table
type pgCollection[T any] struct {
	db              *gorm.DB
	name            string
	fieldsPerRecord int
	// upsertColumns are overwritten when an upsert hits an existing row
	upsertColumns   []string
}

func (c *pgCollection[T]) Clear(ctx context.Context) error {
	err := c.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(new(T)).Error
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", c.name, err)
	}
	return nil
}

func (c *pgCollection[T]) InsertMany(ctx context.Context, docs []T) error {
	if len(docs) == 0 {
		return nil
	}

	batchSize := calculateSafeBatchSize(len(docs), c.fieldsPerRecord)
	if err := c.db.WithContext(ctx).CreateInBatches(docs, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert %d %s: %w", len(docs), c.name, err)
	}
	return nil
}

func (c *pgCollection[T]) UpsertOne(ctx context.Context, key Filter, doc T) error {
	if len(key) == 0 {
		return fmt.Errorf("failed to upsert %s: empty key", c.name)
	}

	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   conflictColumns(key),
			DoUpdates: clause.AssignmentColumns(c.upsertColumns),
		}).
		Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", c.name, err)
	}
	return nil
}

func (c *pgCollection[T]) UpdateFields(ctx context.Context, key Filter, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}

	err := c.db.WithContext(ctx).
		Model(new(T)).
		Where(map[string]interface{}(key)).
		Updates(map[string]interface{}(fields)).Error
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", c.name, err)
	}
	return nil
}

func (c *pgCollection[T]) DeleteMany(ctx context.Context, filter Filter) error {
	err := c.db.WithContext(ctx).
		Where(map[string]interface{}(filter)).
		Delete(new(T)).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", c.name, err)
	}
	return nil
}

func (c *pgCollection[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	var doc T
	err := c.db.WithContext(ctx).
		Where(map[string]interface{}(filter)).
		Take(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find %s: %w", c.name, err)
	}
	return &doc, nil
}

// conflictColumns returns the key columns in a stable order
func conflictColumns(key Filter) []clause.Column {
	names := make([]string, 0, len(key))
	for name := range key {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]clause.Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, clause.Column{Name: name})
	}
	return columns
}
