package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/feral-file/marketplace-mirror/internal/adapter"
	"github.com/feral-file/marketplace-mirror/internal/store/schema"
)

// ErrDuplicateKey is returned by the memory store when an insert collides with an existing key
var ErrDuplicateKey = errors.New("duplicate key")

type memoryStore struct {
	collections *memoryCollection[schema.Collection]
	items       *memoryCollection[schema.Item]
	offers      *memoryCollection[schema.Offer]
}

// NewMemoryStore creates a process-local store.
// Documents are kept as column maps so filters and field updates behave like the SQL store.
func NewMemoryStore(jsonAdapter adapter.JSON) Store {
	items := newMemoryCollection[schema.Item]("items", jsonAdapter, ColumnItemID)
	items.preservedColumns = itemMetadataColumns

	return &memoryStore{
		collections: newMemoryCollection[schema.Collection]("collections", jsonAdapter, ColumnID),
		items:       items,
		offers:      newMemoryCollection[schema.Offer]("offers", jsonAdapter, ColumnItemID, ColumnOfferer),
	}
}

func (s *memoryStore) Collections() Collection[schema.Collection] {
	return s.collections
}

func (s *memoryStore) Items() Collection[schema.Item] {
	return s.items
}

func (s *memoryStore) Offers() Collection[schema.Offer] {
	return s.offers
}

func (s *memoryStore) Clear(ctx context.Context) error {
	return clearAll(ctx, s)
}

type memoryCollection[T any] struct {
	mu         sync.RWMutex
	name       string
	json       adapter.JSON
	keyColumns []string
	docs       []map[string]any

	// preservedColumns keep their stored value when an upsert replaces a document
	preservedColumns []string
}

func newMemoryCollection[T any](name string, jsonAdapter adapter.JSON, keyColumns ...string) *memoryCollection[T] {
	return &memoryCollection[T]{
		name:       name,
		json:       jsonAdapter,
		keyColumns: keyColumns,
	}
}

func (c *memoryCollection[T]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.docs = nil
	return nil
}

func (c *memoryCollection[T]) InsertMany(ctx context.Context, docs []T) error {
	if len(docs) == 0 {
		return nil
	}

	encoded := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		m, err := c.encode(doc)
		if err != nil {
			return err
		}
		encoded = append(encoded, m)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// all-or-nothing, like a single INSERT statement
	pending := make(map[string]struct{}, len(encoded))
	for _, m := range encoded {
		key := c.primaryKey(m)
		if _, ok := pending[key]; ok || c.indexOf(c.keyFilter(m)) >= 0 {
			return fmt.Errorf("failed to insert %s: %w: %s", c.name, ErrDuplicateKey, key)
		}
		pending[key] = struct{}{}
	}

	c.docs = append(c.docs, encoded...)
	return nil
}

func (c *memoryCollection[T]) UpsertOne(ctx context.Context, key Filter, doc T) error {
	if len(key) == 0 {
		return fmt.Errorf("failed to upsert %s: empty key", c.name)
	}

	m, err := c.encode(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(key); i >= 0 {
		for _, column := range c.preservedColumns {
			m[column] = c.docs[i][column]
		}
		c.docs[i] = m
		return nil
	}
	c.docs = append(c.docs, m)
	return nil
}

func (c *memoryCollection[T]) UpdateFields(ctx context.Context, key Filter, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}

	values := make(map[string]any, len(fields))
	for column, value := range fields {
		normalized, err := c.normalize(value)
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", c.name, err)
		}
		values[column] = normalized
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.docs {
		if !matches(doc, key) {
			continue
		}
		for column, value := range values {
			doc[column] = value
		}
	}
	return nil
}

func (c *memoryCollection[T]) DeleteMany(ctx context.Context, filter Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("failed to delete %s: empty filter", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.docs[:0]
	for _, doc := range c.docs {
		if !matches(doc, filter) {
			kept = append(kept, doc)
		}
	}
	c.docs = kept
	return nil
}

func (c *memoryCollection[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexOf(filter)
	if i < 0 {
		return nil, nil
	}
	return c.decode(c.docs[i])
}

// Len returns the number of stored documents
func (c *memoryCollection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.docs)
}

func (c *memoryCollection[T]) indexOf(filter Filter) int {
	for i, doc := range c.docs {
		if matches(doc, filter) {
			return i
		}
	}
	return -1
}

func (c *memoryCollection[T]) keyFilter(doc map[string]any) Filter {
	key := make(Filter, len(c.keyColumns))
	for _, column := range c.keyColumns {
		key[column] = doc[column]
	}
	return key
}

func (c *memoryCollection[T]) primaryKey(doc map[string]any) string {
	return fmt.Sprint(c.keyFilter(doc))
}

func (c *memoryCollection[T]) encode(doc T) (map[string]any, error) {
	data, err := c.json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s document: %w", c.name, err)
	}
	var m map[string]any
	if err := c.json.UnmarshalNumber(data, &m); err != nil {
		return nil, fmt.Errorf("failed to encode %s document: %w", c.name, err)
	}
	return m, nil
}

func (c *memoryCollection[T]) decode(m map[string]any) (*T, error) {
	data, err := c.json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", c.name, err)
	}
	var doc T
	if err := c.json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", c.name, err)
	}
	return &doc, nil
}

func (c *memoryCollection[T]) normalize(value any) (any, error) {
	data, err := c.json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := c.json.UnmarshalNumber(data, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// matches reports whether doc satisfies every equality in filter.
// Values are compared on their printed form so uint64 filters match json.Number columns.
func matches(doc map[string]any, filter Filter) bool {
	for column, want := range filter {
		got, ok := doc[column]
		if !ok {
			return false
		}
		if got == nil || want == nil {
			if got != want {
				return false
			}
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
