package store

import (
	"context"

	"github.com/feral-file/marketplace-mirror/internal/store/schema"
)

// Filter selects documents by equality on column names
type Filter map[string]any

// Fields is a set of column assignments applied by UpdateFields
type Fields map[string]any

// Collection is a handle to one mirrored entity collection
type Collection[T any] interface {
	// Clear removes every document of the collection
	Clear(ctx context.Context) error
	// InsertMany bulk inserts documents, an empty slice is a no-op
	InsertMany(ctx context.Context, docs []T) error
	// UpsertOne inserts doc or replaces the document matching key.
	// The key columns must identify at most one document.
	UpsertOne(ctx context.Context, key Filter, doc T) error
	// UpdateFields sets the given columns on every document matching key
	UpdateFields(ctx context.Context, key Filter, fields Fields) error
	// DeleteMany removes every document matching filter
	DeleteMany(ctx context.Context, filter Filter) error
	// FindOne returns the first document matching filter, or nil when there is none
	FindOne(ctx context.Context, filter Filter) (*T, error)
}

// Store exposes the three mirrored collections
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Collections returns the handle for marketplace collections
	Collections() Collection[schema.Collection]
	// Items returns the handle for marketplace items
	Items() Collection[schema.Item]
	// Offers returns the handle for marketplace offers
	Offers() Collection[schema.Offer]
	// Clear removes every document of the three collections
	Clear(ctx context.Context) error
}

// Column names used by filters and field updates
const (
	ColumnID              = "id"
	ColumnAddress         = "address"
	ColumnItemID          = "item_id"
	ColumnContractAddress = "contract_address"
	ColumnTokenID         = "token_id"
	ColumnOwner           = "owner"
	ColumnPrice           = "price"
	ColumnOfferer         = "offerer"
	ColumnSeller          = "seller"
	ColumnIsAccepted      = "is_accepted"
	ColumnName            = "name"
	ColumnDescription     = "description"
	ColumnImage           = "image"
)

// itemMetadataColumns are filled outside the mirror, upserts never overwrite them
var itemMetadataColumns = []string{ColumnName, ColumnDescription, ColumnImage}

// ByCollectionID matches the collection with the given stringified index
func ByCollectionID(id string) Filter {
	return Filter{ColumnID: id}
}

// ByItemID matches documents of a single item
func ByItemID(itemID uint64) Filter {
	return Filter{ColumnItemID: itemID}
}

// ByOffer matches the offer of offerer on an item
func ByOffer(itemID uint64, offerer string) Filter {
	return Filter{ColumnItemID: itemID, ColumnOfferer: offerer}
}

// ByOfferWithSeller matches the offer of offerer on an item made against seller
func ByOfferWithSeller(itemID uint64, offerer, seller string) Filter {
	return Filter{ColumnItemID: itemID, ColumnOfferer: offerer, ColumnSeller: seller}
}

// clearAll clears the three collections of s in a fixed order
func clearAll(ctx context.Context, s Store) error {
	if err := s.Offers().Clear(ctx); err != nil {
		return err
	}
	if err := s.Items().Clear(ctx); err != nil {
		return err
	}
	return s.Collections().Clear(ctx)
}
