package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/marketplace-mirror/internal/store/schema"
)

const (
	testOwner    = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testBuyer    = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	testBuyer2   = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
	testNFT      = "0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb"
	testNFTAlt   = "0x52908400098527886E0F7030069857D2E4169EE7"
	largeTokenID = "115792089237316195423570985008687907853269984665640564039457584007913129639935"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func buildTestItem(itemID uint64, owner, price string) schema.Item {
	return schema.Item{
		ItemID:          itemID,
		ContractAddress: testNFT,
		TokenID:         "1",
		Owner:           owner,
		Price:           price,
	}
}

func buildTestOffer(itemID uint64, offerer, price string) schema.Offer {
	return schema.Offer{
		ItemID:     itemID,
		Offerer:    offerer,
		Seller:     testOwner,
		Price:      price,
		IsAccepted: false,
	}
}

// RunStoreTests runs the store behaviour suite against an implementation.
// initDB must return a store with empty collections.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store) {
	t.Run("Collections", func(t *testing.T) {
		testCollections(t, initDB(t))
	})
	t.Run("ItemsInsertAndFind", func(t *testing.T) {
		testItemsInsertAndFind(t, initDB(t))
	})
	t.Run("ItemsUpdateFields", func(t *testing.T) {
		testItemsUpdateFields(t, initDB(t))
	})
	t.Run("ItemsUpsertKeepsOneRow", func(t *testing.T) {
		testItemsUpsertKeepsOneRow(t, initDB(t))
	})
	t.Run("ItemsUpsertKeepsMetadata", func(t *testing.T) {
		testItemsUpsertKeepsMetadata(t, initDB(t))
	})
	t.Run("OffersUpsertByCompositeKey", func(t *testing.T) {
		testOffersUpsertByCompositeKey(t, initDB(t))
	})
	t.Run("OffersDeleteMany", func(t *testing.T) {
		testOffersDeleteMany(t, initDB(t))
	})
	t.Run("OffersFindWithSeller", func(t *testing.T) {
		testOffersFindWithSeller(t, initDB(t))
	})
	t.Run("InsertManyEmpty", func(t *testing.T) {
		testInsertManyEmpty(t, initDB(t))
	})
	t.Run("Clear", func(t *testing.T) {
		testClear(t, initDB(t))
	})
}

func testCollections(t *testing.T, s Store) {
	ctx := context.Background()

	err := s.Collections().InsertMany(ctx, []schema.Collection{
		{ID: "1", Address: testNFT},
		{ID: "2", Address: testNFTAlt},
	})
	require.NoError(t, err)

	got, err := s.Collections().FindOne(ctx, ByCollectionID("2"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testNFTAlt, got.Address)

	missing, err := s.Collections().FindOne(ctx, ByCollectionID("3"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = s.Collections().UpsertOne(ctx, ByCollectionID("3"), schema.Collection{ID: "3", Address: testNFT})
	require.NoError(t, err)

	got, err = s.Collections().FindOne(ctx, ByCollectionID("3"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testNFT, got.Address)
}

func testItemsInsertAndFind(t *testing.T, s Store) {
	ctx := context.Background()

	item := buildTestItem(1, testOwner, "0")
	item.TokenID = largeTokenID
	name := "Genesis"
	item.Name = &name

	require.NoError(t, s.Items().InsertMany(ctx, []schema.Item{item, buildTestItem(2, testBuyer, "10")}))

	got, err := s.Items().FindOne(ctx, ByItemID(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(1), got.ItemID)
	assert.Equal(t, largeTokenID, got.TokenID)
	assert.Equal(t, testOwner, got.Owner)
	assert.Equal(t, "0", got.Price)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Genesis", *got.Name)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.Image)

	got, err = s.Items().FindOne(ctx, Filter{ColumnOwner: testBuyer})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(2), got.ItemID)
}

func testItemsUpdateFields(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Items().InsertMany(ctx, []schema.Item{
		buildTestItem(1, testOwner, "5"),
		buildTestItem(2, testOwner, "7"),
	}))

	err := s.Items().UpdateFields(ctx, ByItemID(1), Fields{ColumnOwner: testBuyer, ColumnPrice: "0"})
	require.NoError(t, err)

	got, err := s.Items().FindOne(ctx, ByItemID(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testBuyer, got.Owner)
	assert.Equal(t, "0", got.Price)
	assert.Equal(t, testNFT, got.ContractAddress)

	untouched, err := s.Items().FindOne(ctx, ByItemID(2))
	require.NoError(t, err)
	require.NotNil(t, untouched)
	assert.Equal(t, testOwner, untouched.Owner)
	assert.Equal(t, "7", untouched.Price)

	// updating an absent key is not an error
	require.NoError(t, s.Items().UpdateFields(ctx, ByItemID(99), Fields{ColumnPrice: "1"}))
}

func testItemsUpsertKeepsOneRow(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Items().UpsertOne(ctx, ByItemID(4), buildTestItem(4, testOwner, "0")))
	require.NoError(t, s.Items().UpsertOne(ctx, ByItemID(4), buildTestItem(4, testBuyer, "3")))

	got, err := s.Items().FindOne(ctx, ByItemID(4))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testBuyer, got.Owner)
	assert.Equal(t, "3", got.Price)

	// a second document for the same key would make this insert collide
	err = s.Items().InsertMany(ctx, []schema.Item{buildTestItem(4, testOwner, "0")})
	assert.Error(t, err)
}

func testItemsUpsertKeepsMetadata(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Items().UpsertOne(ctx, ByItemID(6), buildTestItem(6, testOwner, "0")))
	require.NoError(t, s.Items().UpdateFields(ctx, ByItemID(6), Fields{
		ColumnName:        "Genesis",
		ColumnDescription: "first drop",
		ColumnImage:       "ipfs://genesis.png",
	}))

	// a replayed registration carries no metadata
	require.NoError(t, s.Items().UpsertOne(ctx, ByItemID(6), buildTestItem(6, testBuyer, "5")))

	got, err := s.Items().FindOne(ctx, ByItemID(6))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testBuyer, got.Owner)
	assert.Equal(t, "5", got.Price)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Genesis", *got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, "first drop", *got.Description)
	require.NotNil(t, got.Image)
	assert.Equal(t, "ipfs://genesis.png", *got.Image)
}

func testOffersUpsertByCompositeKey(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Offers().UpsertOne(ctx, ByOffer(1, testBuyer), buildTestOffer(1, testBuyer, "10")))
	require.NoError(t, s.Offers().UpsertOne(ctx, ByOffer(1, testBuyer2), buildTestOffer(1, testBuyer2, "11")))

	accepted := buildTestOffer(1, testBuyer, "12")
	accepted.IsAccepted = true
	require.NoError(t, s.Offers().UpsertOne(ctx, ByOffer(1, testBuyer), accepted))

	got, err := s.Offers().FindOne(ctx, ByOffer(1, testBuyer))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "12", got.Price)
	assert.True(t, got.IsAccepted)

	other, err := s.Offers().FindOne(ctx, ByOffer(1, testBuyer2))
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, "11", other.Price)
	assert.False(t, other.IsAccepted)

	require.NoError(t, s.Offers().UpdateFields(ctx, ByOffer(1, testBuyer), Fields{ColumnIsAccepted: false, ColumnPrice: "13"}))
	got, err = s.Offers().FindOne(ctx, ByOffer(1, testBuyer))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "13", got.Price)
	assert.False(t, got.IsAccepted)
}

func testOffersDeleteMany(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Offers().InsertMany(ctx, []schema.Offer{
		buildTestOffer(1, testBuyer, "1"),
		buildTestOffer(1, testBuyer2, "2"),
		buildTestOffer(2, testBuyer, "3"),
	}))

	require.NoError(t, s.Offers().DeleteMany(ctx, ByItemID(1)))

	for _, offerer := range []string{testBuyer, testBuyer2} {
		got, err := s.Offers().FindOne(ctx, ByOffer(1, offerer))
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	kept, err := s.Offers().FindOne(ctx, ByOffer(2, testBuyer))
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, "3", kept.Price)

	// deleting with nothing to match is not an error
	require.NoError(t, s.Offers().DeleteMany(ctx, ByItemID(42)))
}

func testOffersFindWithSeller(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Offers().InsertMany(ctx, []schema.Offer{buildTestOffer(5, testBuyer, "1")}))

	got, err := s.Offers().FindOne(ctx, ByOfferWithSeller(5, testBuyer, testOwner))
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = s.Offers().FindOne(ctx, ByOfferWithSeller(5, testBuyer, testBuyer2))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testInsertManyEmpty(t *testing.T, s Store) {
	ctx := context.Background()

	assert.NoError(t, s.Collections().InsertMany(ctx, nil))
	assert.NoError(t, s.Items().InsertMany(ctx, []schema.Item{}))
	assert.NoError(t, s.Offers().InsertMany(ctx, nil))
}

func testClear(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Collections().InsertMany(ctx, []schema.Collection{{ID: "1", Address: testNFT}}))
	require.NoError(t, s.Items().InsertMany(ctx, []schema.Item{buildTestItem(1, testOwner, "0")}))
	require.NoError(t, s.Offers().InsertMany(ctx, []schema.Offer{buildTestOffer(1, testBuyer, "1")}))

	require.NoError(t, s.Clear(ctx))

	collection, err := s.Collections().FindOne(ctx, ByCollectionID("1"))
	require.NoError(t, err)
	assert.Nil(t, collection)

	item, err := s.Items().FindOne(ctx, ByItemID(1))
	require.NoError(t, err)
	assert.Nil(t, item)

	offer, err := s.Offers().FindOne(ctx, ByOffer(1, testBuyer))
	require.NoError(t, err)
	assert.Nil(t, offer)

	// clearing empty collections is fine
	require.NoError(t, s.Clear(ctx))
}
