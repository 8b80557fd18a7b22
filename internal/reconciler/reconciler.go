package reconciler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/marketplace-mirror/internal/adapter"
	"github.com/feral-file/marketplace-mirror/internal/domain"
	"github.com/feral-file/marketplace-mirror/internal/logger"
	"github.com/feral-file/marketplace-mirror/internal/metrics"
	"github.com/feral-file/marketplace-mirror/internal/providers/marketplace"
	"github.com/feral-file/marketplace-mirror/internal/sink"
	"github.com/feral-file/marketplace-mirror/internal/store"
	"github.com/feral-file/marketplace-mirror/internal/store/schema"
)

// Reconciler keeps the mirror in step with live marketplace events
//
//go:generate mockgen -source=reconciler.go -destination=../mocks/reconciler.go -package=mocks -mock_names=Reconciler=MockReconciler
type Reconciler interface {
	// Run applies events from the gateway stream one at a time until the stream ends,
	// an event fails to apply or ctx is done
	Run(ctx context.Context) error
	// Apply applies a single event to the store and appends its audit line
	Apply(ctx context.Context, event domain.Event) error
}

type reconciler struct {
	gateway marketplace.Gateway
	store   store.Store
	sink    sink.Sink
	clock   adapter.Clock
}

// NewReconciler creates an event reconciler
func NewReconciler(gateway marketplace.Gateway, st store.Store, s sink.Sink, clock adapter.Clock) Reconciler {
	return &reconciler{
		gateway: gateway,
		store:   st,
		sink:    s,
		clock:   clock,
	}
}

// Run subscribes to the marketplace events and applies them in arrival order
func (r *reconciler) Run(ctx context.Context) error {
	events := make(chan domain.Event)
	sub, err := r.gateway.SubscribeEvents(ctx, events)
	if err != nil {
		return fmt.Errorf("failed to subscribe to marketplace events: %w", err)
	}
	defer sub.Unsubscribe()

	logger.InfoCtx(ctx, "Reconciler attached to marketplace events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-sub.Err():
			if !ok || err == nil {
				return domain.ErrSubscriptionClosed
			}
			return fmt.Errorf("marketplace event subscription failed: %w", err)
		case event := <-events:
			if err := r.Apply(ctx, event); err != nil {
				return err
			}
		}
	}
}

// Apply applies one event; the store write completes before Apply returns
func (r *reconciler) Apply(ctx context.Context, event domain.Event) error {
	kind := string(event.Kind())
	startTime := r.clock.Now()

	line, err := r.apply(ctx, event)
	if err != nil {
		metrics.ReconcilerErrors.WithLabelValues(kind).Inc()
		return fmt.Errorf("failed to apply %s: %w", event, err)
	}

	metrics.ReconcilerApplyLatency.WithLabelValues(kind).Observe(r.clock.Since(startTime).Seconds())
	metrics.ReconcilerEventsApplied.WithLabelValues(kind).Inc()
	metrics.ReconcilerLastBlock.Set(float64(event.Meta().BlockNumber))

	if line == "" {
		return nil
	}

	logger.DebugCtx(ctx, "Applied marketplace event",
		zap.String("kind", kind),
		zap.Uint64("block", event.Meta().BlockNumber),
		zap.String("txHash", event.Meta().TxHash))

	return r.sink.AppendLine(ctx, line)
}

// apply performs the store writes of an event and returns its audit line, empty when nothing was applied
func (r *reconciler) apply(ctx context.Context, event domain.Event) (string, error) {
	switch e := event.(type) {
	case domain.CollectionAdded:
		return r.applyCollectionAdded(ctx, e)
	case domain.ItemAdded:
		return r.applyItemAdded(ctx, e)
	case domain.ItemListed:
		return r.applyItemListed(ctx, e)
	case domain.ItemSold:
		return r.applyItemSold(ctx, e)
	case domain.ItemClaimed:
		return r.applyItemClaimed(ctx, e)
	case domain.OfferPlaced:
		return r.applyOfferPlaced(ctx, e)
	case domain.OfferAccepted:
		return r.applyOfferAccepted(ctx, e)
	case domain.OwnershipTransferred:
		return fmt.Sprintf("Ownership transferred: %s", e), nil
	default:
		return "", fmt.Errorf("%w: %T", domain.ErrUnknownEvent, event)
	}
}

func (r *reconciler) applyCollectionAdded(ctx context.Context, e domain.CollectionAdded) (string, error) {
	collection := schema.Collection{
		ID:      fmt.Sprint(e.ID),
		Address: e.Address,
	}
	if err := r.store.Collections().UpsertOne(ctx, store.ByCollectionID(collection.ID), collection); err != nil {
		return "", err
	}
	return fmt.Sprintf("Collection added: %s", e), nil
}

func (r *reconciler) applyItemAdded(ctx context.Context, e domain.ItemAdded) (string, error) {
	item := schema.Item{
		ItemID:          e.ItemID,
		ContractAddress: e.ContractAddress,
		TokenID:         e.TokenID,
		Owner:           e.Owner,
		Price:           domain.ZeroPrice,
	}
	if err := r.store.Items().UpsertOne(ctx, store.ByItemID(e.ItemID), item); err != nil {
		return "", err
	}
	return fmt.Sprintf("Item added: %s", e), nil
}

// applyItemListed sets the price and drops every offer made before the listing
func (r *reconciler) applyItemListed(ctx context.Context, e domain.ItemListed) (string, error) {
	if err := r.store.Items().UpdateFields(ctx, store.ByItemID(e.ItemID), store.Fields{store.ColumnPrice: e.Price}); err != nil {
		return "", err
	}
	if err := r.store.Offers().DeleteMany(ctx, store.ByItemID(e.ItemID)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Item %d listed for %s wei", e.ItemID, e.Price), nil
}

func (r *reconciler) applyItemSold(ctx context.Context, e domain.ItemSold) (string, error) {
	fields := store.Fields{
		store.ColumnOwner: e.Buyer,
		store.ColumnPrice: domain.ZeroPrice,
	}
	if err := r.store.Items().UpdateFields(ctx, store.ByItemID(e.ItemID), fields); err != nil {
		return "", err
	}
	return fmt.Sprintf("Item %d sold to %s", e.ItemID, e.Buyer), nil
}

func (r *reconciler) applyItemClaimed(ctx context.Context, e domain.ItemClaimed) (string, error) {
	if err := r.store.Items().UpdateFields(ctx, store.ByItemID(e.ItemID), store.Fields{store.ColumnOwner: e.Claimer}); err != nil {
		return "", err
	}
	if err := r.store.Offers().DeleteMany(ctx, store.ByItemID(e.ItemID)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Item %d claimed by %s", e.ItemID, e.Claimer), nil
}

// applyOfferPlaced resolves the seller on chain, since the event does not carry it.
// An offer by the same buyer against the same seller is refreshed, otherwise the pair's offer is replaced.
func (r *reconciler) applyOfferPlaced(ctx context.Context, e domain.OfferPlaced) (string, error) {
	slot, err := r.gateway.ItemAt(ctx, e.ItemID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve seller of item %d: %w", e.ItemID, err)
	}
	seller := slot.Owner

	existing, err := r.store.Offers().FindOne(ctx, store.ByOfferWithSeller(e.ItemID, e.Buyer, seller))
	if err != nil {
		return "", err
	}

	if existing != nil {
		fields := store.Fields{
			store.ColumnPrice:      e.Price,
			store.ColumnIsAccepted: false,
		}
		if err := r.store.Offers().UpdateFields(ctx, store.ByOfferWithSeller(e.ItemID, e.Buyer, seller), fields); err != nil {
			return "", err
		}
	} else {
		offer := schema.Offer{
			ItemID:     e.ItemID,
			Offerer:    e.Buyer,
			Seller:     seller,
			Price:      e.Price,
			IsAccepted: false,
		}
		if err := r.store.Offers().UpsertOne(ctx, store.ByOffer(e.ItemID, e.Buyer), offer); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("Offer placed: %s", e), nil
}

// applyOfferAccepted flags the pair's offer; an unknown offer is not an error and produces no audit line
func (r *reconciler) applyOfferAccepted(ctx context.Context, e domain.OfferAccepted) (string, error) {
	key := store.ByOffer(e.ItemID, e.Offerer)

	existing, err := r.store.Offers().FindOne(ctx, key)
	if err != nil {
		return "", err
	}
	if existing == nil {
		logger.DebugCtx(ctx, "Accepted offer is not mirrored, skipping",
			zap.Uint64("itemID", e.ItemID),
			zap.String("offerer", e.Offerer))
		return "", nil
	}

	if err := r.store.Offers().UpdateFields(ctx, key, store.Fields{store.ColumnIsAccepted: true}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Offer %d accepted", e.ItemID), nil
}

