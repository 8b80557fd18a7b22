package backfill

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alitto/pond/v2"
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

// Orchestrator rebuilds the mirror from the current contract state
type Orchestrator interface {
	// Run reads every collection, item and offer slot and bulk loads them into the store.
	// Nothing is inserted unless every read succeeds.
	Run(ctx context.Context) (*Result, error)
}

// Config holds the backfill tunables
type Config struct {
	// MaxConcurrency bounds the in-flight reads per pool, 0 means unbounded
	MaxConcurrency int
}

// Result summarizes a successful backfill
type Result struct {
	Collections int
	Items       int
	Offers      int
	Elapsed     time.Duration
}

type orchestrator struct {
	cfg     Config
	gateway marketplace.Gateway
	store   store.Store
	sink    sink.Sink
	clock   adapter.Clock
}

// NewOrchestrator creates a backfill orchestrator
func NewOrchestrator(cfg Config, gateway marketplace.Gateway, st store.Store, s sink.Sink, clock adapter.Clock) Orchestrator {
	if cfg.MaxConcurrency < 0 {
		cfg.MaxConcurrency = 0
	}
	return &orchestrator{
		cfg:     cfg,
		gateway: gateway,
		store:   st,
		sink:    s,
		clock:   clock,
	}
}

// pools holds one pool per nesting level so a task waiting on nested tasks never occupies the workers those tasks need
type pools struct {
	collections pond.ResultPool[schema.Collection]
	items       pond.ResultPool[schema.Item]
	itemOffers  pond.ResultPool[[]schema.Offer]
	offers      pond.ResultPool[schema.Offer]
}

func (o *orchestrator) newPools(ctx context.Context) *pools {
	return &pools{
		collections: pond.NewResultPool[schema.Collection](o.cfg.MaxConcurrency, pond.WithContext(ctx)),
		items:       pond.NewResultPool[schema.Item](o.cfg.MaxConcurrency, pond.WithContext(ctx)),
		itemOffers:  pond.NewResultPool[[]schema.Offer](o.cfg.MaxConcurrency, pond.WithContext(ctx)),
		offers:      pond.NewResultPool[schema.Offer](o.cfg.MaxConcurrency, pond.WithContext(ctx)),
	}
}

func (p *pools) stopAndWait() {
	p.collections.StopAndWait()
	p.items.StopAndWait()
	p.itemOffers.StopAndWait()
	p.offers.StopAndWait()
}

// Run reads the whole contract state and loads it into the store
func (o *orchestrator) Run(ctx context.Context) (*Result, error) {
	startTime := o.clock.Now()

	collectionCount, err := o.gateway.CollectionCount(ctx)
	if err != nil {
		metrics.BackfillRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to read collection count: %w", err)
	}
	itemCount, err := o.gateway.ItemCount(ctx)
	if err != nil {
		metrics.BackfillRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to read item count: %w", err)
	}

	logger.InfoCtx(ctx, "Starting backfill",
		zap.Uint64("collections", collectionCount),
		zap.Uint64("items", itemCount),
		zap.Int("max_concurrency", o.cfg.MaxConcurrency))

	p := o.newPools(ctx)
	defer p.stopAndWait()

	collectionsGroup := o.submitCollections(ctx, p, collectionCount)
	itemsGroup := o.submitItems(ctx, p, itemCount)
	offersGroup := o.submitOffers(ctx, p, itemCount)

	// join-all: every group is waited for so no read outlives the run
	collections, collectionsErr := collectionsGroup.Wait()
	items, itemsErr := itemsGroup.Wait()
	offerLists, offersErr := offersGroup.Wait()
	if err := errors.Join(collectionsErr, itemsErr, offersErr); err != nil {
		metrics.BackfillRuns.WithLabelValues("failed").Inc()
		logger.ErrorCtx(ctx, err, zap.String("message", "Backfill aborted, nothing inserted"))
		return nil, fmt.Errorf("backfill aborted: %w", err)
	}

	var offers []schema.Offer
	for _, list := range offerLists {
		offers = append(offers, list...)
	}

	if err := o.load(ctx, collections, items, offers); err != nil {
		metrics.BackfillRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	result := &Result{
		Collections: len(collections),
		Items:       len(items),
		Offers:      len(offers),
		Elapsed:     o.clock.Since(startTime),
	}

	if err := o.sink.AppendLine(ctx, fmt.Sprintf("Backfill completed: %d collections, %d items, %d offers",
		result.Collections, result.Items, result.Offers)); err != nil {
		return nil, err
	}

	metrics.BackfillRuns.WithLabelValues("succeeded").Inc()
	metrics.BackfillDuration.Observe(result.Elapsed.Seconds())
	logger.InfoCtx(ctx, "Backfill completed",
		zap.Int("collections", result.Collections),
		zap.Int("items", result.Items),
		zap.Int("offers", result.Offers),
		zap.Duration("duration", result.Elapsed))

	return result, nil
}

// load replaces the mirror content with the fetched documents
func (o *orchestrator) load(ctx context.Context, collections []schema.Collection, items []schema.Item, offers []schema.Offer) error {
	if err := o.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear store before backfill insert: %w", err)
	}
	if err := o.store.Collections().InsertMany(ctx, collections); err != nil {
		return fmt.Errorf("failed to insert collections: %w", err)
	}
	if err := o.store.Items().InsertMany(ctx, items); err != nil {
		return fmt.Errorf("failed to insert items: %w", err)
	}
	if err := o.store.Offers().InsertMany(ctx, offers); err != nil {
		return fmt.Errorf("failed to insert offers: %w", err)
	}
	return nil
}

func (o *orchestrator) submitCollections(ctx context.Context, p *pools, count uint64) pond.ResultTaskGroup[schema.Collection] {
	group := p.collections.NewGroup()
	for i := uint64(1); i <= count; i++ {
		index := i
		group.SubmitErr(func() (schema.Collection, error) {
			address, err := o.gateway.CollectionAt(ctx, index)
			if err != nil {
				metrics.BackfillSlotErrors.WithLabelValues("collection").Inc()
				return schema.Collection{}, fmt.Errorf("failed to read collection %d: %w", index, err)
			}
			metrics.BackfillSlotsFetched.WithLabelValues("collection").Inc()

			if err := o.sink.AppendLine(ctx, fmt.Sprintf("Collection %d of %d fetched", index, count)); err != nil {
				return schema.Collection{}, err
			}
			return schema.Collection{
				ID:      strconv.FormatUint(index, 10),
				Address: address,
			}, nil
		})
	}
	return group
}

func (o *orchestrator) submitItems(ctx context.Context, p *pools, count uint64) pond.ResultTaskGroup[schema.Item] {
	group := p.items.NewGroup()
	for i := uint64(1); i <= count; i++ {
		index := i
		group.SubmitErr(func() (schema.Item, error) {
			slot, err := o.gateway.ItemAt(ctx, index)
			if err != nil {
				metrics.BackfillSlotErrors.WithLabelValues("item").Inc()
				return schema.Item{}, fmt.Errorf("failed to read item %d: %w", index, err)
			}
			metrics.BackfillSlotsFetched.WithLabelValues("item").Inc()

			if err := o.sink.AppendLine(ctx, fmt.Sprintf("Item %d added", slot.ItemID)); err != nil {
				return schema.Item{}, err
			}
			return schema.Item{
				ItemID:          slot.ItemID,
				ContractAddress: slot.ContractAddress,
				TokenID:         slot.TokenID,
				Owner:           slot.Owner,
				Price:           slot.Price,
			}, nil
		})
	}
	return group
}

func (o *orchestrator) submitOffers(ctx context.Context, p *pools, itemCount uint64) pond.ResultTaskGroup[[]schema.Offer] {
	group := p.itemOffers.NewGroup()
	for i := uint64(1); i <= itemCount; i++ {
		itemID := i
		group.SubmitErr(func() ([]schema.Offer, error) {
			return o.fetchItemOffers(ctx, p, itemID)
		})
	}
	return group
}

// fetchItemOffers reads the distinct offers of one item
func (o *orchestrator) fetchItemOffers(ctx context.Context, p *pools, itemID uint64) ([]schema.Offer, error) {
	offerers, err := o.gateway.OfferersOf(ctx, itemID)
	if err != nil {
		metrics.BackfillSlotErrors.WithLabelValues("offerers").Inc()
		return nil, fmt.Errorf("failed to read offerers of item %d: %w", itemID, err)
	}

	offerers = domain.DedupeAddresses(offerers)
	if len(offerers) == 0 {
		return nil, nil
	}

	group := p.offers.NewGroup()
	for _, offerer := range offerers {
		group.SubmitErr(func() (schema.Offer, error) {
			slot, err := o.gateway.OfferOf(ctx, itemID, offerer)
			if err != nil {
				metrics.BackfillSlotErrors.WithLabelValues("offer").Inc()
				return schema.Offer{}, fmt.Errorf("failed to read offer of %s on item %d: %w", offerer, itemID, err)
			}
			metrics.BackfillSlotsFetched.WithLabelValues("offer").Inc()

			if err := o.sink.AppendLine(ctx, fmt.Sprintf("Offer %d added", slot.ItemID)); err != nil {
				return schema.Offer{}, err
			}
			return schema.Offer{
				ItemID:     slot.ItemID,
				Offerer:    slot.Offerer,
				Seller:     slot.Seller,
				Price:      slot.Price,
				IsAccepted: slot.IsAccepted,
			}, nil
		})
	}
	return group.Wait()
}
