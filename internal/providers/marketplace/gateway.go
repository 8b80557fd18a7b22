package marketplace

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/marketplace-mirror/internal/adapter"
	"github.com/feral-file/marketplace-mirror/internal/domain"
	"github.com/feral-file/marketplace-mirror/internal/logger"
	"github.com/feral-file/marketplace-mirror/internal/metrics"
)

// Gateway provides typed reads of the marketplace contract and its decoded event stream
//
//go:generate mockgen -source=gateway.go -destination=../../mocks/gateway.go -package=mocks -mock_names=Gateway=MockGateway
type Gateway interface {
	// CollectionCount returns the number of registered collections
	CollectionCount(ctx context.Context) (uint64, error)

	// ItemCount returns the number of registered items
	ItemCount(ctx context.Context) (uint64, error)

	// CollectionAt returns the contract address registered at a 1-based collection index
	CollectionAt(ctx context.Context, index uint64) (string, error)

	// ItemAt returns the item stored at a 1-based item index
	ItemAt(ctx context.Context, index uint64) (domain.ItemSlot, error)

	// OfferersOf returns the addresses that placed offers on an item.
	// The list may contain the same address more than once.
	OfferersOf(ctx context.Context, itemID uint64) ([]string, error)

	// OfferOf returns the offer of offerer on an item
	OfferOf(ctx context.Context, itemID uint64, offerer string) (domain.OfferSlot, error)

	// SubscribeEvents delivers decoded marketplace events to ch in log order until the
	// subscription is unsubscribed, ctx is done or the stream fails for good
	SubscribeEvents(ctx context.Context, ch chan<- domain.Event) (ethereum.Subscription, error)

	// Close closes the underlying connections
	Close()
}

// Config holds the configuration of the marketplace gateway
type Config struct {
	ChainID         domain.Chain // e.g., "eip155:1" for Ethereum mainnet
	ContractAddress string       // marketplace contract address

	// RetryInitialInterval is the first delay between retried reads
	RetryInitialInterval time.Duration
	// RetryMaxElapsed bounds the total time spent retrying one read or resubscription
	RetryMaxElapsed time.Duration
	// RetryMaxAttempts bounds the number of retries of one read, 0 means no bound besides RetryMaxElapsed
	RetryMaxAttempts uint64

	// RequestsPerSecond caps contract calls sent to the node, 0 means no cap
	RequestsPerSecond float64
	// RequestBurst is the number of calls allowed above the steady rate, at least 1
	RequestBurst int
}

const (
	defaultRetryInitialInterval = 500 * time.Millisecond
	defaultRetryMaxInterval     = 10 * time.Second
	defaultRetryMaxElapsed      = 2 * time.Minute
)

type gateway struct {
	chainID    domain.Chain
	address    common.Address
	abi        abi.ABI
	reader     adapter.EthClient
	subscriber adapter.EthClient
	clock      adapter.Clock
	cfg        Config
	limiter    *rate.Limiter
	closeOnce  sync.Once
}

// NewGateway creates a marketplace gateway.
// reader serves contract calls; subscriber serves log subscriptions and may be nil, in which case reader is used for both.
func NewGateway(cfg Config, reader adapter.EthClient, subscriber adapter.EthClient, clock adapter.Clock) (Gateway, error) {
	if reader == nil {
		return nil, fmt.Errorf("marketplace gateway requires an ethereum client")
	}
	address, err := domain.NormalizeAddress(cfg.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid marketplace contract address: %w", err)
	}
	parsed, err := parseABI()
	if err != nil {
		return nil, err
	}
	if subscriber == nil {
		subscriber = reader
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = defaultRetryInitialInterval
	}
	if cfg.RetryMaxElapsed <= 0 {
		cfg.RetryMaxElapsed = defaultRetryMaxElapsed
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.RequestBurst, 1))
	}

	return &gateway{
		chainID:    cfg.ChainID,
		address:    common.HexToAddress(address),
		abi:        parsed,
		reader:     reader,
		subscriber: subscriber,
		clock:      clock,
		cfg:        cfg,
		limiter:    limiter,
	}, nil
}

// newBackOff returns the retry policy shared by reads and resubscription
func (g *gateway) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.cfg.RetryInitialInterval
	b.MaxInterval = max(defaultRetryMaxInterval, g.cfg.RetryInitialInterval)
	b.MaxElapsedTime = g.cfg.RetryMaxElapsed
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	var policy backoff.BackOff = b
	if g.cfg.RetryMaxAttempts > 0 {
		policy = backoff.WithMaxRetries(b, g.cfg.RetryMaxAttempts)
	}
	return backoff.WithContext(policy, ctx)
}

// call packs a read-only contract call, executes it with retry and unpacks the result into out
func (g *gateway) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	var result []byte
	operation := func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		var err error
		result, err = g.reader.CallContract(ctx, ethereum.CallMsg{
			To:   &g.address,
			Data: data,
		}, nil)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		metrics.GatewayCallRetries.WithLabelValues(method).Inc()
		logger.WarnCtx(ctx, "Contract call failed, retrying",
			zap.String("method", method),
			zap.Error(err),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	if err := backoff.RetryNotify(operation, g.newBackOff(ctx), notifyOnError); err != nil {
		return fmt.Errorf("failed to call %s after %d retries: %w", method, attemptCount, err)
	}

	if err := g.abi.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return nil
}

func (g *gateway) callCount(ctx context.Context, method string) (uint64, error) {
	var count *big.Int
	if err := g.call(ctx, &count, method); err != nil {
		return 0, err
	}
	return domain.BigToUint64(count)
}

// CollectionCount returns the number of registered collections
func (g *gateway) CollectionCount(ctx context.Context) (uint64, error) {
	return g.callCount(ctx, methodCollectionCount)
}

// ItemCount returns the number of registered items
func (g *gateway) ItemCount(ctx context.Context) (uint64, error) {
	return g.callCount(ctx, methodItemCount)
}

// CollectionAt returns the contract address registered at a collection index
func (g *gateway) CollectionAt(ctx context.Context, index uint64) (string, error) {
	var address common.Address
	if err := g.call(ctx, &address, methodCollections, new(big.Int).SetUint64(index)); err != nil {
		return "", err
	}
	return domain.AddressHex(address), nil
}

// ItemAt returns the item stored at an item index
func (g *gateway) ItemAt(ctx context.Context, index uint64) (domain.ItemSlot, error) {
	var result itemResult
	if err := g.call(ctx, &result, methodItems, new(big.Int).SetUint64(index)); err != nil {
		return domain.ItemSlot{}, err
	}

	itemID, err := domain.BigToUint64(result.Id)
	if err != nil {
		return domain.ItemSlot{}, fmt.Errorf("item %d: %w", index, err)
	}
	if itemID == 0 {
		return domain.ItemSlot{}, fmt.Errorf("%w: item %d is not registered", domain.ErrInvalidSlot, index)
	}

	return domain.ItemSlot{
		ItemID:          itemID,
		ContractAddress: domain.AddressHex(result.NftContract),
		TokenID:         domain.BigToDecimal(result.TokenId),
		Owner:           domain.AddressHex(result.Owner),
		Price:           domain.BigToDecimal(result.Price),
	}, nil
}

// OfferersOf returns the addresses that placed offers on an item
func (g *gateway) OfferersOf(ctx context.Context, itemID uint64) ([]string, error) {
	var offerers []common.Address
	if err := g.call(ctx, &offerers, methodGetOfferers, new(big.Int).SetUint64(itemID)); err != nil {
		return nil, err
	}

	addresses := make([]string, 0, len(offerers))
	for _, offerer := range offerers {
		addresses = append(addresses, domain.AddressHex(offerer))
	}
	return addresses, nil
}

// OfferOf returns the offer of offerer on an item.
// The returned slot is keyed by the requested item and offerer.
func (g *gateway) OfferOf(ctx context.Context, itemID uint64, offerer string) (domain.OfferSlot, error) {
	normalized, err := domain.NormalizeAddress(offerer)
	if err != nil {
		return domain.OfferSlot{}, err
	}

	var result offerResult
	if err := g.call(ctx, &result, methodOffers, new(big.Int).SetUint64(itemID), common.HexToAddress(normalized)); err != nil {
		return domain.OfferSlot{}, err
	}

	return domain.OfferSlot{
		ItemID:          itemID,
		ContractAddress: domain.AddressHex(result.NftContract),
		TokenID:         domain.BigToDecimal(result.TokenId),
		Offerer:         normalized,
		Seller:          domain.AddressHex(result.Seller),
		Price:           domain.BigToDecimal(result.Price),
		IsAccepted:      result.IsAccepted,
	}, nil
}

// Close closes the connections
func (g *gateway) Close() {
	g.closeOnce.Do(func() {
		g.reader.Close()
		if g.subscriber != g.reader {
			g.subscriber.Close()
		}
		logger.Info("Marketplace gateway connections closed", zap.String("chain", string(g.chainID)))
	})
}
