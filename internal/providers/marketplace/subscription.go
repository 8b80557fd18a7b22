package marketplace

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/feral-file/marketplace-mirror/internal/domain"
	"github.com/feral-file/marketplace-mirror/internal/logger"
	"github.com/feral-file/marketplace-mirror/internal/metrics"
)

const logBufferSize = 128

// logPosition orders logs within the chain
type logPosition struct {
	block uint64
	index uint
}

func (p logPosition) before(q logPosition) bool {
	return p.block < q.block || (p.block == q.block && p.index < q.index)
}

// eventStream owns one upstream log subscription at a time and forwards decoded events
type eventStream struct {
	g     *gateway
	out   chan<- domain.Event
	query ethereum.FilterQuery

	logs     chan types.Log
	upstream ethereum.Subscription

	// startBlock is the head at subscription time, its logs are already reflected in chain state
	startBlock uint64
	last       logPosition
	delivered  bool
}

// SubscribeEvents subscribes to the marketplace logs and delivers decoded events to ch.
// The first upstream subscription is established before returning so setup failures surface here.
// Afterwards upstream errors trigger a resubscription with a catch-up read of the missed logs;
// the returned subscription fails only when resubscription gives up.
func (g *gateway) SubscribeEvents(ctx context.Context, ch chan<- domain.Event) (ethereum.Subscription, error) {
	header, err := g.subscriber.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}

	s := &eventStream{
		g:   g,
		out: ch,
		query: ethereum.FilterQuery{
			Addresses: []common.Address{g.address},
		},
		logs:       make(chan types.Log, logBufferSize),
		startBlock: header.Number.Uint64(),
	}

	if err := s.subscribe(ctx); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Subscribed to marketplace events",
		zap.String("chain", string(g.chainID)),
		zap.String("contract", g.address.Hex()),
		zap.Uint64("fromBlock", s.startBlock))

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer func() {
			s.upstream.Unsubscribe()
			logger.InfoCtx(ctx, "Unsubscribed from marketplace events")
		}()
		if err := s.loop(ctx, quit); !errors.Is(err, errStreamStopped) {
			return err
		}
		return nil
	}), nil
}

func (s *eventStream) subscribe(ctx context.Context) error {
	sub, err := s.g.subscriber.SubscribeFilterLogs(ctx, s.query, s.logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to filter logs: %w", err)
	}
	s.upstream = sub
	return nil
}

func (s *eventStream) loop(ctx context.Context, quit <-chan struct{}) error {
	for {
		select {
		case <-quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-s.upstream.Err():
			if !ok || err == nil {
				err = domain.ErrSubscriptionClosed
			}
			logger.WarnCtx(ctx, "Marketplace log subscription dropped, resubscribing", zap.Error(err))
			s.upstream.Unsubscribe()
			if err := s.resubscribe(ctx, quit); err != nil {
				return err
			}
		case vLog := <-s.logs:
			if err := s.forward(ctx, quit, vLog); err != nil {
				return err
			}
		}
	}
}

// resubscribe re-establishes the upstream subscription and replays the logs emitted while it was down
func (s *eventStream) resubscribe(ctx context.Context, quit <-chan struct{}) error {
	var missed []types.Log
	operation := func() error {
		select {
		case <-quit:
			return backoff.Permanent(errStreamStopped)
		default:
		}

		if err := s.subscribe(ctx); err != nil {
			return err
		}

		query := s.query
		query.FromBlock = new(big.Int).SetUint64(s.catchUpFrom())
		logs, err := s.g.subscriber.FilterLogs(ctx, query)
		if err != nil {
			s.upstream.Unsubscribe()
			return fmt.Errorf("failed to catch up missed logs: %w", err)
		}
		missed = logs
		return nil
	}

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Resubscription failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration))
	}

	b := s.g.newBackOff(ctx)
	if err := backoff.RetryNotify(operation, b, notifyOnError); err != nil {
		if errors.Is(err, errStreamStopped) {
			return err
		}
		return fmt.Errorf("failed to resubscribe after %d attempts: %w", attemptCount+1, err)
	}

	metrics.GatewayResubscriptions.Inc()
	logger.InfoCtx(ctx, "Resubscribed to marketplace events",
		zap.Uint64("catchUpFrom", s.catchUpFrom()),
		zap.Int("missedLogs", len(missed)))

	for _, vLog := range missed {
		if err := s.forward(ctx, quit, vLog); err != nil {
			return err
		}
	}
	return nil
}

// catchUpFrom returns the first block that may hold logs not yet delivered
func (s *eventStream) catchUpFrom() uint64 {
	if s.delivered {
		return s.last.block
	}
	return s.startBlock + 1
}

// forward decodes one log and delivers it, skipping removed, already delivered and undecodable logs
func (s *eventStream) forward(ctx context.Context, quit <-chan struct{}, vLog types.Log) error {
	if vLog.Removed {
		metrics.GatewayLogsSkipped.WithLabelValues("removed").Inc()
		logger.DebugCtx(ctx, "Skipping removed log",
			zap.String("txHash", vLog.TxHash.Hex()),
			zap.Uint64("block", vLog.BlockNumber))
		return nil
	}

	pos := logPosition{block: vLog.BlockNumber, index: vLog.Index}
	if s.delivered && !s.last.before(pos) {
		metrics.GatewayLogsSkipped.WithLabelValues("duplicate").Inc()
		return nil
	}

	ev, err := s.g.decodeLog(vLog)
	if err != nil {
		metrics.GatewayLogsSkipped.WithLabelValues("undecodable").Inc()
		logger.ErrorCtx(ctx, err,
			zap.String("message", "Error decoding marketplace log"),
			zap.String("txHash", vLog.TxHash.Hex()),
			zap.Uint("logIndex", vLog.Index))
		s.last, s.delivered = pos, true
		return nil
	}

	select {
	case s.out <- ev:
		s.last, s.delivered = pos, true
		return nil
	case <-quit:
		return errStreamStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// errStreamStopped signals that the consumer unsubscribed
var errStreamStopped = errors.New("event stream stopped")
