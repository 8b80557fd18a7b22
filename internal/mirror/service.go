package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/feral-file/marketplace-mirror/internal/backfill"
	"github.com/feral-file/marketplace-mirror/internal/logger"
	"github.com/feral-file/marketplace-mirror/internal/reconciler"
	"github.com/feral-file/marketplace-mirror/internal/store"
)

// Phase is the lifecycle stage of a mirror run
type Phase string

const (
	PhaseStarting    Phase = "starting"
	PhaseBackfilling Phase = "backfilling"
	PhaseReconciling Phase = "reconciling"
	PhaseStopped     Phase = "stopped"
	PhaseFailed      Phase = "failed"
)

// Service runs the mirror: clear, backfill, then reconcile live events
type Service interface {
	// Run blocks until ctx is done or a stage fails.
	// A cancelled ctx during reconciliation is a clean stop and returns nil.
	Run(ctx context.Context) error

	// Phase returns the current lifecycle stage
	Phase() Phase
}

type service struct {
	store        store.Store
	orchestrator backfill.Orchestrator
	reconciler   reconciler.Reconciler
	phase        atomic.Value
}

// NewService creates a mirror service
func NewService(st store.Store, orchestrator backfill.Orchestrator, rec reconciler.Reconciler) Service {
	s := &service{
		store:        st,
		orchestrator: orchestrator,
		reconciler:   rec,
	}
	s.phase.Store(PhaseStarting)
	return s
}

func (s *service) Phase() Phase {
	return s.phase.Load().(Phase)
}

func (s *service) Run(ctx context.Context) error {
	s.phase.Store(PhaseBackfilling)

	logger.InfoCtx(ctx, "Clearing mirror collections")
	if err := s.store.Clear(ctx); err != nil {
		s.phase.Store(PhaseFailed)
		return fmt.Errorf("failed to clear mirror: %w", err)
	}

	result, err := s.orchestrator.Run(ctx)
	if err != nil {
		s.phase.Store(PhaseFailed)
		return fmt.Errorf("backfill failed: %w", err)
	}
	logger.InfoCtx(ctx, "Backfill completed, attaching reconciler",
		zap.Int("collections", result.Collections),
		zap.Int("items", result.Items),
		zap.Int("offers", result.Offers),
		zap.Duration("elapsed", result.Elapsed))

	s.phase.Store(PhaseReconciling)
	err = s.reconciler.Run(ctx)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		s.phase.Store(PhaseStopped)
		logger.InfoCtx(ctx, "Reconciler stopped")
		return nil
	}

	s.phase.Store(PhaseFailed)
	return fmt.Errorf("reconciler stopped: %w", err)
}
