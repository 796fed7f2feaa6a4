// Package scheduler drives the periodic authoritative refresh. Polling is
// gated on session and visibility: a hidden client stays quiet, and the first
// return to visibility closes the staleness gap with an immediate round.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"jackbear/internal/ledger"
	dErrors "jackbear/pkg/domain-errors"
)

// Reconciler runs one authoritative ledger round. Concurrent rounds coalesce
// inside the reconciler, so an explicit kick racing the tick costs nothing.
type Reconciler interface {
	Reconcile(ctx context.Context) (ledger.Stats, error)
}

// CatalogRefresher reloads the service, country, and package catalogs.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// SessionState reports whether a session is live. Polling stops without one.
type SessionState interface {
	Authenticated() bool
}

// Scheduler periodically refreshes catalog and ledger state until its context
// is cancelled.
type Scheduler struct {
	reconciler Reconciler
	catalog    CatalogRefresher
	session    SessionState
	interval   time.Duration
	logger     *slog.Logger

	visible atomic.Bool
	kick    chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the polling interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithLogger overrides the logger used for refresh errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Scheduler with required collaborators and options applied.
func New(reconciler Reconciler, catalog CatalogRefresher, session SessionState, opts ...Option) (*Scheduler, error) {
	if reconciler == nil || catalog == nil || session == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "reconciler, catalog, and session state are required")
	}
	s := &Scheduler{
		reconciler: reconciler,
		catalog:    catalog,
		session:    session,
		interval:   30 * time.Second,
		logger:     slog.Default(),
		kick:       make(chan struct{}, 1),
	}
	s.visible.Store(true)
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Start polls until ctx is cancelled. A failed round is logged and retried on
// the next tick; it never stops the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.visible.Load() || !s.session.Authenticated() {
				continue
			}
			if err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "periodic refresh failed", "error", err)
			}
		case <-s.kick:
			// Kicks come from explicit events, a settlement or a manual
			// refresh, so they run even while the surface is hidden. Only
			// the periodic tick is visibility-gated.
			if !s.session.Authenticated() {
				continue
			}
			if err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "requested refresh failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single refresh round: catalog first, then the ledger
// reconcile. Errors from both halves are aggregated.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	if err := s.catalog.Refresh(ctx); err != nil {
		errs = append(errs, fmt.Errorf("catalog refresh: %w", err))
	}
	if _, err := s.reconciler.Reconcile(ctx); err != nil {
		errs = append(errs, fmt.Errorf("ledger reconcile: %w", err))
	}
	return errors.Join(errs...)
}

// SetVisible gates periodic polling. Becoming visible after a hidden stretch
// queues an immediate round.
func (s *Scheduler) SetVisible(visible bool) {
	was := s.visible.Swap(visible)
	if visible && !was {
		s.ScheduleReconcile()
	}
}

// ScheduleReconcile queues one refresh round without blocking. Repeated calls
// while a round is already queued collapse into it.
func (s *Scheduler) ScheduleReconcile() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}
