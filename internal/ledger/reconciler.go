// Package ledger owns the credit balance and derived statistics. It merges
// optimistic local hints with periodic authoritative snapshots; the snapshot
// always wins.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"jackbear/internal/auth"
	"jackbear/internal/numbers"
	"jackbear/internal/platform/metrics"
	dErrors "jackbear/pkg/domain-errors"
)

// Transport is the slice of the outbound channel the reconciler needs.
type Transport interface {
	Get(ctx context.Context, path string, out any) error
}

// ProfileSource performs the authoritative profile read.
type ProfileSource interface {
	RefreshProfile(ctx context.Context) (auth.UserProfile, error)
}

// NumberSource exposes the number collection for derived statistics.
type NumberSource interface {
	Resync(ctx context.Context) error
	List() []numbers.Number
}

// Reconciler is the single writer of the credit snapshot. Reconcile performs
// one authoritative read of profile, number list, spend stats, and the first
// history page, and replaces every derived field atomically.
type Reconciler struct {
	client  Transport
	profile ProfileSource
	nums    NumberSource
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time

	group singleflight.Group

	mu           sync.RWMutex
	stats        Stats
	transactions []Transaction
	reconciled   bool
	pendingDelta int
	epoch        uint64
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithClock overrides time.Now for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewReconciler constructs a Reconciler over its three authoritative sources.
func NewReconciler(client Transport, profile ProfileSource, nums NumberSource, opts ...Option) (*Reconciler, error) {
	if client == nil || profile == nil || nums == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "transport, profile source, and number source are required")
	}
	r := &Reconciler{
		client:  client,
		profile: profile,
		nums:    nums,
		logger:  slog.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Reconcile runs one full authoritative read. Concurrent callers coalesce
// onto a single in-flight round and share its result, so the periodic tick
// and a manual refresh never double up on the wire.
func (r *Reconciler) Reconcile(ctx context.Context) (Stats, error) {
	v, err, shared := r.group.Do("reconcile", func() (any, error) {
		return r.reconcileOnce(ctx)
	})
	if shared && r.metrics != nil {
		r.metrics.ReconcileCoalesced.Inc()
	}
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}

func (r *Reconciler) reconcileOnce(ctx context.Context) (Stats, error) {
	start := r.clock()

	r.mu.RLock()
	epoch := r.epoch
	r.mu.RUnlock()

	var (
		profile auth.UserProfile
		spend   statsPayload
		history historyPayload
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = r.profile.RefreshProfile(gctx)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.nums.Resync(gctx); err != nil {
			return fmt.Errorf("numbers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.client.Get(gctx, "/credits/stats", &spend); err != nil {
			return fmt.Errorf("credit stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.client.Get(gctx, "/credits/history?page=1&limit=10", &history); err != nil {
			return fmt.Errorf("credit history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	list := r.nums.List()
	stats := deriveStats(profile, spend, list, start)

	txs := make([]Transaction, 0, len(history.Transactions))
	for _, p := range history.Transactions {
		txs = append(txs, p.toTransaction())
	}

	r.mu.Lock()
	if epoch != r.epoch {
		// Clear ran while the reads were in flight. The snapshot belongs
		// to the previous session and must not be installed.
		r.mu.Unlock()
		return stats, nil
	}
	r.stats = stats
	r.transactions = txs
	r.reconciled = true
	// The authoritative read overwrites every local prediction.
	r.pendingDelta = 0
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.Reconciliations.Inc()
		r.metrics.ReconcileDuration.Observe(r.clock().Sub(start).Seconds())
	}
	return stats, nil
}

// deriveStats folds the three authoritative reads into one snapshot.
func deriveStats(profile auth.UserProfile, spend statsPayload, list []numbers.Number, now time.Time) Stats {
	var active, received, expired, cancelled, receivedToday int
	dayStart := now.Truncate(24 * time.Hour)
	for _, n := range list {
		switch n.Status {
		case numbers.StatusWaiting:
			active++
		case numbers.StatusReceived:
			received++
			if !n.CreatedAt.Before(dayStart) {
				receivedToday++
			}
		case numbers.StatusExpired:
			expired++
		case numbers.StatusCancelled:
			cancelled++
		}
	}
	var successRate float64
	if settled := received + expired + cancelled; settled > 0 {
		successRate = float64(received) / float64(settled)
	}
	return Stats{
		Credits:       profile.Credits,
		TotalSpent:    spend.TotalSpent,
		ActiveNumbers: active,
		TotalNumbers:  len(list),
		ReceivedToday: receivedToday,
		SuccessRate:   successRate,
		ReconciledAt:  now,
	}
}

// Stats returns the last reconciled snapshot, including the current pending
// prediction hint.
func (r *Reconciler) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.stats
	s.PendingDelta = r.pendingDelta
	return s
}

// Transactions returns the last reconciled history page, newest first.
func (r *Reconciler) Transactions() []Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Transaction(nil), r.transactions...)
}

// History fetches an arbitrary page of the credit ledger. It does not touch
// the reconciled snapshot.
func (r *Reconciler) History(ctx context.Context, page, limit int) ([]Transaction, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	var payload historyPayload
	path := fmt.Sprintf("/credits/history?page=%d&limit=%d", page, limit)
	if err := r.client.Get(ctx, path, &payload); err != nil {
		return nil, 0, err
	}
	txs := make([]Transaction, 0, len(payload.Transactions))
	for _, p := range payload.Transactions {
		txs = append(txs, p.toTransaction())
	}
	return txs, payload.TotalPages, nil
}

// Balance performs the lightweight balance probe. It refreshes the credit
// field of the snapshot without a full reconcile; the pending hint is left
// alone so the probe composes with optimistic deltas.
func (r *Reconciler) Balance(ctx context.Context) (int, error) {
	var payload struct {
		Credits int `json:"credits"`
	}
	if err := r.client.Get(ctx, "/credits/balance", &payload); err != nil {
		return 0, err
	}
	r.mu.Lock()
	if r.reconciled {
		r.stats.Credits = payload.Credits
	}
	r.mu.Unlock()
	return payload.Credits, nil
}

// Predict records an optimistic local delta. It is a display hint only and is
// wiped by the next reconcile; it never substitutes for an authoritative read.
func (r *Reconciler) Predict(delta int) {
	r.mu.Lock()
	r.pendingDelta += delta
	r.mu.Unlock()
}

// CreditHint implements the numbers engine's soft balance precondition. The
// hint folds pending predictions in so a burst of optimistic spends trips the
// precondition early.
func (r *Reconciler) CreditHint() (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.reconciled {
		return 0, false
	}
	return r.stats.Credits + r.pendingDelta, true
}

// Clear drops the snapshot and starts a new reconciler lifetime so an
// in-flight reconcile cannot install its result afterwards. Used on logout
// and forced teardown.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	r.stats = Stats{}
	r.transactions = nil
	r.reconciled = false
	r.pendingDelta = 0
	r.epoch++
	r.mu.Unlock()
}
