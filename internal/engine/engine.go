// Package engine assembles the client engine: one transport channel, the
// session manager, the number collection, the catalogs, the credit ledger,
// the payment orchestrator, and the scheduler that keeps them reconciled.
package engine

import (
	"context"
	"log/slog"
	"time"

	"jackbear/internal/auth"
	"jackbear/internal/catalog"
	"jackbear/internal/ledger"
	"jackbear/internal/numbers"
	"jackbear/internal/payments"
	"jackbear/internal/platform/config"
	"jackbear/internal/platform/metrics"
	"jackbear/internal/scheduler"
	"jackbear/internal/transport"
)

// Engine owns every subsystem and the wiring between them. It is the single
// place where the teardown path and the login bootstrap are defined.
type Engine struct {
	client   *transport.Client
	auth     *auth.Manager
	numbers  *numbers.Engine
	catalog  *catalog.Store
	ledger   *ledger.Reconciler
	payments *payments.Orchestrator
	sched    *scheduler.Scheduler

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	client  *transport.Client
	creds   auth.CredentialStore
	clock   func() time.Time
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCredentialStore overrides the credential store chosen from config.
func WithCredentialStore(store auth.CredentialStore) Option {
	return func(o *options) {
		if store != nil {
			o.creds = store
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// New wires an Engine from configuration. The subsystems are mutually
// referential (transport asks the session for credentials, the ledger reads
// the number collection, settlements kick the scheduler), so construction
// threads the Engine itself through the narrow interfaces each one declares.
func New(cfg config.Engine, opts ...Option) (*Engine, error) {
	o := options{
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.creds == nil {
		if cfg.CredentialFile != "" {
			o.creds = auth.NewFileCredentialStore(cfg.CredentialFile)
		} else {
			o.creds = auth.NewMemoryCredentialStore()
		}
	}

	e := &Engine{
		logger:  o.logger,
		metrics: o.metrics,
	}

	client, err := transport.New(cfg.APIBaseURL, e,
		transport.WithLogger(o.logger),
		transport.WithMetrics(o.metrics),
		transport.WithTimeout(cfg.RequestTimeout),
		transport.WithUnauthenticatedHandler(e.ForceLogout),
	)
	if err != nil {
		return nil, err
	}
	e.client = client

	mgr, err := auth.NewManager(client, o.creds,
		auth.WithLogger(o.logger),
		auth.WithCredentialTTL(cfg.CredentialTTL),
		auth.WithClock(o.clock),
	)
	if err != nil {
		return nil, err
	}
	e.auth = mgr

	cat, err := catalog.NewStore(client,
		catalog.WithLogger(o.logger),
		catalog.WithMetrics(o.metrics),
	)
	if err != nil {
		return nil, err
	}
	e.catalog = cat

	nums, err := numbers.NewEngine(client,
		numbers.WithLogger(o.logger),
		numbers.WithMetrics(o.metrics),
		numbers.WithPriceHint(cat),
		numbers.WithCreditHint(e),
		numbers.WithSpendPredictor(e),
		numbers.WithReconcileTrigger(e),
	)
	if err != nil {
		return nil, err
	}
	e.numbers = nums

	rec, err := ledger.NewReconciler(client, mgr, nums,
		ledger.WithLogger(o.logger),
		ledger.WithMetrics(o.metrics),
		ledger.WithClock(o.clock),
	)
	if err != nil {
		return nil, err
	}
	e.ledger = rec

	pay, err := payments.NewOrchestrator(client, cat,
		payments.WithLogger(o.logger),
		payments.WithMetrics(o.metrics),
		payments.WithReconcileTrigger(e),
		payments.WithClock(o.clock),
	)
	if err != nil {
		return nil, err
	}
	e.payments = pay

	sched, err := scheduler.New(rec, cat, mgr,
		scheduler.WithInterval(cfg.ReconcileInterval),
		scheduler.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}
	e.sched = sched

	return e, nil
}

// Subsystem accessors. Callers drive operations through these; the Engine
// itself only owns lifecycle and cross-cutting flows.

func (e *Engine) Auth() *auth.Manager              { return e.auth }
func (e *Engine) Numbers() *numbers.Engine         { return e.numbers }
func (e *Engine) Catalog() *catalog.Store          { return e.catalog }
func (e *Engine) Ledger() *ledger.Reconciler       { return e.ledger }
func (e *Engine) Payments() *payments.Orchestrator { return e.payments }
func (e *Engine) Scheduler() *scheduler.Scheduler  { return e.sched }

// Login exchanges credentials, reopens the transport gate, and bootstraps
// local state with a full authoritative read.
func (e *Engine) Login(ctx context.Context, email, password string) (auth.UserProfile, error) {
	e.client.ResetGate()
	profile, err := e.auth.Login(ctx, email, password)
	if err != nil {
		return auth.UserProfile{}, err
	}
	e.bootstrap(ctx)
	return profile, nil
}

// Register creates an account and bootstraps exactly like Login.
func (e *Engine) Register(ctx context.Context, name, email, password string) (auth.UserProfile, error) {
	e.client.ResetGate()
	profile, err := e.auth.Register(ctx, name, email, password)
	if err != nil {
		return auth.UserProfile{}, err
	}
	e.bootstrap(ctx)
	return profile, nil
}

// bootstrap runs the first refresh after a credential install. Failures are
// logged, not returned: the session is established either way and the
// scheduler retries on its next tick.
func (e *Engine) bootstrap(ctx context.Context) {
	if err := e.catalog.Refresh(ctx); err != nil {
		e.logger.WarnContext(ctx, "catalog bootstrap failed", "error", err)
	}
	if _, err := e.ledger.Reconcile(ctx); err != nil {
		e.logger.WarnContext(ctx, "ledger bootstrap failed", "error", err)
	}
}

// Logout ends the session: best-effort server notification, then full local
// teardown. Safe to call without a live session.
func (e *Engine) Logout(ctx context.Context) {
	e.auth.Logout(ctx)
	e.teardown()
	e.client.ResetGate()
}

// ForceLogout tears local state down without touching the wire. The transport
// fires it when the authority rejects a credential; the gate stays open until
// the next Login.
func (e *Engine) ForceLogout() {
	e.logger.Warn("session rejected by authority, tearing down local state")
	e.auth.ClearLocal()
	e.teardown()
}

func (e *Engine) teardown() {
	e.numbers.Clear()
	e.ledger.Clear()
	e.payments.Clear()
}

// Start runs the scheduler until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	return e.sched.Start(ctx)
}

// SetVisible gates periodic polling on client visibility.
func (e *Engine) SetVisible(visible bool) {
	e.sched.SetVisible(visible)
}

// Refresh forces one synchronous authoritative round.
func (e *Engine) Refresh(ctx context.Context) (ledger.Stats, error) {
	if err := e.catalog.Refresh(ctx); err != nil {
		return ledger.Stats{}, err
	}
	return e.ledger.Reconcile(ctx)
}

// Token implements transport.CredentialSource by deferring to the session.
func (e *Engine) Token() (string, bool) {
	return e.auth.Token()
}

// CreditHint implements the number engine's soft balance precondition by
// deferring to the ledger.
func (e *Engine) CreditHint() (int, bool) {
	return e.ledger.CreditHint()
}

// Predict forwards optimistic spend hints from the number engine to the
// ledger.
func (e *Engine) Predict(delta int) {
	e.ledger.Predict(delta)
}

// ScheduleReconcile implements the reconcile trigger the number engine and
// payment orchestrator kick after acknowledged mutations.
func (e *Engine) ScheduleReconcile() {
	e.sched.ScheduleReconcile()
}
