// Package payments orchestrates credit purchases: it opens checkout sessions
// against the authority's payment gateways and watches them settle. Settled
// credits only ever reach the balance through reconciliation; this package
// never mutates the ledger directly.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"jackbear/internal/catalog"
	"jackbear/internal/platform/metrics"
	dErrors "jackbear/pkg/domain-errors"
)

//go:generate mockgen -source=orchestrator.go -destination=mocks/mocks.go -package=mocks

// Transport is the slice of the outbound channel the orchestrator needs.
type Transport interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// PackageSource resolves purchasable credit bundles. The catalog store
// implements it.
type PackageSource interface {
	Packages() []catalog.CreditPackage
	Package(id string) (catalog.CreditPackage, bool)
}

// ReconcileTrigger requests an authoritative refresh after a settlement.
type ReconcileTrigger interface {
	ScheduleReconcile()
}

const pixDiscount = 0.95

// Orchestrator is the single writer of the payment session collection.
type Orchestrator struct {
	client   Transport
	packages PackageSource
	logger   *slog.Logger
	metrics  *metrics.Metrics
	trigger  ReconcileTrigger
	clock    func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session
	settled  map[string]struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithReconcileTrigger wires the post-settlement refresh.
func WithReconcileTrigger(trigger ReconcileTrigger) Option {
	return func(o *Orchestrator) {
		o.trigger = trigger
	}
}

// WithClock overrides time.Now for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewOrchestrator constructs an Orchestrator over the outbound channel and a
// package catalog.
func NewOrchestrator(client Transport, packages PackageSource, opts ...Option) (*Orchestrator, error) {
	if client == nil || packages == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "transport and package source are required")
	}
	o := &Orchestrator{
		client:   client,
		packages: packages,
		logger:   slog.Default(),
		clock:    time.Now,
		sessions: make(map[string]Session),
		settled:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// Packages lists the purchasable credit bundles.
func (o *Orchestrator) Packages() []catalog.CreditPackage {
	return o.packages.Packages()
}

// Quote returns the amount the gateway will charge for a package. PIX carries
// an upfront discount; every other gateway charges list price.
func (o *Orchestrator) Quote(packageID string, gateway Gateway) (float64, error) {
	if !gateway.Valid() {
		return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown payment gateway %q", gateway))
	}
	pkg, ok := o.packages.Package(packageID)
	if !ok {
		return 0, dErrors.New(dErrors.CodeNotFound, "credit package not found")
	}
	amount := pkg.Price
	if gateway == GatewayPix {
		amount *= pixDiscount
	}
	return amount, nil
}

// Purchase opens a checkout session for a credit package. The returned
// session is pending; settlement is observed through PollStatus.
func (o *Orchestrator) Purchase(ctx context.Context, packageID string, gateway Gateway, gatewayData map[string]any) (Session, error) {
	amount, err := o.Quote(packageID, gateway)
	if err != nil {
		return Session{}, err
	}
	pkg, _ := o.packages.Package(packageID)
	credits := pkg.Credits + pkg.BonusCredits

	body := map[string]any{
		"amount":   amount,
		"credits":  credits,
		"currency": "BRL",
	}
	if len(gatewayData) > 0 {
		body["paymentData"] = gatewayData
	}

	var payload sessionPayload
	path := fmt.Sprintf("/payments/%s/create", gateway)
	if err := o.client.Post(ctx, path, body, &payload); err != nil {
		return Session{}, fmt.Errorf("create payment session: %w", err)
	}
	if payload.ID == "" {
		return Session{}, dErrors.New(dErrors.CodeGateway, "gateway returned no session identifier")
	}

	session := Session{
		ID:          payload.ID,
		Gateway:     gateway,
		PackageID:   packageID,
		Amount:      amount,
		Credits:     credits,
		RedirectURL: payload.redirect(),
		Status:      parseSessionStatus(payload.Status),
		CreatedAt:   o.clock(),
	}

	o.mu.Lock()
	o.sessions[session.ID] = session
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.PaymentsCreated.WithLabelValues(string(gateway)).Inc()
	}
	o.logger.Info("payment session created",
		slog.String("session_id", session.ID),
		slog.String("gateway", string(gateway)),
		slog.String("package_id", packageID))
	return session, nil
}

// PollStatus reads the authoritative state of a session. The first time a
// session is observed completed it schedules one reconcile so the purchased
// credits land through the authoritative path.
func (o *Orchestrator) PollStatus(ctx context.Context, sessionID string) (Session, error) {
	o.mu.RLock()
	session, known := o.sessions[sessionID]
	o.mu.RUnlock()
	if !known {
		return Session{}, dErrors.New(dErrors.CodeNotFound, "payment session not found")
	}
	if session.Status.Terminal() {
		return session, nil
	}

	var payload sessionPayload
	path := fmt.Sprintf("/payments/%s/status", sessionID)
	if err := o.client.Get(ctx, path, &payload); err != nil {
		return Session{}, fmt.Errorf("poll payment status: %w", err)
	}

	status := parseSessionStatus(payload.Status)

	o.mu.Lock()
	session = o.sessions[sessionID]
	session.Status = status
	o.sessions[sessionID] = session
	_, alreadySettled := o.settled[sessionID]
	if status == SessionCompleted && !alreadySettled {
		o.settled[sessionID] = struct{}{}
	}
	o.mu.Unlock()

	if status == SessionCompleted && !alreadySettled {
		if o.metrics != nil {
			o.metrics.PaymentsSettled.Inc()
		}
		o.logger.Info("payment settled",
			slog.String("session_id", sessionID),
			slog.Int("credits", session.Credits))
		if o.trigger != nil {
			o.trigger.ScheduleReconcile()
		}
	}
	return session, nil
}

// Cancel abandons a pending session. The authority voids the checkout and the
// local session is terminalized as cancelled; a session that already settled
// or otherwise reached a terminal state cannot be abandoned.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) error {
	o.mu.RLock()
	session, known := o.sessions[sessionID]
	o.mu.RUnlock()
	if !known {
		return dErrors.New(dErrors.CodeNotFound, "payment session not found")
	}
	if session.Status.Terminal() {
		return dErrors.New(dErrors.CodeInvalidState, "payment session already settled")
	}

	path := fmt.Sprintf("/payments/%s/cancel", sessionID)
	if err := o.client.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("cancel payment session: %w", err)
	}

	o.mu.Lock()
	session = o.sessions[sessionID]
	session.Status = SessionCancelled
	o.sessions[sessionID] = session
	o.mu.Unlock()

	o.logger.Info("payment session cancelled", slog.String("session_id", sessionID))
	return nil
}

// Sessions returns a snapshot of every session opened this run, newest first.
func (o *Orchestrator) Sessions() []Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Clear drops every tracked session. Used on logout and forced teardown.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.sessions = make(map[string]Session)
	o.settled = make(map[string]struct{})
	o.mu.Unlock()
}
