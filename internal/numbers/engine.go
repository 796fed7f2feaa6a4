// Package numbers owns the collection of rented phone numbers and enforces
// the number lifecycle state machine.
package numbers

import (
	"context"
	"log/slog"
	"math"

	"jackbear/internal/platform/metrics"
	"jackbear/internal/sentinel"
	dErrors "jackbear/pkg/domain-errors"
)

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks Transport,CreditHint,PriceHint,ReconcileTrigger,SpendPredictor

// Transport is the slice of the outbound channel the engine needs.
type Transport interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// CreditHint exposes the locally known credit balance. It is a soft
// precondition only; the authority remains final.
type CreditHint interface {
	CreditHint() (credits int, ok bool)
}

// PriceHint exposes the catalog unit price of a service, when known.
type PriceHint interface {
	UnitPrice(serviceID string) (price float64, ok bool)
}

// ReconcileTrigger schedules a ledger reconciliation after a successful
// mutation. Triggers are fire-and-forget.
type ReconcileTrigger interface {
	ScheduleReconcile()
}

// SpendPredictor records optimistic credit deltas between reconciles. The
// deltas are display hints; the next reconcile replaces them wholesale.
type SpendPredictor interface {
	Predict(delta int)
}

// Engine drives request/poll/reactivate/cancel against the authority and is
// the sole writer of the number store.
//
// Overlap policy: a second poll, reactivate, or cancel for an id with one
// already in flight is rejected with an operation-in-progress error rather
// than queued.
type Engine struct {
	client    Transport
	store     *Store
	inflight  *inflight
	credits   CreditHint
	prices    PriceHint
	trigger   ReconcileTrigger
	predictor SpendPredictor
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCreditHint enables the soft balance precondition on requests.
func WithCreditHint(h CreditHint) Option {
	return func(e *Engine) {
		e.credits = h
	}
}

// WithPriceHint prices the soft balance precondition per service.
func WithPriceHint(h PriceHint) Option {
	return func(e *Engine) {
		e.prices = h
	}
}

// WithReconcileTrigger wires the post-mutation ledger reconciliation.
func WithReconcileTrigger(t ReconcileTrigger) Option {
	return func(e *Engine) {
		e.trigger = t
	}
}

// WithSpendPredictor wires optimistic balance hints for acknowledged
// mutations.
func WithSpendPredictor(p SpendPredictor) Option {
	return func(e *Engine) {
		e.predictor = p
	}
}

// NewEngine constructs the lifecycle engine over the given transport.
func NewEngine(client Transport, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "transport is required")
	}
	e := &Engine{
		client:   client,
		store:    NewStore(),
		inflight: newInflight(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// List returns the local collection, newest first.
func (e *Engine) List() []Number {
	return e.store.List()
}

// Get returns the local snapshot of one number.
func (e *Engine) Get(id string) (Number, bool) {
	return e.store.Get(id)
}

// ActiveCount returns how many numbers are currently waiting for a code.
func (e *Engine) ActiveCount() int {
	return e.store.ActiveCount()
}

// Request rents a new number for the given service. The balance check here
// is a hint to fail fast; a race that slips past it is settled by the
// authority, whose answer is final.
func (e *Engine) Request(ctx context.Context, serviceID, countryID string) (Number, error) {
	if serviceID == "" {
		return Number{}, dErrors.New(dErrors.CodeValidation, "service is required")
	}
	if err := e.checkBalance(serviceID); err != nil {
		return Number{}, err
	}

	body := map[string]string{"service_code": serviceID}
	if countryID != "" {
		body["country_code"] = countryID
	}
	gen := e.store.generation()

	var payload struct {
		ActiveNumber numberPayload `json:"active_number"`
	}
	if err := e.client.Post(ctx, "/sms/request-number", body, &payload); err != nil {
		return Number{}, err
	}
	if payload.ActiveNumber.ID == "" {
		return Number{}, dErrors.New(dErrors.CodeInternal, "authority returned no number")
	}

	n := payload.ActiveNumber.toNumber()
	// The server ack moves a freshly requested number straight to waiting.
	if n.Status == StatusRequested {
		n.Status = StatusWaiting
	}
	applied, live := e.store.apply(gen, n)
	if !live {
		// The owning session was torn down while the request was in flight;
		// the result is discarded rather than written to a dead store.
		return applied, nil
	}
	if e.metrics != nil {
		e.metrics.NumbersRequested.Inc()
		e.metrics.ActiveNumbers.Set(float64(e.store.ActiveCount()))
	}
	e.predictSpend(-e.creditCost(applied))
	e.scheduleReconcile()
	return applied, nil
}

// Poll refreshes the status of one number. It is idempotent and never
// resurrects a terminal number; polling a terminal number answers from the
// local snapshot without a network call.
func (e *Engine) Poll(ctx context.Context, id string) (Number, error) {
	local, ok := e.store.Get(id)
	if !ok {
		return Number{}, dErrors.New(dErrors.CodeNotFound, "")
	}
	if local.Status.Terminal() {
		return local, nil
	}
	if err := e.inflight.acquire(id); err != nil {
		return Number{}, dErrors.Wrap(err, dErrors.CodeOperationInProgress, "")
	}
	defer e.inflight.release(id)

	gen := e.store.generation()
	var payload struct {
		ActiveNumber numberPayload `json:"active_number"`
		Status       string        `json:"status"`
		Code         string        `json:"code"`
	}
	if err := e.client.Get(ctx, "/sms/status/"+id, &payload); err != nil {
		return Number{}, err
	}

	wire := payload.ActiveNumber
	if wire.ID == "" {
		wire.ID = id
	}
	if payload.Status != "" {
		wire.Status = payload.Status
	}
	if payload.Code != "" {
		wire.Code = payload.Code
	}
	if wire.Status == "" {
		wire.Status = string(local.Status)
	}
	n := wire.toNumber()
	fillFromLocal(&n, local)

	applied, live := e.store.apply(gen, n)
	if live && e.metrics != nil {
		e.metrics.ActiveNumbers.Set(float64(e.store.ActiveCount()))
	}
	return applied, nil
}

// Reactivate charges a new rental on an existing number and puts it back to
// waiting with its code cleared. Valid only from waiting or received.
func (e *Engine) Reactivate(ctx context.Context, id string) (Number, error) {
	local, ok := e.store.Get(id)
	if !ok {
		return Number{}, dErrors.New(dErrors.CodeNotFound, "")
	}
	if !local.Status.CanReactivate() {
		return Number{}, dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInvalidState, "")
	}
	if err := e.inflight.acquire(id); err != nil {
		return Number{}, dErrors.Wrap(err, dErrors.CodeOperationInProgress, "")
	}
	defer e.inflight.release(id)

	gen := e.store.generation()
	var payload numberPayload
	if err := e.client.Post(ctx, "/sms/reactivate/"+id, nil, &payload); err != nil {
		return Number{}, err
	}
	if payload.ID == "" {
		payload.ID = id
	}
	n := payload.toNumber()
	fillFromLocal(&n, local)
	if n.Status == StatusRequested {
		n.Status = StatusWaiting
	}
	// Reactivation always clears the previous code.
	if n.Status == StatusWaiting {
		n.LastCode = ""
	}

	applied, live := e.store.apply(gen, n)
	if !live {
		return applied, nil
	}
	if e.metrics != nil {
		e.metrics.NumbersReactivated.Inc()
		e.metrics.ActiveNumbers.Set(float64(e.store.ActiveCount()))
	}
	e.predictSpend(-e.creditCost(applied))
	e.scheduleReconcile()
	return applied, nil
}

// Cancel releases a waiting number. The authority returns no body; the local
// entry is marked cancelled on success.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	local, ok := e.store.Get(id)
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "")
	}
	if !local.Status.CanCancel() {
		return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInvalidState, "")
	}
	if err := e.inflight.acquire(id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeOperationInProgress, "")
	}
	defer e.inflight.release(id)

	gen := e.store.generation()
	if err := e.client.Post(ctx, "/sms/cancel/"+id, nil, nil); err != nil {
		return err
	}

	local.Status = StatusCancelled
	local.LastCode = ""
	if _, live := e.store.apply(gen, local); !live {
		return nil
	}
	if e.metrics != nil {
		e.metrics.NumbersCancelled.Inc()
		e.metrics.ActiveNumbers.Set(float64(e.store.ActiveCount()))
	}
	// Cancellation refunds on the authority side; hint the balance back up.
	e.predictSpend(e.creditCost(local))
	e.scheduleReconcile()
	return nil
}

// Resync replaces the whole local collection with the authoritative list of
// active numbers.
func (e *Engine) Resync(ctx context.Context) error {
	gen := e.store.generation()
	var payload []numberPayload
	if err := e.client.Get(ctx, "/sms/active-numbers", &payload); err != nil {
		return err
	}
	list := make([]Number, 0, len(payload))
	for _, p := range payload {
		list = append(list, p.toNumber())
	}
	if !e.store.replaceAll(gen, list) {
		return nil
	}
	if e.metrics != nil {
		e.metrics.ActiveNumbers.Set(float64(e.store.ActiveCount()))
	}
	return nil
}

// Clear tears the local collection down. In-flight results from before the
// call are discarded when they settle.
func (e *Engine) Clear() {
	e.store.clear()
	if e.metrics != nil {
		e.metrics.ActiveNumbers.Set(0)
	}
}

// checkBalance is the soft credit precondition. It only rejects when the
// local hints make the shortfall certain.
func (e *Engine) checkBalance(serviceID string) error {
	if e.credits == nil {
		return nil
	}
	credits, ok := e.credits.CreditHint()
	if !ok {
		return nil
	}
	needed := 1
	if e.prices != nil {
		if price, ok := e.prices.UnitPrice(serviceID); ok {
			needed = int(math.Ceil(price))
		}
	}
	if credits < needed {
		return dErrors.New(dErrors.CodeInsufficientCredits, "")
	}
	return nil
}

func (e *Engine) scheduleReconcile() {
	if e.trigger != nil {
		e.trigger.ScheduleReconcile()
	}
}

func (e *Engine) predictSpend(delta int) {
	if e.predictor != nil && delta != 0 {
		e.predictor.Predict(delta)
	}
}

// creditCost is the best local estimate of what a number costs in credits:
// the authority's reported cost when present, the catalog price otherwise.
func (e *Engine) creditCost(n Number) int {
	if n.Cost > 0 {
		return int(math.Ceil(n.Cost))
	}
	if e.prices != nil {
		if price, ok := e.prices.UnitPrice(n.ServiceID); ok && price > 0 {
			return int(math.Ceil(price))
		}
	}
	return 1
}

// fillFromLocal backfills wire fields some poll responses omit.
func fillFromLocal(n *Number, local Number) {
	if n.ServiceID == "" {
		n.ServiceID = local.ServiceID
	}
	if n.CountryID == "" {
		n.CountryID = local.CountryID
	}
	if n.PhoneDisplay == "" {
		n.PhoneDisplay = local.PhoneDisplay
	}
	if n.Cost == 0 {
		n.Cost = local.Cost
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = local.CreatedAt
	}
	if n.ExpiresAt.IsZero() {
		n.ExpiresAt = local.ExpiresAt
	}
}
