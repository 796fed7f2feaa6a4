package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jackbear/internal/auth"
	"jackbear/internal/numbers"
)

// scriptedTransport answers canned payloads keyed by request path.
type scriptedTransport struct {
	mu        sync.Mutex
	responses map[string]any
	errs      map[string]error
	calls     map[string]int
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		responses: make(map[string]any),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (s *scriptedTransport) Get(_ context.Context, path string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[path]++
	if err, ok := s.errs[path]; ok {
		return err
	}
	payload, ok := s.responses[path]
	if !ok {
		return errors.New("unscripted path: " + path)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *scriptedTransport) callCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// fakeProfileSource returns a fixed profile, optionally blocking until
// released so coalescing can be observed.
type fakeProfileSource struct {
	profile auth.UserProfile
	err     error
	calls   atomic.Int64
	block   chan struct{}
}

func (f *fakeProfileSource) RefreshProfile(ctx context.Context) (auth.UserProfile, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return auth.UserProfile{}, ctx.Err()
		}
	}
	return f.profile, f.err
}

// fakeNumberSource serves a static number list.
type fakeNumberSource struct {
	list []numbers.Number
	err  error
}

func (f *fakeNumberSource) Resync(context.Context) error { return f.err }
func (f *fakeNumberSource) List() []numbers.Number {
	return append([]numbers.Number(nil), f.list...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultScript() *scriptedTransport {
	transport := newScriptedTransport()
	transport.responses["/credits/stats"] = map[string]any{
		"totalCredits": 120, "usedCredits": 20, "availableCredits": 100, "totalSpent": 20.0,
	}
	transport.responses["/credits/history?page=1&limit=10"] = map[string]any{
		"transactions": []map[string]any{
			{"id": "tx2", "type": "credit_purchase", "amount": 25.0, "credits": 50, "status": "pending"},
			{"id": "tx1", "type": "sms_usage", "amount": 1.0, "credits": -1, "status": "completed"},
		},
		"total": 2, "page": 1, "totalPages": 1,
	}
	return transport
}

func newTestReconciler(t *testing.T, transport Transport, profile ProfileSource, nums NumberSource, opts ...Option) *Reconciler {
	t.Helper()
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	r, err := NewReconciler(transport, profile, nums, opts...)
	require.NoError(t, err)
	return r
}

func TestReconcileAdoptsAuthoritativeSnapshot(t *testing.T) {
	transport := defaultScript()
	profile := &fakeProfileSource{profile: auth.UserProfile{ID: "u1", Credits: 100}}
	nums := &fakeNumberSource{list: []numbers.Number{
		{ID: "n1", Status: numbers.StatusWaiting},
		{ID: "n2", Status: numbers.StatusReceived, CreatedAt: time.Now()},
		{ID: "n3", Status: numbers.StatusExpired},
	}}
	r := newTestReconciler(t, transport, profile, nums)

	stats, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	require.Equal(t, 100, stats.Credits)
	require.InDelta(t, 20.0, stats.TotalSpent, 1e-9)
	require.Equal(t, 1, stats.ActiveNumbers)
	require.Equal(t, 3, stats.TotalNumbers)
	require.Equal(t, 1, stats.ReceivedToday)
	require.InDelta(t, 0.5, stats.SuccessRate, 1e-9)

	txs := r.Transactions()
	require.Len(t, txs, 2)
	require.Equal(t, KindPurchase, txs[0].Kind)
	require.Equal(t, TxPending, txs[0].Status)
	require.Equal(t, KindUsage, txs[1].Kind)
	require.Equal(t, -1, txs[1].CreditDelta)
}

func TestReconcileWipesPendingPredictions(t *testing.T) {
	transport := defaultScript()
	profile := &fakeProfileSource{profile: auth.UserProfile{Credits: 100}}
	r := newTestReconciler(t, transport, profile, &fakeNumberSource{})

	r.Predict(-3)
	r.Predict(-2)
	require.Equal(t, -5, r.Stats().PendingDelta)

	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	// Whatever was predicted locally, the balance is the authority's value.
	stats := r.Stats()
	require.Equal(t, 100, stats.Credits)
	require.Zero(t, stats.PendingDelta)
}

func TestCreditHintUnknownBeforeFirstReconcile(t *testing.T) {
	r := newTestReconciler(t, defaultScript(), &fakeProfileSource{}, &fakeNumberSource{})

	_, ok := r.CreditHint()
	require.False(t, ok)

	profile := &fakeProfileSource{profile: auth.UserProfile{Credits: 40}}
	r = newTestReconciler(t, defaultScript(), profile, &fakeNumberSource{})
	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)

	hint, ok := r.CreditHint()
	require.True(t, ok)
	require.Equal(t, 40, hint)

	r.Predict(-12)
	hint, ok = r.CreditHint()
	require.True(t, ok)
	require.Equal(t, 28, hint)
}

func TestConcurrentReconcilesCoalesce(t *testing.T) {
	transport := defaultScript()
	profile := &fakeProfileSource{
		profile: auth.UserProfile{Credits: 100},
		block:   make(chan struct{}),
	}
	r := newTestReconciler(t, transport, profile, &fakeNumberSource{})

	const callers = 8
	results := make(chan Stats, callers)
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats, err := r.Reconcile(context.Background())
			if err != nil {
				errs <- err
				return
			}
			results <- stats
		}()
	}

	// Wait until the in-flight round has started, then release it. Every
	// caller that arrived meanwhile must ride the same round.
	require.Eventually(t, func() bool {
		return profile.calls.Load() >= 1
	}, time.Second, time.Millisecond)
	close(profile.block)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, profile.calls.Load())
	require.Equal(t, 1, transport.callCount("/credits/stats"))
	for stats := range results {
		require.Equal(t, 100, stats.Credits)
	}
}

func TestReconcileFailurePropagatesAndKeepsSnapshot(t *testing.T) {
	transport := defaultScript()
	profile := &fakeProfileSource{profile: auth.UserProfile{Credits: 100}}
	r := newTestReconciler(t, transport, profile, &fakeNumberSource{})

	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	r.Predict(-4)

	transport.errs["/credits/stats"] = errors.New("authority down")
	_, err = r.Reconcile(context.Background())
	require.ErrorContains(t, err, "credit stats")

	// The previous snapshot and its pending hint survive a failed round.
	stats := r.Stats()
	require.Equal(t, 100, stats.Credits)
	require.Equal(t, -4, stats.PendingDelta)
}

func TestBalanceProbeRefreshesCreditsOnly(t *testing.T) {
	transport := defaultScript()
	profile := &fakeProfileSource{profile: auth.UserProfile{Credits: 100}}
	r := newTestReconciler(t, transport, profile, &fakeNumberSource{})

	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	r.Predict(-4)

	transport.responses["/credits/balance"] = map[string]any{"credits": 55}
	credits, err := r.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, 55, credits)

	// Only the credit field moves; the rest of the snapshot and the pending
	// hint stay put until the next full reconcile.
	stats := r.Stats()
	require.Equal(t, 55, stats.Credits)
	require.Equal(t, -4, stats.PendingDelta)
	require.InDelta(t, 20.0, stats.TotalSpent, 1e-9)
}

func TestHistoryFetchesRequestedPage(t *testing.T) {
	transport := defaultScript()
	transport.responses["/credits/history?page=3&limit=5"] = map[string]any{
		"transactions": []map[string]any{
			{"id": "tx9", "type": "refund", "amount": 1.0, "credits": 1, "status": "completed"},
		},
		"total": 11, "page": 3, "totalPages": 3,
	}
	r := newTestReconciler(t, transport, &fakeProfileSource{}, &fakeNumberSource{})

	txs, totalPages, err := r.History(context.Background(), 3, 5)
	require.NoError(t, err)
	require.Equal(t, 3, totalPages)
	require.Len(t, txs, 1)
	require.Equal(t, KindRefund, txs[0].Kind)

	// Out-of-range inputs fall back to the defaults.
	_, _, err = r.History(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, transport.callCount("/credits/history?page=1&limit=10"))
}

func TestClearDropsSnapshot(t *testing.T) {
	transport := defaultScript()
	profile := &fakeProfileSource{profile: auth.UserProfile{Credits: 100}}
	r := newTestReconciler(t, transport, profile, &fakeNumberSource{})

	_, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	r.Predict(-1)

	r.Clear()

	require.Equal(t, Stats{}, r.Stats())
	require.Empty(t, r.Transactions())
	_, ok := r.CreditHint()
	require.False(t, ok)
}

func TestClearDiscardsInFlightReconcile(t *testing.T) {
	transport := defaultScript()
	profile := &fakeProfileSource{
		profile: auth.UserProfile{Credits: 75},
		block:   make(chan struct{}),
	}
	r := newTestReconciler(t, transport, profile, &fakeNumberSource{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool {
		return profile.calls.Load() >= 1
	}, time.Second, time.Millisecond)

	// Teardown races the in-flight round; the round settles afterwards.
	r.Clear()
	close(profile.block)
	require.NoError(t, <-done)

	// The settled snapshot belongs to the dead session and was not installed.
	require.Equal(t, Stats{}, r.Stats())
	require.Empty(t, r.Transactions())
	_, ok := r.CreditHint()
	require.False(t, ok)
}

func TestSuccessRateZeroWithoutSettledNumbers(t *testing.T) {
	transport := defaultScript()
	profile := &fakeProfileSource{profile: auth.UserProfile{Credits: 100}}
	nums := &fakeNumberSource{list: []numbers.Number{
		{ID: "n1", Status: numbers.StatusWaiting},
	}}
	r := newTestReconciler(t, transport, profile, nums)

	stats, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.SuccessRate)
	require.Equal(t, 1, stats.ActiveNumbers)
}
