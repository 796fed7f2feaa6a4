package transport

import "sync"

// gateState represents the credential gate state.
type gateState int

const (
	// gateClosed means the credential is presumed valid and requests flow.
	gateClosed gateState = iota
	// gateOpen means the authority rejected the credential; every call fails
	// fast with an unauthenticated error until a new login resets the gate.
	gateOpen
)

// Gate short-circuits authenticated calls after a credential rejection.
// Unlike a failure-counting breaker, a single 401 trips it: the authority has
// told us the credential is dead, so retrying with the same one is pointless.
type Gate struct {
	mu    sync.Mutex
	state gateState
}

// NewGate returns a closed credential gate.
func NewGate() *Gate {
	return &Gate{state: gateClosed}
}

// Trip opens the gate. It returns true on the closed→open transition so the
// caller can fire the forced-logout handler exactly once per rejection.
func (g *Gate) Trip() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == gateOpen {
		return false
	}
	g.state = gateOpen
	return true
}

// Reset closes the gate. Called when a fresh credential is installed.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = gateClosed
}

// IsOpen reports whether calls should fail fast.
func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == gateOpen
}
