package health

import (
	"context"
	"fmt"
	"sync"

	"sigil/internal/market"
)

// Monitor tracks the provider's availability. A degraded provider skips
// the cycle, it never terminates the process; the next cycle re-checks.
type Monitor struct {
	source market.Source

	mu       sync.RWMutex
	degraded bool
	reason   string
}

func NewMonitor(source market.Source) *Monitor {
	return &Monitor{source: source}
}

// Check queries the provider status endpoint and updates the observable
// degraded flag. There are no retries inside the call.
func (m *Monitor) Check(ctx context.Context) (bool, string) {
	st, err := m.source.SystemStatus(ctx)
	var reason string
	switch {
	case err != nil:
		reason = fmt.Sprintf("status request failed: %v", err)
	case !st.Normal():
		reason = fmt.Sprintf("provider degraded (status=%d): %s", st.Status, st.Message)
	}

	m.mu.Lock()
	m.degraded = reason != ""
	m.reason = reason
	m.mu.Unlock()

	return reason == "", reason
}

// Degraded reports the flag set by the most recent Check.
func (m *Monitor) Degraded() (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.degraded, m.reason
}
