package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for the session subsystem.
type Metrics struct {
	mu             sync.Mutex
	verifications  map[string]int64
	staleWrites    int64
	gatewayDenials int64
	redirects      map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		verifications: make(map[string]int64),
		redirects:     make(map[string]int64),
	}
}

// RecordVerification counts a finished verification by outcome.
func (m *Metrics) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications[outcome]++
}

// RecordStaleWrite counts a suppressed stale verification result.
func (m *Metrics) RecordStaleWrite() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleWrites++
}

// RecordGatewayDenial counts a 401 observed by the network gateway.
func (m *Metrics) RecordGatewayDenial() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gatewayDenials++
}

// RecordRedirect counts a guard redirect by destination.
func (m *Metrics) RecordRedirect(target string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirects[target]++
}

// StaleWrites returns the suppressed-write count.
func (m *Metrics) StaleWrites() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staleWrites
}

// GatewayDenials returns the gateway 401 count.
func (m *Metrics) GatewayDenials() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gatewayDenials
}
