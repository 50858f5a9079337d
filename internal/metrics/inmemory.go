package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthAttempts       map[string]uint64
	Registrations      uint64
	LoginsSucceeded    uint64
	LoginsFailed       uint64
	Upgrades           uint64
	APIKeysIssued      uint64
	APIKeysRevoked     uint64
	KeyInvalidations   uint64 // failed cache invalidations
	AccountsErased     uint64
	Calculations       map[string]uint64 // keyed by "op/status"
	HTTPRequests       uint64
	EventsPublished    uint64
	EventsDropped      uint64
	EventsProcessed    map[string]uint64
	AnalyticsQueueSize int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	registrations   uint64
	loginsSucceeded uint64
	loginsFailed    uint64
	upgrades        uint64
	apiKeysIssued   uint64
	apiKeysRevoked  uint64
	keyInvalidFails uint64
	accountsErased  uint64
	httpRequests    uint64
	eventsPublished uint64
	eventsDropped   uint64
	queueDepth      int64

	mu              sync.Mutex
	authAttempts    map[string]uint64
	calculations    map[string]uint64
	eventsProcessed map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		authAttempts:    make(map[string]uint64),
		calculations:    make(map[string]uint64),
		eventsProcessed: make(map[string]uint64),
	}
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		AuthAttempts:       copyCounts(m.authAttempts),
		Registrations:      atomic.LoadUint64(&m.registrations),
		LoginsSucceeded:    atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:       atomic.LoadUint64(&m.loginsFailed),
		Upgrades:           atomic.LoadUint64(&m.upgrades),
		APIKeysIssued:      atomic.LoadUint64(&m.apiKeysIssued),
		APIKeysRevoked:     atomic.LoadUint64(&m.apiKeysRevoked),
		KeyInvalidations:   atomic.LoadUint64(&m.keyInvalidFails),
		AccountsErased:     atomic.LoadUint64(&m.accountsErased),
		Calculations:       copyCounts(m.calculations),
		HTTPRequests:       atomic.LoadUint64(&m.httpRequests),
		EventsPublished:    atomic.LoadUint64(&m.eventsPublished),
		EventsDropped:      atomic.LoadUint64(&m.eventsDropped),
		EventsProcessed:    copyCounts(m.eventsProcessed),
		AnalyticsQueueSize: atomic.LoadInt64(&m.queueDepth),
	}
}

func (m *InMemoryRecorder) incKey(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

// IncAuthAttempt increments the auth outcome counter.
func (m *InMemoryRecorder) IncAuthAttempt(outcome string) {
	m.incKey(m.authAttempts, outcome)
}

// IncRegistration increments registrations.
func (m *InMemoryRecorder) IncRegistration() {
	atomic.AddUint64(&m.registrations, 1)
}

// IncLogin increments login counters.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == "success" {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncUpgrade increments premium upgrades.
func (m *InMemoryRecorder) IncUpgrade() {
	atomic.AddUint64(&m.upgrades, 1)
}

// IncAPIKeyIssued increments issued keys.
func (m *InMemoryRecorder) IncAPIKeyIssued() {
	atomic.AddUint64(&m.apiKeysIssued, 1)
}

// IncAPIKeyRevoked increments revoked keys.
func (m *InMemoryRecorder) IncAPIKeyRevoked() {
	atomic.AddUint64(&m.apiKeysRevoked, 1)
}

// IncAPIKeyInvalidationFailed increments failed cache invalidations.
func (m *InMemoryRecorder) IncAPIKeyInvalidationFailed() {
	atomic.AddUint64(&m.keyInvalidFails, 1)
}

// IncAccountErased increments erasures.
func (m *InMemoryRecorder) IncAccountErased() {
	atomic.AddUint64(&m.accountsErased, 1)
}

// IncCalculation increments the per-operation counter.
func (m *InMemoryRecorder) IncCalculation(op, status string) {
	m.incKey(m.calculations, op+"/"+status)
}

// ObserveHTTPRequest counts handled requests.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncAnalyticsEventPublished increments publish counters.
func (m *InMemoryRecorder) IncAnalyticsEventPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.eventsPublished, 1)
		return
	}
	atomic.AddUint64(&m.eventsDropped, 1)
}

// IncAnalyticsEventProcessed increments processed counters by status.
func (m *InMemoryRecorder) IncAnalyticsEventProcessed(status string) {
	m.incKey(m.eventsProcessed, status)
}

// ObserveAnalyticsBatchSize is not tracked in memory.
func (m *InMemoryRecorder) ObserveAnalyticsBatchSize(size int) {}

// ObserveAnalyticsBatchDuration is not tracked in memory.
func (m *InMemoryRecorder) ObserveAnalyticsBatchDuration(duration time.Duration) {}

// SetAnalyticsQueueDepth records the latest queue depth.
func (m *InMemoryRecorder) SetAnalyticsQueueDepth(depth int64) {
	atomic.StoreInt64(&m.queueDepth, depth)
}
