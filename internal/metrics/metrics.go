// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncAuthAttempt(outcome string) // outcome: "api_key", "bearer" or a failure reason

	// Account lifecycle metrics
	IncRegistration()
	IncLogin(status string) // status: "success" or "failed"
	IncUpgrade()
	IncAPIKeyIssued()
	IncAPIKeyRevoked()
	IncAPIKeyInvalidationFailed() // cached resolution of a replaced key could not be cleared
	IncAccountErased()

	// Operation gateway metrics
	IncCalculation(op, status string) // status: "success", "denied", "invalid"

	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Analytics pipeline metrics
	IncAnalyticsEventPublished(status string) // status: "success" or "dropped"
	IncAnalyticsEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveAnalyticsBatchSize(size int)
	ObserveAnalyticsBatchDuration(duration time.Duration)
	SetAnalyticsQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
