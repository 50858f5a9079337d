package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncAuthAttempt is a no-op.
func (n *NoopRecorder) IncAuthAttempt(outcome string) {}

// IncRegistration is a no-op.
func (n *NoopRecorder) IncRegistration() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(status string) {}

// IncUpgrade is a no-op.
func (n *NoopRecorder) IncUpgrade() {}

// IncAPIKeyIssued is a no-op.
func (n *NoopRecorder) IncAPIKeyIssued() {}

// IncAPIKeyRevoked is a no-op.
func (n *NoopRecorder) IncAPIKeyRevoked() {}

// IncAPIKeyInvalidationFailed is a no-op.
func (n *NoopRecorder) IncAPIKeyInvalidationFailed() {}

// IncAccountErased is a no-op.
func (n *NoopRecorder) IncAccountErased() {}

// IncCalculation is a no-op.
func (n *NoopRecorder) IncCalculation(op, status string) {}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncAnalyticsEventPublished is a no-op.
func (n *NoopRecorder) IncAnalyticsEventPublished(status string) {}

// IncAnalyticsEventProcessed is a no-op.
func (n *NoopRecorder) IncAnalyticsEventProcessed(status string) {}

// ObserveAnalyticsBatchSize is a no-op.
func (n *NoopRecorder) ObserveAnalyticsBatchSize(size int) {}

// ObserveAnalyticsBatchDuration is a no-op.
func (n *NoopRecorder) ObserveAnalyticsBatchDuration(duration time.Duration) {}

// SetAnalyticsQueueDepth is a no-op.
func (n *NoopRecorder) SetAnalyticsQueueDepth(depth int64) {}
