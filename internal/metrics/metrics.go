// Package metrics defines the minimal metrics surface the service core
// depends on. Concrete backends (Datadog, test fakes) live in subpackages;
// the core never imports a vendor SDK directly.
package metrics

// Labels are free-form metric dimensions, e.g. {"endpoint": "execute"}.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use by request handlers.
type Backend interface {
	// IncCounter adds delta to a named counter.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records one sample of a named distribution.
	ObserveHistogram(name string, value float64, labels Labels)
}

// Metric names used across the service.
//
// APIRequestsTotal carries endpoint and status labels, ExecutionsTotal a
// status label (ok, error, engine_error), SchemaAnalysesTotal a kind label
// (folder, single).
const (
	APIRequestsTotal    = "api_requests_total"
	ExecutionsTotal     = "executions_total"
	ExecutionSeconds    = "execution_duration_seconds"
	SchemaAnalysesTotal = "schema_analyses_total"
	BlobsProcessedTotal = "blobs_processed_total"
	AnalysisSeconds     = "analysis_duration_seconds"
)

// Nop discards all observations. Used when metrics are disabled.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}

var _ Backend = Nop{}
