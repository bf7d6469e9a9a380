package sweep

// Metrics receives sweep outcomes. Implementations must be safe for
// concurrent use.
type Metrics interface {
	SweepCompleted(r Result)
	SweepFailed()
	// SweepSkipped records a scheduled run that did not start because another
	// instance held the lease.
	SweepSkipped()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) SweepCompleted(Result) {}
func (NopMetrics) SweepFailed()          {}
func (NopMetrics) SweepSkipped()         {}
