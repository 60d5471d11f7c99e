package obs

// Label is a key/value pair attached to measurements.
type Label struct {
	Key   string
	Value string
}

// L is shorthand for Label{Key: k, Value: v}.
func L(k, v string) Label { return Label{Key: k, Value: v} }

// Meter receives counters and histograms from the server.
// Implementations may no-op or bridge to a metrics system.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter is a Meter that discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}

// MeterOrNop returns m, or NopMeter when m is nil.
func MeterOrNop(m Meter) Meter {
	if m == nil {
		return NopMeter{}
	}
	return m
}

// Metric names emitted by httpx.
const (
	MetricConnsAccepted   = "httpx.conns.accepted"
	MetricAcceptErrors    = "httpx.accept.errors"
	MetricRequests        = "httpx.requests"
	MetricParseFailures   = "httpx.parse_failures"
	MetricRequestDuration = "httpx.request.duration_seconds"
)
