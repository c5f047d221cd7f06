package learnauth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful local logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected local logins. The audit event, not
	// the counter, distinguishes unknown identifier from secret mismatch.
	MetricLoginFailure
	// MetricLoginNotFound counts login failures caused by an unknown
	// identifier, internal-only companion to MetricLoginFailure.
	MetricLoginNotFound
	// MetricLoginMismatch counts login failures caused by a secret mismatch.
	MetricLoginMismatch
	// MetricLoginRateLimited counts logins refused by the attempt limiter.
	MetricLoginRateLimited
	// MetricRegistrationSuccess counts created principals.
	MetricRegistrationSuccess
	// MetricRegistrationDuplicate counts registrations refused on a
	// uniqueness violation.
	MetricRegistrationDuplicate
	// MetricSessionCreated counts minted sessions, local and federated.
	MetricSessionCreated
	// MetricSessionInvalidated counts destroyed sessions.
	MetricSessionInvalidated
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricInvalidSession counts authenticate calls rejected for any
	// session defect.
	MetricInvalidSession
	// MetricFederatedLoginSuccess counts completed federated logins.
	MetricFederatedLoginSuccess
	// MetricFederatedLoginFailure counts failed federated exchanges.
	MetricFederatedLoginFailure
	// MetricFederatedPrincipalCreated counts principals minted by
	// find-or-create during federated login.
	MetricFederatedPrincipalCreated
	// MetricFederatedPrincipalLinked counts local principals linked to a
	// federated identity by profile email.
	MetricFederatedPrincipalLinked
	// MetricCredentialResealed counts login-time strategy upgrades.
	MetricCredentialResealed
	// MetricSecretUpdated counts protected-resource writes.
	MetricSecretUpdated
	// MetricRateLimitHit counts limiter rejections across scopes.
	MetricRateLimitHit
	// MetricAuthenticateLatency is the authenticate-path latency histogram.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters and an optional latency histogram for the
// authenticate hot path. All operations are no-ops when disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig].
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether any metric is being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample for the authenticate histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthenticateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot returns a deep copy of all counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
