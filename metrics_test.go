package learnauth

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics recorded a value")
	}

	snap := m.Snapshot()
	if len(snap.Counters) != 0 {
		t.Fatal("disabled snapshot not empty")
	}

	// Nil receiver must be safe too.
	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	nilMetrics.Observe(MetricAuthenticateLatency, time.Millisecond)
	if nilMetrics.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics returned a value")
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("login success = %d", got)
	}
	snap := m.Snapshot()
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("login failure = %d", snap.Counters[MetricLoginFailure])
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricSessionCreated)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionCreated); got != workers*perWorker {
		t.Fatalf("counter = %d, want %d", got, workers*perWorker)
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricAuthenticateLatency, 2*time.Millisecond)
	m.Observe(MetricAuthenticateLatency, 30*time.Millisecond)
	m.Observe(MetricAuthenticateLatency, 5*time.Second)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricAuthenticateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("bucket count = %d", len(buckets))
	}
	if buckets[0] != 1 {
		t.Fatalf("fast bucket = %d", buckets[0])
	}
	if buckets[3] != 1 {
		t.Fatalf("mid bucket = %d", buckets[3])
	}
	if buckets[histBucketCount-1] != 1 {
		t.Fatalf("overflow bucket = %d", buckets[histBucketCount-1])
	}

	// Observing other metric ids is ignored rather than corrupting state.
	m.Observe(MetricLoginSuccess, time.Millisecond)
	snap = m.Snapshot()
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("unexpected histogram for counter metric")
	}
}

func TestBucketIndex(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{time.Millisecond, 0},
		{5 * time.Millisecond, 0},
		{8 * time.Millisecond, 1},
		{20 * time.Millisecond, 2},
		{40 * time.Millisecond, 3},
		{90 * time.Millisecond, 4},
		{200 * time.Millisecond, 5},
		{400 * time.Millisecond, 6},
		{time.Minute, 7},
	}
	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}
