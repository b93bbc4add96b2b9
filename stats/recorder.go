// Package stats implements the thread safe accounting of request
// outcomes during a load or verification session.
package stats

import (
	"sync"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/ultrabalancer/lbcheck/net"
)

// Outcome is the result of a single HTTP attempt. It is immutable and
// only aggregated, never retained.
type Outcome struct {

	// Endpoint is the request path the attempt targeted.
	Endpoint string

	// StatusCode of the response, 0 when no response arrived.
	StatusCode int

	// BackendID attributes the response to a backend instance,
	// empty when the response carried no attribution.
	BackendID string

	// Succeeded is true for 2xx responses.
	Succeeded bool

	// Latency of the attempt.
	Latency time.Duration

	// ErrorKind classifies failed attempts.
	ErrorKind net.ErrorKind
}

// Counts is a point in time snapshot of a session. Total is always the
// sum of Succeeded and Failed.
type Counts struct {
	Total     uint64
	Succeeded uint64
	Failed    uint64
	Backends  map[string]uint64
	Elapsed   time.Duration
}

// Rate returns the effective request rate of the snapshot.
func (c Counts) Rate() float64 {
	if c.Elapsed <= 0 {
		return 0
	}

	return float64(c.Total) / c.Elapsed.Seconds()
}

// Recorder accumulates request outcomes. It is safe for concurrent use
// by any number of workers. The zero value is not usable, use
// NewRecorder.
type Recorder struct {
	mu        sync.Mutex
	total     uint64
	succeeded uint64
	failed    uint64
	backends  map[string]uint64
	started   time.Time
	latency   metrics.Timer
}

// NewRecorder creates a Recorder with the session clock started.
func NewRecorder() *Recorder {
	return &Recorder{
		backends: make(map[string]uint64),
		started:  time.Now(),
		latency:  metrics.NewTimer(),
	}
}

// Record accounts one outcome. It increments the total count, exactly
// one of the success and failure counts, and the per backend count when
// the outcome carries an attribution. It never fails.
func (r *Recorder) Record(o Outcome) {
	r.mu.Lock()
	r.total++
	if o.Succeeded {
		r.succeeded++
	} else {
		r.failed++
	}

	if o.BackendID != "" {
		r.backends[o.BackendID]++
	}
	t := r.latency
	r.mu.Unlock()

	t.Update(o.Latency)
}

// Snapshot returns an internally consistent copy of the current counts.
func (r *Recorder) Snapshot() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	backends := make(map[string]uint64, len(r.backends))
	for id, n := range r.backends {
		backends[id] = n
	}

	return Counts{
		Total:     r.total,
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Backends:  backends,
		Elapsed:   time.Since(r.started),
	}
}

// Reset zeroes the counters and restarts the session clock.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = 0
	r.succeeded = 0
	r.failed = 0
	r.backends = make(map[string]uint64)
	r.started = time.Now()
	r.latency = metrics.NewTimer()
}

// LatencyPercentiles returns the p50, p95 and p99 request latencies of
// the session.
func (r *Recorder) LatencyPercentiles() (p50, p95, p99 time.Duration) {
	r.mu.Lock()
	t := r.latency
	r.mu.Unlock()

	ps := t.Percentiles([]float64{0.5, 0.95, 0.99})
	return time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2])
}

// MeanLatency returns the mean request latency of the session.
func (r *Recorder) MeanLatency() time.Duration {
	r.mu.Lock()
	t := r.latency
	r.mu.Unlock()

	return time.Duration(t.Mean())
}
