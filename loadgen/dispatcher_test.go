package loadgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrabalancer/lbcheck/stats"
)

func identityBackend(id string, delay time.Duration) *httptest.Server {
	var served int64
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}

		n := atomic.AddInt64(&served, 1)
		w.Header().Set("X-Server-Id", id)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","backend":"` + id + `","request_number":` + itoa(n) + `}`))
	}))
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	return string(buf[i:])
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	for _, tt := range []struct {
		name string
		o    Options
	}{{
		name: "malformed url",
		o:    Options{BaseURL: "://", Endpoints: []string{"/"}, Rate: 10, Workers: 2},
	}, {
		name: "relative url",
		o:    Options{BaseURL: "/just/a/path", Endpoints: []string{"/"}, Rate: 10, Workers: 2},
	}, {
		name: "zero rate",
		o:    Options{BaseURL: "http://localhost:8080", Endpoints: []string{"/"}, Workers: 2},
	}, {
		name: "zero workers",
		o:    Options{BaseURL: "http://localhost:8080", Endpoints: []string{"/"}, Rate: 10},
	}, {
		name: "no endpoints",
		o:    Options{BaseURL: "http://localhost:8080", Rate: 10, Workers: 2},
	}} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.o)
			assert.Error(t, err)
		})
	}
}

func TestDispatcherSustainsRate(t *testing.T) {
	backend := identityBackend("server-1", 0)
	defer backend.Close()

	const (
		rate     = 50
		duration = 1100 * time.Millisecond
	)

	d, err := New(Options{
		BaseURL:   backend.URL,
		Endpoints: []string{"/", "/api/users", "/api/status"},
		Rate:      rate,
		Workers:   10,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	c := d.Run(ctx)

	assert.Equal(t, c.Total, c.Succeeded+c.Failed)
	assert.Zero(t, c.Failed)

	// within a generous tolerance band of rate x duration
	assert.Greater(t, c.Total, uint64(30))
	assert.Less(t, c.Total, uint64(90))
	assert.Equal(t, c.Succeeded, c.Backends["server-1"])
}

func TestSlowBackendDoesNotStallSubmission(t *testing.T) {
	backend := identityBackend("server-1", 300*time.Millisecond)
	defer backend.Close()

	d, err := New(Options{
		BaseURL:        backend.URL,
		Endpoints:      []string{"/"},
		Rate:           30,
		Workers:        2,
		MaxQueueSize:   2,
		RequestTimeout: time.Second,
		GracePeriod:    2 * time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	c := d.Run(ctx)

	// the submission loop kept its cadence: tasks beyond the pool and
	// queue capacity were rejected instead of delaying the batches
	assert.Greater(t, c.Total, uint64(15))
	assert.Greater(t, c.Failed, uint64(0))
	assert.Equal(t, c.Total, c.Succeeded+c.Failed)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestStopDrainsInFlightRequests(t *testing.T) {
	backend := identityBackend("server-1", 200*time.Millisecond)
	defer backend.Close()

	d, err := New(Options{
		BaseURL:        backend.URL,
		Endpoints:      []string{"/"},
		Rate:           10,
		Workers:        5,
		RequestTimeout: time.Second,
		GracePeriod:    2 * time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	c := d.Run(ctx)

	// in-flight requests finished during the grace period
	assert.Greater(t, c.Succeeded, uint64(0))
	assert.Equal(t, c.Total, c.Succeeded+c.Failed)
}

func TestProtocolErrorsAreRecordedAsFailures(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer backend.Close()

	rec := stats.NewRecorder()
	d, err := New(Options{
		BaseURL:   backend.URL,
		Endpoints: []string{"/"},
		Rate:      20,
		Workers:   4,
		Recorder:  rec,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	c := d.Run(ctx)
	assert.Greater(t, c.Total, uint64(0))
	assert.Zero(t, c.Succeeded)
	assert.Equal(t, c.Total, c.Failed)
}

func TestConnectionErrorsDoNotAbortTheRun(t *testing.T) {
	// nothing listens on this address
	d, err := New(Options{
		BaseURL:        "http://127.0.0.1:1",
		Endpoints:      []string{"/"},
		Rate:           20,
		Workers:        4,
		RequestTimeout: 500 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	c := d.Run(ctx)
	assert.Greater(t, c.Total, uint64(0))
	assert.Equal(t, c.Total, c.Failed)
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://x:1/api", joinURL("http://x:1", "/api"))
	assert.Equal(t, "http://x:1/api", joinURL("http://x:1/", "api"))
	assert.Equal(t, "http://x:1/", joinURL("http://x:1", "/"))
}
