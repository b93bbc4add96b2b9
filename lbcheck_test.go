package lbcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrabalancer/lbcheck/verify"
)

func TestRunWritesReport(t *testing.T) {
	var id uint64
	balancer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddUint64(&id, 1)%2 == 0 {
			w.Header().Set("X-Server-Id", "server-a")
		} else {
			w.Header().Set("X-Server-Id", "server-b")
		}

		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer balancer.Close()

	var report strings.Builder
	err := Run(context.Background(), Options{
		Suite: verify.Options{
			BaseURL: balancer.URL,
			Timeout: 2 * time.Second,
		},
		ReportOutput: &report,
	})
	require.NoError(t, err)

	assert.Contains(t, report.String(), "1. TCP Connectivity")
	assert.Contains(t, report.String(), "Load Distribution")
	assert.Contains(t, report.String(), "passed")
}

func TestRunConnectivityFailure(t *testing.T) {
	var report strings.Builder
	err := Run(context.Background(), Options{
		Suite: verify.Options{
			BaseURL: "http://127.0.0.1:1",
			Timeout: time.Second,
		},
		ReportOutput: &report,
	})

	assert.ErrorIs(t, err, verify.ErrConnectivity)
	assert.Contains(t, report.String(), "TCP Connectivity")
}
