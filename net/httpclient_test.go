package net

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(IdentityHeader, "server-1")
		w.Write([]byte(`{"backend":"server-1"}`))
	}))
	defer backend.Close()

	cli := NewClient(Options{Timeout: time.Second})
	defer cli.Close()

	rsp, err := cli.Get(context.Background(), backend.URL)
	require.NoError(t, err)
	defer rsp.Body.Close()

	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Equal(t, "server-1", BackendID(rsp))
}

func TestClientTimesOutSlowResponse(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer backend.Close()

	cli := NewClient(Options{Timeout: 100 * time.Millisecond})
	defer cli.Close()

	start := time.Now()
	rsp, err := cli.Get(context.Background(), backend.URL)
	if err == nil {
		rsp.Body.Close()
		t.Fatal("expected timeout")
	}

	assert.Equal(t, KindTimeout, ClassifyError(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestClientRespectsContext(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer backend.Close()

	cli := NewClient(Options{Timeout: 10 * time.Second})
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rsp, err := cli.Get(ctx, backend.URL)
	if err == nil {
		rsp.Body.Close()
		t.Fatal("expected context deadline to apply")
	}

	assert.Equal(t, KindTimeout, ClassifyError(err))
}
