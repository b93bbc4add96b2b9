package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lbnet "github.com/ultrabalancer/lbcheck/net"
)

func startServer(t *testing.T, o Options) *Server {
	t.Helper()

	s := New(o)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()

	rsp, err := http.Get(url)
	require.NoError(t, err)
	defer rsp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&body))
	return rsp, body
}

func TestIdentityContract(t *testing.T) {
	s := startServer(t, Options{})

	rsp, body := getJSON(t, s.URL()+"/api/status")
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Equal(t, s.Name(), rsp.Header.Get(lbnet.IdentityHeader))
	assert.Equal(t, s.Name(), body["backend"])
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "application/json", rsp.Header.Get("Content-Type"))
}

func TestNameDerivedFromPort(t *testing.T) {
	s := startServer(t, Options{})
	assert.Regexp(t, `^server-\d+$`, s.Name())
}

func TestConfiguredName(t *testing.T) {
	s := startServer(t, Options{Name: "alpha"})
	assert.Equal(t, "alpha", s.Name())
}

func TestAPIRoutes(t *testing.T) {
	s := startServer(t, Options{})

	_, users := getJSON(t, s.URL()+"/api/users")
	assert.Len(t, users["users"], 3)

	_, products := getJSON(t, s.URL()+"/api/products")
	assert.Len(t, products["products"], 3)
}

func TestUnknownPathListsEndpoints(t *testing.T) {
	s := startServer(t, Options{})

	rsp, body := getJSON(t, s.URL()+"/nonexistent")
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.ElementsMatch(t,
		[]interface{}{"/api/users", "/api/products", "/api/status"},
		body["endpoints"])
}

func TestHealthRoute(t *testing.T) {
	s := startServer(t, Options{})

	rsp, err := http.Get(s.URL() + "/health")
	require.NoError(t, err)
	defer rsp.Body.Close()

	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.Equal(t, s.Name(), rsp.Header.Get(lbnet.IdentityHeader))
}

func TestServedCountMonotonic(t *testing.T) {
	s := startServer(t, Options{})

	var last float64
	for i := 0; i < 5; i++ {
		_, body := getJSON(t, s.URL()+"/api/status")
		n := body["requests_served"].(float64)
		assert.Greater(t, n, last)
		last = n
	}

	assert.Equal(t, int64(5), s.ServedCount())
}
