package loadgen

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttackerConstantRate(t *testing.T) {
	if testing.Short() {
		t.Skip("long running attack")
	}

	backend := identityBackend("server-1", 0)
	defer backend.Close()

	atk := NewAttacker(backend.URL, []string{"/", "/api/status"}, 50, time.Second)

	var report bytes.Buffer
	atk.Attack(&report, time.Second, "calibration")

	assert.Greater(t, atk.TotalRequests(), uint64(30))
	assert.InDelta(t, 1.0, atk.Success(), 0.001)

	cnt, ok := atk.CountStatus(http.StatusOK)
	assert.True(t, ok)
	assert.Greater(t, cnt, 0)
	assert.NotEmpty(t, report.String())
}
