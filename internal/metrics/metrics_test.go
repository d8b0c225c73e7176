package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BadgerOps/transferwatch/internal/poller"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("list_transfers", 200, 20*time.Millisecond)
	m.ObserveRequest("list_transfers", 200, 30*time.Millisecond)
	m.ObserveRequest("health", 0, time.Second)

	body := scrape(t, m)
	assert.Contains(t, body, `transferwatch_gateway_requests_total{code="200",operation="list_transfers"} 2`)
	assert.Contains(t, body, `transferwatch_gateway_requests_total{code="0",operation="health"} 1`)
	assert.Contains(t, body, `transferwatch_gateway_request_duration_seconds_count{operation="list_transfers"} 2`)
}

func TestObservePollTracksConsecutiveFailures(t *testing.T) {
	m := New()
	now := time.Unix(1_700_000_000, 0)

	m.ObservePoll(poller.Attempt{Label: "transfers", StartedAt: now})
	m.ObservePoll(poller.Attempt{Label: "transfers", StartedAt: now, Err: errors.New("down")})
	m.ObservePoll(poller.Attempt{Label: "transfers", StartedAt: now, Err: errors.New("down")})

	body := scrape(t, m)
	assert.Contains(t, body, `transferwatch_poller_consecutive_failures{label="transfers"} 2`)
	assert.Contains(t, body, `transferwatch_poller_attempts_total{label="transfers",outcome="success"} 1`)
	assert.Contains(t, body, `transferwatch_poller_attempts_total{label="transfers",outcome="failure"} 2`)
	assert.Contains(t, body, `transferwatch_poller_last_success_timestamp_seconds{label="transfers"} 1.7e+09`)

	m.ObservePoll(poller.Attempt{Label: "transfers", StartedAt: now.Add(time.Minute)})
	assert.Contains(t, scrape(t, m), `transferwatch_poller_consecutive_failures{label="transfers"} 0`)
}

func TestObjectURLGauge(t *testing.T) {
	m := New()
	m.SetObjectURLs(2)
	assert.Contains(t, scrape(t, m), "transferwatch_dashboard_object_urls 2")
}
