package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/tasks", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", "/tasks", 200, 20*time.Millisecond)
	m.ObserveRequest("GET", "/tasks", 401, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/tasks", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/tasks", "401")))
}

func TestCounters(t *testing.T) {
	m := New()
	m.Throttled("/users/login")
	m.EmailSent("welcome", "sent")
	m.EmailSent("welcome", "skipped")
	m.EmailSent("welcome", "skipped")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.throttled.WithLabelValues("/users/login")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.emails.WithLabelValues("welcome", "skipped")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("POST", "/tasks", 201, time.Millisecond)

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `taskmanager_http_requests_total{method="POST",route="/tasks",status="201"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
