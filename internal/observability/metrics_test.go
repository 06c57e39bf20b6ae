package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tasks/:taskId", "PATCH", 200, 4*time.Millisecond)
	m.RecordRequest("/api/tasks/:taskId", "PATCH", 200, 2*time.Millisecond)
	m.RecordRequest("/api/auth/login", "POST", 401, time.Millisecond)
	m.RecordError("/api/auth/login", "POST", "INVALID_CREDENTIALS")

	snap := m.Snapshot()
	require.Len(t, snap.Requests, 2)
	require.Equal(t, "/api/auth/login|POST|401", snap.Requests[0].Key)
	require.Equal(t, int64(2), snap.Requests[1].Count)
	require.InDelta(t, 3.0, snap.Requests[1].AvgLatencyMs, 0.001)
	require.Equal(t, []Counter{{Key: "/api/auth/login|POST|INVALID_CREDENTIALS", Count: 1}}, snap.Errors)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	require.Empty(t, m.Snapshot().Requests)
}

func TestRequestLoggerRecordsRouteTemplate(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/tasks/:id", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tasks/abc", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	snap := m.Snapshot()
	require.Len(t, snap.Requests, 1)
	require.Equal(t, "/tasks/:id|GET|204", snap.Requests[0].Key)
}
