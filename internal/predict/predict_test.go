package predict

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/serverhealth/internal/domain"
)

func samples() []domain.Sample {
	return []domain.Sample{
		{CPU: 10, RAM: 40, Disk: 60},
		{CPU: 20, RAM: 41, Disk: 61},
		{CPU: 90, RAM: 42, Disk: 62},
	}
}

func serve(t *testing.T, path string, reply string, got *map[string]any) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, path, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/"})
}

func TestDisk(t *testing.T) {
	var body map[string]any
	c := serve(t, "/predict/disk", `{"current_usage":62,"daily_growth":1.5,"message":"full in 25 days"}`, &body)

	out, err := c.Disk(context.Background(), samples())
	require.NoError(t, err)
	assert.Equal(t, DiskForecast{CurrentUsage: 62, DailyGrowth: 1.5, Message: "full in 25 days"}, out)
	assert.Equal(t, []any{60.0, 61.0, 62.0}, body["values"])
	assert.Equal(t, 100.0, body["total_gb"])
}

func TestRAM(t *testing.T) {
	var body map[string]any
	c := serve(t, "/predict/ram", `{"current_usage":42,"trend":"rising","message":"watch it"}`, &body)

	out, err := c.RAM(context.Background(), samples())
	require.NoError(t, err)
	assert.Equal(t, "rising", out.Trend)
	assert.Equal(t, []any{40.0, 41.0, 42.0}, body["values"])
}

func TestAnomalies(t *testing.T) {
	var body map[string]any
	c := serve(t, "/anomaly/detect",
		`{"status":"warning","anomalies":[{"metric":"cpu","current":90,"mean":15,"severity":"high"}]}`, &body)

	out, err := c.Anomalies(context.Background(), samples())
	require.NoError(t, err)
	require.Len(t, out.Anomalies, 1)
	assert.Equal(t, "high", out.Anomalies[0].Severity)

	current := body["current"].(map[string]any)
	assert.Equal(t, 90.0, current["cpu_usage"])
	history := body["history"].([]any)
	require.Len(t, history, 3)
	assert.Equal(t, 90.0, history[0].(map[string]any)["cpu_usage"])
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).RAM(context.Background(), nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
}

func TestMissingBaseURL(t *testing.T) {
	_, err := New(Config{}).Disk(context.Background(), samples())
	assert.Error(t, err)
}
