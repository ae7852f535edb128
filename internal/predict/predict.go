// Package predict is the client for the external forecast and anomaly service.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/telegram/netutil"
	"github.com/m3rciful/serverhealth/internal/domain"
)

// Config holds the prediction service settings.
type Config struct {
	BaseURL        string  `yaml:"base_url" envconfig:"PREDICTION_BASE_URL"`
	TimeoutSeconds int     `yaml:"timeout_seconds" envconfig:"PREDICTION_TIMEOUT_SECONDS"`
	DiskTotalGB    float64 `yaml:"disk_total_gb" envconfig:"PREDICTION_DISK_TOTAL_GB"`
}

// HistoryLimit is how many samples are sent with each request.
const HistoryLimit = 100

// Normalize fills defaults.
func (c *Config) Normalize() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.DiskTotalGB <= 0 {
		c.DiskTotalGB = 100
	}
}

// DiskForecast is the answer of /predict/disk.
type DiskForecast struct {
	CurrentUsage float64 `json:"current_usage"`
	DailyGrowth  float64 `json:"daily_growth"`
	Message      string  `json:"message"`
}

// RAMForecast is the answer of /predict/ram.
type RAMForecast struct {
	CurrentUsage float64 `json:"current_usage"`
	Trend        string  `json:"trend"`
	Message      string  `json:"message"`
}

// Anomaly is one flagged metric.
type Anomaly struct {
	Metric   string  `json:"metric"`
	Current  float64 `json:"current"`
	Mean     float64 `json:"mean"`
	Severity string  `json:"severity"`
}

// AnomalyReport is the answer of /anomaly/detect.
type AnomalyReport struct {
	Status    string    `json:"status"`
	Anomalies []Anomaly `json:"anomalies"`
}

// Point is the usage triple the anomaly detector consumes.
type Point struct {
	CPU  float64 `json:"cpu_usage"`
	RAM  float64 `json:"ram_usage"`
	Disk float64 `json:"disk_usage"`
}

// StatusError is returned for non-2xx answers.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("predict %s: unexpected status %d", e.Path, e.Status)
}

// Client calls the prediction service.
type Client struct {
	base    string
	http    *http.Client
	totalGB float64
}

// New builds a Client; an empty base URL is allowed and makes every call fail.
func New(cfg Config) *Client {
	cfg.Normalize()
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		totalGB: cfg.DiskTotalGB,
		http: netutil.NewClient(netutil.ClientOptions{
			Timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
			ResponseHeader: time.Duration(cfg.TimeoutSeconds) * time.Second,
		}),
	}
}

// Disk forecasts disk growth from samples ordered oldest first.
func (c *Client) Disk(ctx context.Context, samples []domain.Sample) (DiskForecast, error) {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		values = append(values, s.Disk)
	}
	var out DiskForecast
	err := c.post(ctx, "/predict/disk", map[string]any{"values": values, "total_gb": c.totalGB}, &out)
	return out, err
}

// RAM forecasts memory trend from samples ordered oldest first.
func (c *Client) RAM(ctx context.Context, samples []domain.Sample) (RAMForecast, error) {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		values = append(values, s.RAM)
	}
	var out RAMForecast
	err := c.post(ctx, "/predict/ram", map[string]any{"values": values}, &out)
	return out, err
}

// Anomalies checks the newest sample against the rest. samples are oldest
// first; the detector receives history newest first.
func (c *Client) Anomalies(ctx context.Context, samples []domain.Sample) (AnomalyReport, error) {
	history := make([]Point, 0, len(samples))
	for i := len(samples) - 1; i >= 0; i-- {
		s := samples[i]
		history = append(history, Point{CPU: s.CPU, RAM: s.RAM, Disk: s.Disk})
	}
	var current *Point
	if len(history) > 0 {
		current = &history[0]
	}
	var out AnomalyReport
	err := c.post(ctx, "/anomaly/detect", map[string]any{"current": current, "history": history}, &out)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, body, dst any) (err error) {
	start := time.Now()
	defer func() {
		attrs := []slog.Attr{
			slog.String("route", path),
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			logger.Warn(ctx, "predict", "request", append(attrs, slog.String("err", err.Error()))...)
			return
		}
		logger.Info(ctx, "predict", "request", attrs...)
	}()

	if c.base == "" {
		return fmt.Errorf("predict %s: base url not configured", path)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("predict %s: encode: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("predict %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("predict %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Path: path, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("predict %s: decode: %w", path, err)
	}
	return nil
}
