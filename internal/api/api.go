// Package api exposes the HTTP endpoints used by the server agents.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/metrics"
	"github.com/m3rciful/serverhealth/internal/domain"
)

// Config controls the ingest listener.
type Config struct {
	Listen      string `yaml:"listen" envconfig:"API_LISTEN"`
	IngestToken string `yaml:"ingest_token" envconfig:"API_INGEST_TOKEN"`
}

// Enabled reports whether the listener should be started.
func (c Config) Enabled() bool { return strings.TrimSpace(c.Listen) != "" }

// Validate rejects an enabled listener without a token: /api/servers hands
// out SSH credentials.
func (c *Config) Validate() error {
	c.Listen = strings.TrimSpace(c.Listen)
	c.IngestToken = strings.TrimSpace(c.IngestToken)
	if c.Enabled() && c.IngestToken == "" {
		return fmt.Errorf("api.ingest_token is required when api.listen is set")
	}
	return nil
}

// Store is the persistence the API needs.
type Store interface {
	InsertSample(ctx context.Context, m domain.Sample) error
	ListServers(ctx context.Context) ([]domain.Server, error)
	Ping(ctx context.Context) error
}

// Pinger is a dependency the readiness check asks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Target is what an agent needs to reach a server.
type Target struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Host        string  `json:"host"`
	SSHUser     string  `json:"ssh_user"`
	SSHPassword *string `json:"ssh_password"`
	SSHPort     int     `json:"ssh_port"`
}

// Server serves the ingest API.
type Server struct {
	cfg      Config
	store    Store
	sessions Pinger
}

// New returns an API server. sessions may be nil when the readiness check
// should only cover the database.
func New(cfg Config, store Store, sessions Pinger) *Server {
	return &Server{cfg: cfg, store: store, sessions: sessions}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(observe)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Handle("/metrics", metrics.Handler())
	r.Get("/ready", s.ready)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.authorize)
		r.Post("/metrics", s.ingest)
		r.Get("/servers", s.servers)
	})
	return r
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "api", "listen", slog.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "api", "shutdown", slog.String("err", err.Error()))
		return err
	}
	logger.Info(ctx, "api", "stopped")
	return nil
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.IngestToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.IngestToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	var m domain.Sample
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if m.ServerID <= 0 {
		writeError(w, http.StatusBadRequest, "server_id is required")
		return
	}

	err := s.store.InsertSample(r.Context(), m)
	switch {
	case errors.Is(err, domain.ErrServerNotFound):
		writeError(w, http.StatusNotFound, "unknown server")
		return
	case err != nil:
		logger.Error(r.Context(), "api", "ingest.failed",
			slog.Int64("server_id", m.ServerID), slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	metrics.SampleIngested()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) servers(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListServers(r.Context())
	if err != nil {
		logger.Error(r.Context(), "api", "servers.failed", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	out := make([]Target, 0, len(list))
	for _, srv := range list {
		out = append(out, Target{
			ID:          srv.ID,
			Name:        srv.Name,
			Host:        srv.Host,
			SSHUser:     srv.SSHUser,
			SSHPassword: srv.SSHPassword,
			SSHPort:     srv.SSHPort,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ready reports whether the database and the session store answer.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		logger.Warn(r.Context(), "api", "ready.failed", slog.String("dep", "database"), slog.String("err", err.Error()))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if s.sessions != nil {
		if err := s.sessions.Ping(r.Context()); err != nil {
			logger.Warn(r.Context(), "api", "ready.failed", slog.String("dep", "sessions"), slog.String("err", err.Error()))
			writeError(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// observe records request metrics and one access log line.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		took := time.Since(start)
		metrics.ObserveAPI(r.Method, route, strconv.Itoa(status), took)
		logger.Debug(r.Context(), "api", "request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("code", status),
			slog.Duration("duration", took),
			slog.String("req_id", chiMiddleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
