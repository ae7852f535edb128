// Package storage is the PostgreSQL repository for servers, metric samples
// and bot users.
package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/serverhealth/core/logger"
)

// Store wraps a sqlx pool.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New returns a Store over db.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Ping checks connectivity for the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func observe(ctx context.Context, op string, start time.Time, err error, attrs ...slog.Attr) {
	if err == nil && !logger.ShouldSampleDebug() {
		return
	}
	attrs = append(attrs,
		slog.String("op", op),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	)
	if err != nil {
		logger.Warn(ctx, "db", "query", append(attrs, slog.String("err", err.Error()))...)
		return
	}
	logger.Debug(ctx, "db", "query", attrs...)
}
