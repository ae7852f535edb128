package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/serverhealth/core/logger"
)

type loggedStore struct {
	next Store
}

// WithLogging wraps next so every call is logged under the "session" component.
// Reads and successful writes log at debug; failures at warn.
func WithLogging(next Store) Store {
	return loggedStore{next: next}
}

func (s loggedStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	start := time.Now()
	found, err := s.next.Get(ctx, key, dst)
	s.log(ctx, "session.get", key, start, err, slog.Bool("found", found))
	return found, err
}

func (s loggedStore) Put(ctx context.Context, key string, v any, ttl time.Duration) error {
	start := time.Now()
	err := s.next.Put(ctx, key, v, ttl)
	s.log(ctx, "session.put", key, start, err, slog.Duration("ttl", ttl))
	return err
}

func (s loggedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.log(ctx, "session.delete", key, start, err)
	return err
}

func (s loggedStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.next.Ping(ctx)
	s.log(ctx, "session.ping", "", start, err)
	return err
}

func (s loggedStore) log(ctx context.Context, event, key string, start time.Time, err error, extra ...slog.Attr) {
	attrs := append([]slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("key", key),
		slog.Duration("duration", logger.Took(start)),
	}, extra...)
	if err != nil {
		logger.Warn(ctx, "session", event, append(attrs, slog.Any("err", err))...)
		return
	}
	logger.Debug(ctx, "session", event, attrs...)
}
