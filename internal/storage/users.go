package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// UpsertUser records that a Telegram user opened the bot.
func (s *Store) UpsertUser(ctx context.Context, telegramID int64, username, firstName *string) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "user.upsert", start, err, slog.Int64("user_id", telegramID)) }()

	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id, username, first_name, created_at, last_seen)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (telegram_id) DO UPDATE
		 SET username = EXCLUDED.username, first_name = EXCLUDED.first_name, last_seen = EXCLUDED.last_seen`,
		telegramID, username, firstName, now)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", telegramID, err)
	}
	return nil
}
