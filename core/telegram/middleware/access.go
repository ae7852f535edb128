package middleware

import (
	"log/slog"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/metrics"
	tghelpers "github.com/m3rciful/serverhealth/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AccessOptions lists who may talk to the bot.
type AccessOptions struct {
	AllowedIDs  []int64
	DenyMessage string
}

// AllowList rejects updates from users outside opts.AllowedIDs before any
// handler runs; the sender gets DenyMessage and no session is touched.
func AllowList(opts AccessOptions) tele.MiddlewareFunc {
	allowed := make(map[int64]struct{}, len(opts.AllowedIDs))
	for _, id := range opts.AllowedIDs {
		allowed[id] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			id := tghelpers.SenderID(c)
			if _, ok := allowed[id]; ok {
				return next(c)
			}
			metrics.Denied("access")
			logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied",
				slog.String("status", "denied"),
				slog.Int64("user_id", id),
			)
			if c.Callback() != nil {
				_ = c.Respond()
			}
			if c.Chat() == nil || opts.DenyMessage == "" {
				return nil
			}
			return tghelpers.SendText(c, opts.DenyMessage)
		}
	}
}
