package middleware

import (
	tghelpers "github.com/m3rciful/serverhealth/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// MessageMetricsMiddleware starts fresh reply counters for the update.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tghelpers.ResetReplies(c)
		return next(c)
	}
}

// GetCounters reports how many replies the update produced and whether any carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	return tghelpers.Replies(c)
}
