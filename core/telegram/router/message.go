package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/serverhealth/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Conversation claims free text that belongs to an ongoing dialog.
type Conversation interface {
	// HandleText reports handled=false when no dialog owns the text;
	// route names the dialog that took it.
	HandleText(c tele.Context) (route string, handled bool, err error)
}

// TextRoutes routes plain text: active dialogs first, then command
// lookup, then the registry fallback.
func TextRoutes(conv Conversation, reg *tg.Registry) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()

		if conv != nil {
			route, handled, err := conv.HandleText(c)
			if handled || err != nil {
				logSummary(c, "text."+normalizeHandlerName(route), start, err, summary{
					extras: []slog.Attr{slog.String("route", route)},
				})
				return err
			}
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok {
				return handleWithSummary(c, "command."+normalizeHandlerName(key), func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", func() error { return fb(c) })
			}
		}

		logSummary(c, "unknown_text", start, nil, summary{status: "skip", outcome: "ok"})
		return nil
	}

	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}
