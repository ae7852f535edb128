package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/telegram/keyboard"
	"github.com/m3rciful/serverhealth/core/telegram/sender"
	"github.com/m3rciful/serverhealth/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("operation", action),
			slog.Any("err", err),
		)
		return run()
	}
	return err
}

func sendOptions(m ui.Message) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ParseMode(m.ParseMode)}
	if markup := keyboard.Markup(m.Keyboard); markup != nil {
		opts.ReplyMarkup = markup
	}
	return opts
}

// Send queues m as a new message to the current chat.
func Send(c tele.Context, m ui.Message) error {
	opts := sendOptions(m)
	err := sendAsync(c, "send.message", "sendMessage", func() error {
		return c.Send(m.Text, opts)
	})
	if err == nil {
		noteReply(c, opts.ReplyMarkup != nil)
	}
	return err
}

// SendAll queues messages in order; the first enqueue error stops the batch.
func SendAll(c tele.Context, msgs ...ui.Message) error {
	for _, m := range msgs {
		if err := Send(c, m); err != nil {
			return err
		}
	}
	return nil
}

// SendText queues a plain text message.
func SendText(c tele.Context, text string) error {
	return Send(c, ui.Text(text))
}

// Sink adapts the update's chat into a message sink for conversation handlers.
type Sink struct {
	c tele.Context
}

// SinkFor returns the sink bound to c's chat.
func SinkFor(c tele.Context) Sink { return Sink{c: c} }

// Send implements the conversation output port.
func (s Sink) Send(_ context.Context, m ui.Message) error {
	return Send(s.c, m)
}
