// Package dispatch decides which dialog owns an incoming text message.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/analytics"
	"github.com/m3rciful/serverhealth/internal/wizard"
)

// Route names the branch that handled a message.
type Route string

const (
	RouteCancel    Route = "cancel"
	RouteAnalytics Route = "analytics"
	RouteWizard    Route = "wizard"
	// RouteMenu means no dialog claimed the text.
	RouteMenu Route = "menu"
)

const (
	thinkingText  = "⏳ Thinking..."
	cancelledText = "Adding the server was cancelled."
	// FailureText is sent when a collaborator fails mid-dialog.
	FailureText = "⚠️ Something went wrong. Please try again later."
)

// Sink delivers replies to the owner's chat.
type Sink interface {
	Send(ctx context.Context, m ui.Message) error
}

// Wizard is the add-server dialog.
type Wizard interface {
	Submit(ctx context.Context, owner int64, text string) (wizard.Outcome, error)
	Cancel(ctx context.Context, owner int64) error
}

// Analytics is the AI question/answer dialog.
type Analytics interface {
	// Load returns analytics.ErrNoSession when owner has no live session.
	Load(ctx context.Context, owner int64) (*analytics.Session, error)
	Answer(ctx context.Context, s *analytics.Session, question string) (ui.Message, error)
}

// Options tune a Dispatcher.
type Options struct {
	// ServersMenu renders the menu shown after a cancellation.
	ServersMenu func(ctx context.Context) ui.Message
}

// Dispatcher routes text in strict priority: cancel keyword, live analytics
// session, wizard session, then menu.
type Dispatcher struct {
	wizard      Wizard
	analytics   Analytics
	serversMenu func(ctx context.Context) ui.Message
}

// New builds a Dispatcher.
func New(w Wizard, a Analytics, opts Options) *Dispatcher {
	return &Dispatcher{wizard: w, analytics: a, serversMenu: opts.ServersMenu}
}

// IsCancel reports whether text is a cancel keyword.
func IsCancel(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/cancel", "cancel", "отмена":
		return true
	}
	return false
}

// HandleText routes text from owner and sends the replies to out. Errors
// from collaborators are reported to the user with FailureText and returned.
func (d *Dispatcher) HandleText(ctx context.Context, owner int64, text string, out Sink) (Route, error) {
	text = strings.TrimSpace(text)

	if IsCancel(text) {
		if err := d.Cancel(ctx, owner, out); err != nil {
			return RouteCancel, d.fail(ctx, out, RouteCancel, err)
		}
		return RouteCancel, nil
	}

	session, err := d.analytics.Load(ctx, owner)
	switch {
	case errors.Is(err, analytics.ErrNoSession):
		// Absent or expired; the wizard or the menu gets the text.
	case err != nil:
		return RouteAnalytics, d.fail(ctx, out, RouteAnalytics, err)
	default:
		if err := out.Send(ctx, ui.Text(thinkingText)); err != nil {
			return RouteAnalytics, err
		}
		msg, err := d.analytics.Answer(ctx, session, text)
		if err != nil {
			return RouteAnalytics, d.fail(ctx, out, RouteAnalytics, err)
		}
		return RouteAnalytics, out.Send(ctx, msg)
	}

	outcome, err := d.wizard.Submit(ctx, owner, text)
	if err != nil {
		return RouteWizard, d.fail(ctx, out, RouteWizard, err)
	}
	if outcome.Handled {
		return RouteWizard, sendAll(ctx, out, outcome.Messages)
	}
	return RouteMenu, nil
}

// Cancel drops the wizard session and shows the servers menu.
func (d *Dispatcher) Cancel(ctx context.Context, owner int64, out Sink) error {
	if err := d.wizard.Cancel(ctx, owner); err != nil {
		return err
	}
	msg := ui.Text(cancelledText)
	if d.serversMenu != nil {
		msg.Keyboard = d.serversMenu(ctx).Keyboard
	}
	return out.Send(ctx, msg)
}

func (d *Dispatcher) fail(ctx context.Context, out Sink, route Route, err error) error {
	logger.Warn(ctx, "dispatch", "route.failed",
		slog.String("route", string(route)),
		slog.String("err", err.Error()),
	)
	if sendErr := out.Send(ctx, ui.Text(FailureText)); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return fmt.Errorf("%s: %w", route, err)
}

func sendAll(ctx context.Context, out Sink, msgs []ui.Message) error {
	for _, m := range msgs {
		if err := out.Send(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
