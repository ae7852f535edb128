// Package bot wires the menus, callbacks and dialogs onto the telegram core.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/serverhealth/core/logger"
	tg "github.com/m3rciful/serverhealth/core/telegram"
	"github.com/m3rciful/serverhealth/core/telegram/callbacks"
	"github.com/m3rciful/serverhealth/core/telegram/commands"
	"github.com/m3rciful/serverhealth/core/telegram/helpers"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/dispatch"
	"github.com/m3rciful/serverhealth/internal/domain"
	"github.com/m3rciful/serverhealth/internal/predict"
	"github.com/m3rciful/serverhealth/internal/probe"

	tele "gopkg.in/telebot.v4"
)

// Store is the persistence used by the menus.
type Store interface {
	ListServers(ctx context.Context) ([]domain.Server, error)
	GetServer(ctx context.Context, id int64) (domain.Server, error)
	DeleteServer(ctx context.Context, id int64) (string, error)
	SetStatus(ctx context.Context, id int64, status string, at time.Time) error
	RecentSamples(ctx context.Context, serverID int64, limit int) ([]domain.Sample, error)
	UpsertUser(ctx context.Context, telegramID int64, username, firstName *string) error
}

// Wizard starts the add-server dialog.
type Wizard interface {
	Start(ctx context.Context, owner int64) ([]ui.Message, error)
}

// Analytics opens and closes AI sessions.
type Analytics interface {
	Begin(ctx context.Context, targetID, owner int64) (ui.Message, error)
	End(ctx context.Context, owner int64) (ui.Message, error)
}

// Dispatcher owns free text and cancellation.
type Dispatcher interface {
	HandleText(ctx context.Context, owner int64, text string, out dispatch.Sink) (dispatch.Route, error)
	Cancel(ctx context.Context, owner int64, out dispatch.Sink) error
}

// Forecaster is the prediction service.
type Forecaster interface {
	Disk(ctx context.Context, samples []domain.Sample) (predict.DiskForecast, error)
	RAM(ctx context.Context, samples []domain.Sample) (predict.RAMForecast, error)
	Anomalies(ctx context.Context, samples []domain.Sample) (predict.AnomalyReport, error)
}

// Deps are the collaborators of the bot.
type Deps struct {
	Store      Store
	Wizard     Wizard
	Analytics  Analytics
	Dispatcher Dispatcher
	Forecaster Forecaster
	Probe      probe.Checker
}

// Options tune rendering.
type Options struct {
	ChartsBaseURL string
	Now           func() time.Time
}

// Bot holds the telegram-facing handlers.
type Bot struct {
	Deps
	chartsURL string
	now       func() time.Time
}

var _ ui.FallbackProvider = (*Bot)(nil)

// New builds a Bot.
func New(deps Deps, opts Options) *Bot {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Bot{Deps: deps, chartsURL: opts.ChartsBaseURL, now: now}
}

// Register installs commands and callbacks on reg.
func (b *Bot) Register(reg *tg.Registry) error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(reg.RegisterCommand("/start", commands.Command{
		Handler:     b.onStart,
		Description: "Open the main menu",
		Aliases:     []string{"menu"},
	}))
	add(reg.RegisterCommand("/cancel", commands.Command{
		Handler:     b.onCancel,
		Description: "Cancel adding a server",
	}))
	add(reg.RegisterCommand("/help", commands.Command{
		Handler:     b.static(helpScreen),
		Description: "How to use the bot",
	}))

	for key, h := range b.callbacks() {
		add(reg.RegisterCallback(key, h))
	}
	reg.SetCallbackNotFound(b.UnknownCallback())
	reg.SetTextFallback(b.UnknownText())
	return errors.Join(errs...)
}

func (b *Bot) callbacks() map[string]tele.HandlerFunc {
	return map[string]tele.HandlerFunc{
		ActionMain:     b.static(MainMenu),
		ActionServers:  b.static(ServersMenu),
		ActionAlerts:   b.static(alertsScreen),
		ActionSettings: b.static(settingsScreen),
		ActionHelp:     b.static(helpScreen),

		ActionServersList:   b.screen(b.serverList),
		ActionServersAdd:    b.onAddServer,
		ActionServersStatus: b.screen(b.statusList),
		ActionStatusCheck:   b.byID(b.statusCheck),
		ActionServersDelete: b.screen(b.deleteList),
		ActionDeleteConfirm: b.byID(b.deleteConfirm),
		ActionDeleteExecute: b.byID(b.deleteExecute),
		ActionAddCancel:     b.onCancel,

		ActionMetrics:       b.screen(b.metricsMenu),
		ActionMetricsServer: b.byID(b.metricsServer),
		ActionChart:         b.onChart,
		ActionPredictDisk:   b.byID(b.predictDisk),
		ActionPredictRAM:    b.byID(b.predictRAM),
		ActionAnomaly:       b.byID(b.anomaly),

		ActionAnalytics:       b.screen(b.analyticsMenu),
		ActionAnalyticsServer: b.onAnalyze,
		ActionAnalyticsEnd:    b.onAnalyticsEnd,
	}
}

// HandleText lets the dispatcher claim free text for an active dialog.
func (b *Bot) HandleText(c tele.Context) (string, bool, error) {
	ctx := helpers.BuildContext(c)
	route, err := b.Dispatcher.HandleText(ctx, helpers.SenderID(c), c.Text(), helpers.SinkFor(c))
	return string(route), route != dispatch.RouteMenu, err
}

// UnknownText answers text no dialog or command claimed.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.Send(c, ui.Text(unknownTextHint))
	}
}

// UnknownCallback answers buttons with no registered handler.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		_ = c.Respond()
		return helpers.Send(c, ui.Text(unknownCommandText))
	}
}

func (b *Bot) onStart(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	if u := c.Sender(); u != nil {
		if err := b.Store.UpsertUser(ctx, u.ID, optional(u.Username), optional(u.FirstName)); err != nil {
			logger.Warn(ctx, "app", "user.upsert.failed", slog.Int64("user_id", u.ID), slog.String("err", err.Error()))
		}
	}
	return helpers.Send(c, MainMenu())
}

func (b *Bot) onCancel(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	return b.Dispatcher.Cancel(ctx, helpers.SenderID(c), helpers.SinkFor(c))
}

func (b *Bot) onAddServer(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	msgs, err := b.Wizard.Start(ctx, helpers.SenderID(c))
	if err != nil {
		return b.fail(c, "servers_add", err)
	}
	return helpers.SendAll(c, msgs...)
}

func (b *Bot) onChart(c tele.Context) error {
	kind, id, err := callbacks.PayloadKindID(c)
	if err != nil {
		return helpers.Send(c, ui.Text(unknownCommandText))
	}
	return b.screen(func(ctx context.Context) (ui.Message, error) {
		return b.chart(ctx, kind, id)
	})(c)
}

func (b *Bot) onAnalyze(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return helpers.Send(c, ui.Text(unknownCommandText))
	}
	if err := helpers.Send(c, ui.Text(analysisStartText)); err != nil {
		return err
	}
	ctx := helpers.BuildContext(c)
	msg, err := b.Analytics.Begin(ctx, id, helpers.SenderID(c))
	if errors.Is(err, domain.ErrServerNotFound) {
		return helpers.Send(c, notFound(ActionAnalytics))
	}
	if err != nil {
		return b.fail(c, ActionAnalyticsServer, err)
	}
	return helpers.Send(c, msg)
}

func (b *Bot) onAnalyticsEnd(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	msg, err := b.Analytics.End(ctx, helpers.SenderID(c))
	if err != nil {
		return b.fail(c, ActionAnalyticsEnd, err)
	}
	return helpers.Send(c, msg)
}

// static serves a screen that needs no lookups.
func (b *Bot) static(render func() ui.Message) tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.Send(c, render())
	}
}

func (b *Bot) screen(render func(ctx context.Context) (ui.Message, error)) tele.HandlerFunc {
	return func(c tele.Context) error {
		msg, err := render(helpers.BuildContext(c))
		if err != nil {
			return b.fail(c, callbacks.CallbackKey(c), err)
		}
		return helpers.Send(c, msg)
	}
}

// byID parses the server id from the callback payload.
func (b *Bot) byID(render func(ctx context.Context, id int64) (ui.Message, error)) tele.HandlerFunc {
	return func(c tele.Context) error {
		id, err := callbacks.PayloadInt64(c)
		if err != nil {
			logger.Debug(helpers.BuildContext(c), "tg", "callback.payload.invalid",
				slog.String("payload", callbacks.CallbackPayload(c)))
			return helpers.Send(c, ui.Text(unknownCommandText))
		}
		return b.screen(func(ctx context.Context) (ui.Message, error) {
			return render(ctx, id)
		})(c)
	}
}

func (b *Bot) fail(c tele.Context, action string, err error) error {
	logger.Warn(helpers.BuildContext(c), "tg", "screen.failed",
		slog.String("action", action),
		slog.String("err", err.Error()),
	)
	if sendErr := helpers.Send(c, ui.Text(dispatch.FailureText)); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
