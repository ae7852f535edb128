package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/serverhealth/core/bootstrap"
	"github.com/m3rciful/serverhealth/core/cmd"
	"github.com/m3rciful/serverhealth/core/logger"
	tg "github.com/m3rciful/serverhealth/core/telegram"
	"github.com/m3rciful/serverhealth/core/telegram/helpers"
	"github.com/m3rciful/serverhealth/core/telegram/router"
	"github.com/m3rciful/serverhealth/core/telegram/state"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/analytics"
	"github.com/m3rciful/serverhealth/internal/api"
	"github.com/m3rciful/serverhealth/internal/bot"
	"github.com/m3rciful/serverhealth/internal/dispatch"
	"github.com/m3rciful/serverhealth/internal/llm"
	"github.com/m3rciful/serverhealth/internal/predict"
	"github.com/m3rciful/serverhealth/internal/probe"
	"github.com/m3rciful/serverhealth/internal/storage"
	"github.com/m3rciful/serverhealth/internal/wizard"

	tele "gopkg.in/telebot.v4"
)

const rateLimitedText = "Too many requests, slow down a little."

// App is the running bot with its ingest API.
type App struct {
	cfg      *Config
	registry *tg.Registry
	bot      *bot.Bot
	api      *api.Server
	closer   func() error
}

var _ cmd.App = (*App)(nil)

// LoadConfig adapts Load to cmd.Options.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	return Load(path)
}

// Bootstrap connects the infrastructure and builds the App.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.App, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
		Redis:    cfg.Redis,
	})
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, infra.DB, infra.Store)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	a.closer = infra.Close
	return a, nil
}

// New wires the dialogs, menus and API on top of db and the session store.
func New(cfg *Config, db *sqlx.DB, sessions state.Store) (*App, error) {
	store := storage.New(db)

	wiz := wizard.New(sessions, store, wizard.Options{
		OnComplete: func(context.Context) []ui.Message {
			return []ui.Message{bot.ServersMenu()}
		},
	})
	ai := analytics.New(sessions, store, llm.New(cfg.LLM), analytics.Options{})
	disp := dispatch.New(wiz, ai, dispatch.Options{
		ServersMenu: func(context.Context) ui.Message { return bot.ServersMenu() },
	})

	b := bot.New(bot.Deps{
		Store:      store,
		Wizard:     wiz,
		Analytics:  ai,
		Dispatcher: disp,
		Forecaster: predict.New(cfg.Prediction),
		Probe:      probe.NewTCP(probe.DefaultTimeout),
	}, bot.Options{ChartsBaseURL: cfg.Charts.BaseURL})

	reg := tg.NewRegistry()
	if err := b.Register(reg); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	return &App{
		cfg:      cfg,
		registry: reg,
		bot:      b,
		api:      api.New(cfg.API, store, sessions),
	}, nil
}

// TelegramRunOptions implements cmd.App.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry)
	routes = append(routes, router.TextRoutes(a.bot, a.registry)...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: a.bot.UnknownCallback(),
	}))

	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, onLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			logger.Info(ctx, "app", "handlers",
				slog.Int("commands", len(rt.Registry.ListCommands(false))),
				slog.Int("callbacks", len(rt.Registry.ListCallbacks())),
			)
			return nil
		},
	}, nil
}

// Services implements cmd.App; the ingest API runs when api.listen is set.
func (a *App) Services() []func(ctx context.Context) error {
	if !a.cfg.API.Enabled() {
		return nil
	}
	return []func(ctx context.Context) error{a.api.Serve}
}

// Close implements cmd.App.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

func onLimited(c tele.Context) error {
	return helpers.SendText(c, rateLimitedText)
}
