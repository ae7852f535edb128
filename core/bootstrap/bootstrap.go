package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/serverhealth/core/config"
	coredatabase "github.com/m3rciful/serverhealth/core/database"
	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/metrics"
	"github.com/m3rciful/serverhealth/core/telegram/state"
)

// Options control the shared bootstrap pipeline.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	Redis    state.RedisConfig

	// SkipMigrations leaves the schema untouched; the migrate command owns it then.
	SkipMigrations bool

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
	OpenStore  func(context.Context, state.RedisConfig) (state.Store, func() error, error)
}

// Result exposes infrastructure initialized by the pipeline.
type Result struct {
	DB    *sqlx.DB
	Store state.Store

	closers []func() error
}

// Close releases the session store and the database pool.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStore dials Redis when an address is configured and falls back to an
// in-process store otherwise. Either way the store is wrapped with logging.
func OpenStore(ctx context.Context, cfg state.RedisConfig) (state.Store, func() error, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		logger.Info(ctx, "session", "store.ready", slog.String("backend", "memory"))
		return state.WithLogging(state.NewMemoryStore(time.Now)), func() error { return nil }, nil
	}
	rs, err := state.DialRedis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "session", "store.ready",
		slog.String("backend", "redis"),
		slog.String("addr", cfg.Addr),
	)
	return state.WithLogging(rs), rs.Close, nil
}

// Run initializes logging and metrics, connects to PostgreSQL, applies
// migrations and opens the session store.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	metrics.Register()

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	res := &Result{DB: db, closers: []func() error{db.Close}}

	if !opts.SkipMigrations {
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, opts.Database); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	openStore := opts.OpenStore
	if openStore == nil {
		openStore = OpenStore
	}
	store, closeStore, err := openStore(ctx, opts.Redis)
	if err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("bootstrap: session store failed: %w", err)
	}
	res.Store = store
	if closeStore != nil {
		res.closers = append(res.closers, closeStore)
	}
	return res, nil
}
