package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/serverhealth/core/logger"
)

// Direction selects which way RunMigrations moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// RunMigrations waits for the database and applies every up migration.
func RunMigrations(ctx context.Context, cfg Config) error {
	return Migrate(ctx, cfg, Up)
}

// Migrate moves the schema fully up, or one step down.
func Migrate(ctx context.Context, cfg Config, dir Direction) error {
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := WaitReady(waitCtx, cfg.URL(), 2*time.Second); err != nil {
		logger.MIG.Error("db not ready", slog.String("event", "db.migrate"), slog.Any("err", err))
		return fmt.Errorf("database not ready: %w", err)
	}

	path, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := upFiles(path)
	preview, truncated := logger.SummarizeStrings(files, 6)
	logger.MIG.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("path", path),
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := migrate.New("file://"+path, cfg.URL())
	if err != nil {
		logger.MIG.Error("init failed", slog.String("event", "db.migrate"), slog.Any("err", err))
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	from, _, _ := m.Version()
	start := time.Now()
	switch dir {
	case Down:
		err = m.Steps(-1)
	default:
		err = m.Up()
	}
	took := logger.RoundMS(time.Since(start))
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("status", "fail"),
			slog.String("direction", string(dir)),
			slog.Duration("duration", took),
			slog.Any("err", err),
		)
		return fmt.Errorf("migrate %s: %w", dir, err)
	}

	to, _, _ := m.Version()
	logger.MIG.Info("migrations summary",
		slog.String("event", "summary"),
		slog.String("status", "ok"),
		slog.String("direction", string(dir)),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(between(files, uint64(from), uint64(to)))),
		slog.Duration("duration", took),
	)
	return nil
}

// Version reports the applied schema version and its dirty flag.
func Version(cfg Config) (uint, bool, error) {
	path, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return 0, false, err
	}
	m, err := migrate.New("file://"+path, cfg.URL())
	if err != nil {
		return 0, false, fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func upFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

func fileVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// between returns files whose version lies in (lo, hi], in either direction.
func between(files []string, a, b uint64) []string {
	lo, hi := min(a, b), max(a, b)
	var out []string
	for _, f := range files {
		if v := fileVersion(f); v > lo && v <= hi {
			out = append(out, f)
		}
	}
	return out
}
