package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	coredatabase "github.com/m3rciful/serverhealth/core/database"
	"github.com/m3rciful/serverhealth/internal/domain"
)

const sampleColumns = `id, server_id, cpu_usage, ram_usage, disk_usage, load_avg_1m, load_avg_5m, load_avg_15m,
	uptime_seconds, zombie_procs, created_at`

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

// InsertSample stores an agent report and marks its server online.
// Unknown servers yield domain.ErrServerNotFound.
func (s *Store) InsertSample(ctx context.Context, m domain.Sample) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "sample.insert", start, err, slog.Int64("server_id", m.ServerID)) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert sample: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO server_metrics
		(server_id, cpu_usage, ram_usage, disk_usage, load_avg_1m, load_avg_5m, load_avg_15m,
		 ram_total_mb, swap_usage, disk_wait, disk_read_bytes, disk_write_bytes,
		 network_in_bytes, network_out_bytes, uptime_seconds, open_files, zombie_procs,
		 top_proc, failed_services)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		m.ServerID, m.CPU, m.RAM, m.Disk, m.Load1, m.Load5, m.Load15,
		m.RAMTotalMB, m.Swap, m.DiskWait, m.DiskReadBytes, m.DiskWriteBytes,
		m.NetInBytes, m.NetOutBytes, m.UptimeSeconds, m.OpenFiles, m.ZombieProcs,
		nullJSON(m.TopProc), nullJSON(m.FailedServices),
	)
	if coredatabase.IsForeignKeyViolation(err) {
		return fmt.Errorf("insert sample for %d: %w", m.ServerID, domain.ErrServerNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE servers SET status = $1, last_seen_at = $2 WHERE id = $3`,
		domain.StatusOnline, s.now().UTC(), m.ServerID); err != nil {
		return fmt.Errorf("insert sample: mark online: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("insert sample: commit: %w", err)
	}
	return nil
}

// RecentSamples returns up to limit samples for a server, oldest first.
func (s *Store) RecentSamples(ctx context.Context, serverID int64, limit int) (out []domain.Sample, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, "sample.recent", start, err, slog.Int64("server_id", serverID), slog.Int("samples", len(out)))
	}()

	if err = s.db.SelectContext(ctx, &out,
		`SELECT `+sampleColumns+` FROM server_metrics WHERE server_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		serverID, limit); err != nil {
		return nil, fmt.Errorf("recent samples %d: %w", serverID, err)
	}
	slices.Reverse(out)
	return out, nil
}

// Snapshot loads the server name, the latest sample and the last window
// samples (newest first). Unknown servers yield domain.ErrServerNotFound.
func (s *Store) Snapshot(ctx context.Context, serverID int64, window int) (snap domain.Snapshot, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, "sample.snapshot", start, err, slog.Int64("server_id", serverID), slog.Int("samples", len(snap.History)))
	}()

	snap.ServerID = serverID
	err = s.db.GetContext(ctx, &snap.ServerName, `SELECT name FROM servers WHERE id = $1`, serverID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, fmt.Errorf("snapshot %d: %w", serverID, domain.ErrServerNotFound)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("snapshot %d: %w", serverID, err)
	}

	if err = s.db.SelectContext(ctx, &snap.History,
		`SELECT `+sampleColumns+` FROM server_metrics WHERE server_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		serverID, window); err != nil {
		return domain.Snapshot{}, fmt.Errorf("snapshot %d: %w", serverID, err)
	}
	if len(snap.History) > 0 {
		cur := snap.History[0]
		snap.Current = &cur
	}
	return snap, nil
}
