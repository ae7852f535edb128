package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coredatabase "github.com/m3rciful/serverhealth/core/database"
	"github.com/m3rciful/serverhealth/internal/domain"
)

const serverColumns = `id, name, host, description, ssh_user, ssh_password, ssh_port, status, last_seen_at, created_at`

// CreateServer inserts a server and returns its id. A taken name yields
// domain.ErrDuplicateName.
func (s *Store) CreateServer(ctx context.Context, srv domain.NewServer) (id int64, err error) {
	start := time.Now()
	defer func() { observe(ctx, "server.create", start, err, slog.String("server", srv.Name)) }()

	port := srv.SSHPort
	if port == 0 {
		port = domain.DefaultSSHPort
	}
	err = s.db.QueryRowxContext(ctx,
		`INSERT INTO servers (name, host, description, ssh_user, ssh_password, ssh_port)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		srv.Name, srv.Host, srv.Description, srv.SSHUser, srv.SSHPassword, port,
	).Scan(&id)
	if coredatabase.IsUniqueViolation(err) {
		return 0, fmt.Errorf("create server %q: %w", srv.Name, domain.ErrDuplicateName)
	}
	if err != nil {
		return 0, fmt.Errorf("create server: %w", err)
	}
	return id, nil
}

// ListServers returns all servers, newest first.
func (s *Store) ListServers(ctx context.Context) (servers []domain.Server, err error) {
	start := time.Now()
	defer func() { observe(ctx, "server.list", start, err, slog.Int("count", len(servers))) }()

	if err = s.db.SelectContext(ctx, &servers,
		`SELECT `+serverColumns+` FROM servers ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	return servers, nil
}

// GetServer loads one server or returns domain.ErrServerNotFound.
func (s *Store) GetServer(ctx context.Context, id int64) (srv domain.Server, err error) {
	start := time.Now()
	defer func() { observe(ctx, "server.get", start, err, slog.Int64("server_id", id)) }()

	err = s.db.GetContext(ctx, &srv, `SELECT `+serverColumns+` FROM servers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Server{}, fmt.Errorf("get server %d: %w", id, domain.ErrServerNotFound)
	}
	if err != nil {
		return domain.Server{}, fmt.Errorf("get server %d: %w", id, err)
	}
	return srv, nil
}

// DeleteServer removes a server with its samples and returns its name.
func (s *Store) DeleteServer(ctx context.Context, id int64) (name string, err error) {
	start := time.Now()
	defer func() { observe(ctx, "server.delete", start, err, slog.Int64("server_id", id)) }()

	err = s.db.QueryRowxContext(ctx, `DELETE FROM servers WHERE id = $1 RETURNING name`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("delete server %d: %w", id, domain.ErrServerNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("delete server %d: %w", id, err)
	}
	return name, nil
}

// SetStatus records the outcome of a reachability check.
func (s *Store) SetStatus(ctx context.Context, id int64, status string, at time.Time) (err error) {
	start := time.Now()
	defer func() { observe(ctx, "server.status", start, err, slog.Int64("server_id", id)) }()

	res, err := s.db.ExecContext(ctx,
		`UPDATE servers SET status = $1, last_seen_at = $2 WHERE id = $3`, status, at, id)
	if err != nil {
		return fmt.Errorf("set status %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set status %d: %w", id, domain.ErrServerNotFound)
	}
	return nil
}
