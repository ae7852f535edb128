// Package probe checks whether a server answers on its SSH port.
package probe

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/internal/domain"
)

// DefaultTimeout bounds a single dial.
const DefaultTimeout = 5 * time.Second

// Checker reports reachability of a server.
type Checker interface {
	Reachable(ctx context.Context, srv domain.Server) bool
}

// TCP dials host:ssh_port. The zero value uses DefaultTimeout and a plain
// net.Dialer.
type TCP struct {
	Timeout time.Duration
	dialer  func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewTCP returns a TCP checker with DefaultTimeout when timeout is zero.
func NewTCP(timeout time.Duration) *TCP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &net.Dialer{Timeout: timeout}
	return &TCP{Timeout: timeout, dialer: d.DialContext}
}

// Reachable never returns an error; any dial failure counts as offline.
func (t *TCP) Reachable(ctx context.Context, srv domain.Server) bool {
	port := srv.SSHPort
	if port <= 0 {
		port = domain.DefaultSSHPort
	}
	addr := net.JoinHostPort(srv.Host, strconv.Itoa(port))

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dial := t.dialer
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := dial(ctx, "tcp", addr)
	attrs := []slog.Attr{
		slog.Int64("server_id", srv.ID),
		slog.String("addr", addr),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.Debug(ctx, "probe", "unreachable", append(attrs, slog.String("err", err.Error()))...)
		return false
	}
	_ = conn.Close()
	logger.Debug(ctx, "probe", "reachable", attrs...)
	return true
}
