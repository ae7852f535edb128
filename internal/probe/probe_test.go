package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/serverhealth/internal/domain"
)

func TestReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := domain.Server{ID: 1, Host: "127.0.0.1", SSHPort: port}
	assert.True(t, NewTCP(time.Second).Reachable(context.Background(), srv))
}

func TestZeroValueChecker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	var c TCP
	assert.False(t, c.Reachable(context.Background(), domain.Server{Host: "127.0.0.1", SSHPort: port}))
}

func TestUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	srv := domain.Server{ID: 2, Host: "127.0.0.1", SSHPort: port}
	assert.False(t, NewTCP(time.Second).Reachable(context.Background(), srv))
}

func TestDefaultPort(t *testing.T) {
	var got string
	c := NewTCP(0)
	c.dialer = func(_ context.Context, _, addr string) (net.Conn, error) {
		got = addr
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	assert.False(t, c.Reachable(context.Background(), domain.Server{Host: "db1"}))
	assert.Equal(t, net.JoinHostPort("db1", strconv.Itoa(domain.DefaultSSHPort)), got)
	assert.Equal(t, DefaultTimeout, c.Timeout)
}
