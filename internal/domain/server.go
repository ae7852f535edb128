// Package domain holds the monitored-server entities shared by storage,
// the dialogs and the HTTP API.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrDuplicateName is returned when a server with the same name exists.
	ErrDuplicateName = errors.New("server name already exists")
	// ErrServerNotFound is returned for unknown server ids.
	ErrServerNotFound = errors.New("server not found")
)

// Server status values.
const (
	StatusPending = "pending"
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// DefaultSSHPort is used when the port step is skipped.
const DefaultSSHPort = 22

// Server is a monitored host.
type Server struct {
	ID          int64      `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Host        string     `db:"host" json:"host"`
	Description *string    `db:"description" json:"description,omitempty"`
	SSHUser     string     `db:"ssh_user" json:"ssh_user"`
	SSHPassword *string    `db:"ssh_password" json:"ssh_password"`
	SSHPort     int        `db:"ssh_port" json:"ssh_port"`
	Status      string     `db:"status" json:"status"`
	LastSeenAt  *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// StatusIcon renders the status as a coloured dot.
func (s Server) StatusIcon() string {
	switch s.Status {
	case StatusOnline:
		return "🟢"
	case StatusOffline:
		return "🔴"
	}
	return "⚪"
}

// NewServer is the record assembled by the add-server dialog.
type NewServer struct {
	Name        string  `db:"name" json:"name"`
	Host        string  `db:"host" json:"host"`
	Description *string `db:"description" json:"description"`
	SSHUser     string  `db:"ssh_user" json:"ssh_user"`
	SSHPassword *string `db:"ssh_password" json:"ssh_password"`
	SSHPort     int     `db:"ssh_port" json:"ssh_port"`
}

// User is a Telegram account that has opened the bot.
type User struct {
	TelegramID int64     `db:"telegram_id"`
	Username   *string   `db:"username"`
	FirstName  *string   `db:"first_name"`
	CreatedAt  time.Time `db:"created_at"`
	LastSeen   time.Time `db:"last_seen"`
}
