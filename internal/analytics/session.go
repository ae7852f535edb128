package analytics

import (
	"time"

	"github.com/m3rciful/serverhealth/internal/domain"
)

// Roles used in Turn.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message exchanged with the language model.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is an owner's ongoing analysis of one server. Snapshot is taken
// once at Begin and never refreshed.
type Session struct {
	ID         string         `json:"id"`
	OwnerID    int64          `json:"owner_id"`
	TargetID   int64          `json:"target_id"`
	TargetName string         `json:"target_name"`
	Snapshot   domain.Summary `json:"snapshot"`
	History    []Turn         `json:"history"`
	CreatedAt  time.Time      `json:"created_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// record appends a question/answer pair and keeps the last limit turns.
func (s *Session) record(question, answer string, limit int) {
	s.History = append(s.History,
		Turn{Role: RoleUser, Content: question},
		Turn{Role: RoleAssistant, Content: answer},
	)
	if over := len(s.History) - limit; over > 0 {
		s.History = append([]Turn(nil), s.History[over:]...)
	}
}

// recent returns at most n trailing turns.
func recent(turns []Turn, n int) []Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
