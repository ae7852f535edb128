package wizard

import (
	"strconv"
	"time"

	"github.com/m3rciful/serverhealth/internal/domain"
)

// Session is the stored progress of one owner's dialog. Data holds only
// completed steps; a nil value means the step was skipped.
type Session struct {
	Step      Step             `json:"step"`
	Data      map[Step]*string `json:"data"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (s *Session) value(st Step) string {
	if v := s.Data[st]; v != nil {
		return *v
	}
	return ""
}

// Record assembles the server to persist from collected data.
func (s *Session) Record() domain.NewServer {
	srv := domain.NewServer{
		Name:        s.value(StepName),
		Host:        s.value(StepHost),
		Description: s.Data[StepDescription],
		SSHUser:     s.value(StepSSHUser),
		SSHPassword: s.Data[StepSSHPassword],
		SSHPort:     domain.DefaultSSHPort,
	}
	if p, err := strconv.Atoi(s.value(StepSSHPort)); err == nil {
		srv.SSHPort = p
	}
	return srv
}
