package wizard

import (
	"strconv"
	"strings"

	"github.com/m3rciful/serverhealth/internal/domain"
)

// Step names one field of the add-server dialog.
type Step string

const (
	StepName        Step = "name"
	StepHost        Step = "host"
	StepDescription Step = "description"
	StepSSHUser     Step = "ssh_user"
	StepSSHPassword Step = "ssh_password"
	StepSSHPort     Step = "ssh_port"
)

// Order is the fixed sequence in which steps are asked.
var Order = []Step{StepName, StepHost, StepDescription, StepSSHUser, StepSSHPassword, StepSSHPort}

// transition describes one step: what to ask, how to parse the answer and
// where to go next.
type transition struct {
	prompt   string
	optional bool
	parse    func(text string) (value *string, note string, ok bool)
	next     Step
}

var transitions = map[Step]transition{
	StepName: {
		prompt: "Enter the server name (must be unique):",
		parse:  required("Name cannot be empty. Try again."),
		next:   StepHost,
	},
	StepHost: {
		prompt: "Enter the server host (IP or domain):",
		parse:  required("Host cannot be empty. Try again."),
		next:   StepDescription,
	},
	StepDescription: {
		prompt:   `Enter a description (send "-" to skip):`,
		optional: true,
		parse:    optionalText,
		next:     StepSSHUser,
	},
	StepSSHUser: {
		prompt: "Enter the SSH user:",
		parse:  required("SSH user cannot be empty. Try again."),
		next:   StepSSHPassword,
	},
	StepSSHPassword: {
		prompt:   `Enter the SSH password (send "-" to skip):`,
		optional: true,
		parse:    optionalText,
		next:     StepSSHPort,
	},
	StepSSHPort: {
		prompt:   `Enter the SSH port (default 22, send "-" to skip):`,
		optional: true,
		parse:    port,
	},
}

// Valid reports whether s is a defined step.
func (s Step) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Prompt returns the question asked for the step.
func (s Step) Prompt() string { return transitions[s].prompt }

// Optional reports whether the step accepts a skip sentinel.
func (s Step) Optional() bool { return transitions[s].optional }

// IsSkip reports whether text is one of the skip sentinels.
func IsSkip(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "-", "skip", "пропустить":
		return true
	}
	return false
}

func required(note string) func(string) (*string, string, bool) {
	return func(text string) (*string, string, bool) {
		v := strings.TrimSpace(text)
		if v == "" || IsSkip(v) {
			return nil, note, false
		}
		return &v, "", true
	}
}

func optionalText(text string) (*string, string, bool) {
	if IsSkip(text) {
		return nil, "", true
	}
	v := strings.TrimSpace(text)
	if v == "" {
		return nil, "", true
	}
	return &v, "", true
}

func port(text string) (*string, string, bool) {
	v := strconv.Itoa(domain.DefaultSSHPort)
	if IsSkip(text) {
		return &v, "", true
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > 65535 {
		return nil, `Invalid port. Enter a number from 1 to 65535 or send "-".`, false
	}
	v = strconv.Itoa(n)
	return &v, "", true
}
