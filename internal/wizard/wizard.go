// Package wizard drives the add-server dialog: one stored session per
// owner, advanced by free-text answers and persisted at the end.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/metrics"
	"github.com/m3rciful/serverhealth/core/telegram/state"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/domain"
)

// CancelAction is the callback action of the cancel button under every prompt.
const CancelAction = "servers_add_cancel"

// DefaultTTL bounds how long an abandoned dialog stays in the store.
const DefaultTTL = 24 * time.Hour

const (
	addedText     = "Server added."
	duplicateText = "A server with this name already exists. Enter another name:"
	failedText    = "Could not save the server. Please try again later."
)

// ServerCreator persists the finished record.
type ServerCreator interface {
	CreateServer(ctx context.Context, srv domain.NewServer) (int64, error)
}

// Options tune a Wizard.
type Options struct {
	TTL time.Duration
	// OnComplete supplies the messages sent after a successful save.
	OnComplete func(ctx context.Context) []ui.Message
	Now        func() time.Time
}

// Outcome is the result of Submit. Handled is false when the owner had no dialog.
type Outcome struct {
	Handled  bool
	Messages []ui.Message
}

// Wizard is safe for concurrent use; all state lives in the store.
type Wizard struct {
	store      state.Store
	creator    ServerCreator
	ttl        time.Duration
	onComplete func(ctx context.Context) []ui.Message
	now        func() time.Time
}

// New builds a Wizard.
func New(store state.Store, creator ServerCreator, opts Options) *Wizard {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Wizard{
		store:      store,
		creator:    creator,
		ttl:        opts.TTL,
		onComplete: opts.OnComplete,
		now:        opts.Now,
	}
}

func key(owner int64) string { return state.Key("wizard", owner) }

func promptFor(st Step) ui.Message {
	return ui.Text(st.Prompt()).WithRows(ui.Row(ui.Action("Cancel", CancelAction)))
}

// Start opens a fresh dialog for owner, replacing any previous one.
func (w *Wizard) Start(ctx context.Context, owner int64) ([]ui.Message, error) {
	s := &Session{Step: Order[0], Data: map[Step]*string{}}
	if err := w.save(ctx, owner, s); err != nil {
		return nil, fmt.Errorf("wizard start: %w", err)
	}
	metrics.SessionEvent("wizard", "started")
	logger.Info(ctx, "wizard", "started", slog.String("step", string(s.Step)))
	return []ui.Message{promptFor(s.Step)}, nil
}

// Load returns owner's session, or nil when there is none.
func (w *Wizard) Load(ctx context.Context, owner int64) (*Session, error) {
	var s Session
	ok, err := w.store.Get(ctx, key(owner), &s)
	if err != nil {
		return nil, fmt.Errorf("wizard load: %w", err)
	}
	if !ok || !s.Step.Valid() {
		return nil, nil
	}
	if s.Data == nil {
		s.Data = map[Step]*string{}
	}
	return &s, nil
}

// Active reports whether owner has a dialog in progress.
func (w *Wizard) Active(ctx context.Context, owner int64) (bool, error) {
	s, err := w.Load(ctx, owner)
	return s != nil, err
}

// Cancel drops owner's dialog; a missing one is not an error.
func (w *Wizard) Cancel(ctx context.Context, owner int64) error {
	if err := w.store.Delete(ctx, key(owner)); err != nil {
		return fmt.Errorf("wizard cancel: %w", err)
	}
	metrics.SessionEvent("wizard", "cancelled")
	logger.Info(ctx, "wizard", "cancelled")
	return nil
}

// Submit applies text to the current step.
func (w *Wizard) Submit(ctx context.Context, owner int64, text string) (Outcome, error) {
	s, err := w.Load(ctx, owner)
	if err != nil || s == nil {
		return Outcome{}, err
	}

	step := s.Step
	value, note, ok := transitions[step].parse(text)
	if !ok {
		metrics.SessionEvent("wizard", "invalid")
		logger.Info(ctx, "wizard", "step.invalid", slog.String("step", string(step)))
		msg := promptFor(step)
		msg.Text = note + "\n" + msg.Text
		return Outcome{Handled: true, Messages: []ui.Message{msg}}, nil
	}

	s.Data[step] = value
	if next := transitions[step].next; next != "" {
		s.Step = next
		if err := w.save(ctx, owner, s); err != nil {
			return Outcome{}, fmt.Errorf("wizard submit: %w", err)
		}
		logger.Info(ctx, "wizard", "step.advanced",
			slog.String("step", string(step)),
			slog.String("next", string(next)),
		)
		return Outcome{Handled: true, Messages: []ui.Message{promptFor(next)}}, nil
	}

	return w.persist(ctx, owner, s)
}

func (w *Wizard) persist(ctx context.Context, owner int64, s *Session) (Outcome, error) {
	rec := s.Record()
	id, err := w.creator.CreateServer(ctx, rec)
	switch {
	case errors.Is(err, domain.ErrDuplicateName):
		delete(s.Data, StepName)
		s.Step = StepName
		if err := w.save(ctx, owner, s); err != nil {
			return Outcome{}, fmt.Errorf("wizard conflict: %w", err)
		}
		metrics.SessionEvent("wizard", "conflict")
		logger.Info(ctx, "wizard", "persist.conflict", slog.String("server", rec.Name))
		msg := promptFor(StepName)
		msg.Text = duplicateText
		return Outcome{Handled: true, Messages: []ui.Message{msg}}, nil

	case err != nil:
		metrics.SessionEvent("wizard", "failed")
		logger.Warn(ctx, "wizard", "persist.failed",
			slog.String("server", rec.Name),
			slog.String("err", err.Error()),
		)
		return Outcome{Handled: true, Messages: []ui.Message{ui.Text(failedText)}}, nil
	}

	if err := w.store.Delete(ctx, key(owner)); err != nil {
		logger.Warn(ctx, "wizard", "session.delete_failed", slog.String("err", err.Error()))
	}
	metrics.SessionEvent("wizard", "completed")
	logger.Info(ctx, "wizard", "completed",
		slog.Int64("server_id", id),
		slog.String("server", rec.Name),
	)
	msgs := []ui.Message{ui.Text(addedText)}
	if w.onComplete != nil {
		msgs = append(msgs, w.onComplete(ctx)...)
	}
	return Outcome{Handled: true, Messages: msgs}, nil
}

func (w *Wizard) save(ctx context.Context, owner int64, s *Session) error {
	s.UpdatedAt = w.now().UTC()
	return w.store.Put(ctx, key(owner), s, w.ttl)
}
