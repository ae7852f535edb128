// Package analytics runs the AI question/answer dialog about one server:
// a frozen metrics summary, a bounded history and a sliding expiry.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/metrics"
	"github.com/m3rciful/serverhealth/core/telegram/state"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/domain"
)

// ErrNoSession is returned when the owner has no live session.
var ErrNoSession = errors.New("no analytics session")

// FallbackReply replaces a failed or empty model reply.
const FallbackReply = "error obtaining AI reply"

const (
	DefaultWindow       = 48
	DefaultHistoryLimit = 10
	DefaultTTL          = 30 * time.Minute
)

// Callback actions rendered on analytics replies.
const (
	ActionAnalyze = "analytics_server"
	ActionEnd     = "analytics_end"
	ActionMenu    = "analytics"
	ActionMain    = "back_to_menu"
)

// Completer sends a conversation to the language model.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// SnapshotSource loads the latest window of samples for a server.
type SnapshotSource interface {
	Snapshot(ctx context.Context, serverID int64, window int) (domain.Snapshot, error)
}

// Options tune a Manager. Zero values use the defaults above.
type Options struct {
	Window       int
	HistoryLimit int
	TTL          time.Duration
	Now          func() time.Time
	NewID        func() string
}

// Manager owns analytics sessions. All state lives in the store.
type Manager struct {
	store  state.Store
	source SnapshotSource
	llm    Completer

	window int
	limit  int
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// New builds a Manager.
func New(store state.Store, source SnapshotSource, llm Completer, opts Options) *Manager {
	m := &Manager{
		store:  store,
		source: source,
		llm:    llm,
		window: opts.Window,
		limit:  opts.HistoryLimit,
		ttl:    opts.TTL,
		now:    opts.Now,
		newID:  opts.NewID,
	}
	if m.window <= 0 {
		m.window = DefaultWindow
	}
	if m.limit <= 0 {
		m.limit = DefaultHistoryLimit
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = func() string { return uuid.NewString() }
	}
	return m
}

func key(owner int64) string { return state.Key("analytics", owner) }

// Begin snapshots the server, asks for an initial analysis and opens a
// session, replacing any previous one.
func (m *Manager) Begin(ctx context.Context, targetID, owner int64) (ui.Message, error) {
	snap, err := m.source.Snapshot(ctx, targetID, m.window)
	if err != nil {
		return ui.Message{}, fmt.Errorf("analytics begin: %w", err)
	}
	sum := domain.Summarize(snap)

	reply := m.complete(ctx, []Turn{
		{Role: RoleSystem, Content: SystemPrompt(sum)},
		{Role: RoleUser, Content: initialPrompt},
	})

	now := m.now()
	s := &Session{
		ID:         m.newID(),
		OwnerID:    owner,
		TargetID:   targetID,
		TargetName: sum.ServerName,
		Snapshot:   sum,
		History: []Turn{
			{Role: RoleUser, Content: initialPrompt},
			{Role: RoleAssistant, Content: reply},
		},
		CreatedAt: now,
	}
	if err := m.save(ctx, s, now); err != nil {
		return ui.Message{}, fmt.Errorf("analytics begin: %w", err)
	}
	metrics.SessionEvent("analytics", "started")
	logger.Info(ctx, "analytics", "started",
		slog.String("session_id", s.ID),
		slog.Int64("server_id", targetID),
		slog.Int("samples", sum.CPU.Samples),
	)

	text := fmt.Sprintf("🤖 AI analysis: %s\n\n%s\n\n💬 Ask a question about the server or press \"End dialog\".", s.TargetName, reply)
	return ui.Text(text).WithRows(
		ui.Row(ui.Action("🔄 Refresh analysis", ActionAnalyze, strconv.FormatInt(targetID, 10))),
		ui.Row(ui.Action("❌ End dialog", ActionEnd)),
	), nil
}

// Load returns owner's live session or ErrNoSession. An expired entry
// still present in the store counts as absent.
func (m *Manager) Load(ctx context.Context, owner int64) (*Session, error) {
	var s Session
	ok, err := m.store.Get(ctx, key(owner), &s)
	if err != nil {
		return nil, fmt.Errorf("analytics load: %w", err)
	}
	if !ok || s.Expired(m.now()) {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Active reports whether owner has a live session.
func (m *Manager) Active(ctx context.Context, owner int64) (bool, error) {
	_, err := m.Load(ctx, owner)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	return err == nil, err
}

// Ask answers a follow-up question against the frozen snapshot.
func (m *Manager) Ask(ctx context.Context, owner int64, question string) (ui.Message, error) {
	s, err := m.Load(ctx, owner)
	if err != nil {
		return ui.Message{}, err
	}
	return m.Answer(ctx, s, question)
}

// Answer is Ask for a session the caller already loaded.
func (m *Manager) Answer(ctx context.Context, s *Session, question string) (ui.Message, error) {
	turns := make([]Turn, 0, m.limit+2)
	turns = append(turns, Turn{Role: RoleSystem, Content: SystemPrompt(s.Snapshot)})
	turns = append(turns, recent(s.History, m.limit)...)
	turns = append(turns, Turn{Role: RoleUser, Content: question})
	reply := m.complete(ctx, turns)

	s.record(question, reply, m.limit)
	if err := m.save(ctx, s, m.now()); err != nil {
		return ui.Message{}, fmt.Errorf("analytics ask: %w", err)
	}
	metrics.SessionEvent("analytics", "asked")
	logger.Info(ctx, "analytics", "asked",
		slog.String("session_id", s.ID),
		slog.Int("history", len(s.History)),
	)

	return ui.Text(fmt.Sprintf("🤖 %s\n\n%s", s.TargetName, reply)).WithRows(
		ui.Row(ui.Action("❌ End dialog", ActionEnd)),
	), nil
}

// End drops owner's session; a missing one is not an error.
func (m *Manager) End(ctx context.Context, owner int64) (ui.Message, error) {
	if err := m.store.Delete(ctx, key(owner)); err != nil {
		return ui.Message{}, fmt.Errorf("analytics end: %w", err)
	}
	metrics.SessionEvent("analytics", "ended")
	logger.Info(ctx, "analytics", "ended")
	return ui.Text("✅ Dialog ended.\n\nChoose an action:").WithRows(
		ui.Row(ui.Action("🤖 New analysis", ActionMenu)),
		ui.Row(ui.Action("⬅️ Main menu", ActionMain)),
	), nil
}

func (m *Manager) save(ctx context.Context, s *Session, now time.Time) error {
	s.ExpiresAt = now.Add(m.ttl)
	return m.store.Put(ctx, key(s.OwnerID), s, m.ttl)
}

func (m *Manager) complete(ctx context.Context, turns []Turn) string {
	reply, err := m.llm.Complete(ctx, turns)
	if err != nil {
		logger.Warn(ctx, "analytics", "completion.failed", slog.String("err", err.Error()))
		return FallbackReply
	}
	if strings.TrimSpace(reply) == "" {
		logger.Warn(ctx, "analytics", "completion.empty")
		return FallbackReply
	}
	return reply
}
