package bot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/m3rciful/serverhealth/core/telegram/keyboard"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/dispatch"
	"github.com/m3rciful/serverhealth/internal/domain"
	"github.com/m3rciful/serverhealth/internal/predict"

	tele "gopkg.in/telebot.v4"
)

type reply struct {
	text   string
	markup *tele.ReplyMarkup
	mode   tele.ParseMode
}

type fakeContext struct {
	tele.Context
	store     map[string]any
	text      string
	cb        *tele.Callback
	sender    *tele.User
	out       []reply
	responded bool
}

func newContext(text string) *fakeContext {
	return &fakeContext{
		store:  map[string]any{},
		text:   text,
		sender: &tele.User{ID: 42, Username: "ops", FirstName: "Ann"},
	}
}

func callbackContext(unique, payload string) *fakeContext {
	c := newContext("")
	c.cb = &tele.Callback{Unique: unique, Data: payload}
	return c
}

func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 1} }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: 42} }
func (f *fakeContext) Sender() *tele.User       { return f.sender }
func (f *fakeContext) Text() string             { return f.text }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded = true
	return nil
}

func (f *fakeContext) Send(what any, opts ...any) error {
	r := reply{text: fmt.Sprint(what)}
	if len(opts) > 0 {
		if so, ok := opts[0].(*tele.SendOptions); ok {
			r.markup = so.ReplyMarkup
			r.mode = so.ParseMode
		}
	}
	f.out = append(f.out, r)
	return nil
}

func (f *fakeContext) texts() []string {
	out := make([]string, 0, len(f.out))
	for _, r := range f.out {
		out = append(out, r.text)
	}
	return out
}

// buttons flattens a markup into "text=unique/payload" or "text->url" strings.
func buttons(m *tele.ReplyMarkup) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			if b.URL != "" {
				out = append(out, b.Text+"->"+b.URL)
				continue
			}
			s := b.Text + "=" + b.Unique
			if b.Data != "" {
				s += "/" + b.Data
			}
			out = append(out, s)
		}
	}
	return out
}

func msgButtons(m ui.Message) []string { return buttons(keyboard.Markup(m.Keyboard)) }

type statusCall struct {
	id     int64
	status string
	at     time.Time
}

type fakeStore struct {
	servers  map[int64]domain.Server
	samples  map[int64][]domain.Sample
	statuses []statusCall
	deleted  []int64
	users    []int64
	err      error
}

func newStore(servers ...domain.Server) *fakeStore {
	s := &fakeStore{servers: map[int64]domain.Server{}, samples: map[int64][]domain.Sample{}}
	for _, srv := range servers {
		s.servers[srv.ID] = srv
	}
	return s
}

func (s *fakeStore) ListServers(context.Context) ([]domain.Server, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Server, 0, len(s.servers))
	for _, srv := range s.servers {
		out = append(out, srv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) GetServer(_ context.Context, id int64) (domain.Server, error) {
	if s.err != nil {
		return domain.Server{}, s.err
	}
	srv, ok := s.servers[id]
	if !ok {
		return domain.Server{}, fmt.Errorf("get %d: %w", id, domain.ErrServerNotFound)
	}
	return srv, nil
}

func (s *fakeStore) DeleteServer(_ context.Context, id int64) (string, error) {
	srv, ok := s.servers[id]
	if !ok {
		return "", domain.ErrServerNotFound
	}
	delete(s.servers, id)
	s.deleted = append(s.deleted, id)
	return srv.Name, nil
}

func (s *fakeStore) SetStatus(_ context.Context, id int64, status string, at time.Time) error {
	s.statuses = append(s.statuses, statusCall{id: id, status: status, at: at})
	return nil
}

func (s *fakeStore) RecentSamples(_ context.Context, id int64, limit int) ([]domain.Sample, error) {
	out := s.samples[id]
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *fakeStore) UpsertUser(_ context.Context, id int64, _, _ *string) error {
	s.users = append(s.users, id)
	return s.err
}

type fakeWizard struct{ started []int64 }

func (w *fakeWizard) Start(_ context.Context, owner int64) ([]ui.Message, error) {
	w.started = append(w.started, owner)
	return []ui.Message{ui.Text("Enter the server name:")}, nil
}

type fakeAnalytics struct {
	begun []int64
	ended int
	err   error
}

func (a *fakeAnalytics) Begin(_ context.Context, target, _ int64) (ui.Message, error) {
	a.begun = append(a.begun, target)
	if a.err != nil {
		return ui.Message{}, a.err
	}
	return ui.Text("analysis ready"), nil
}

func (a *fakeAnalytics) End(context.Context, int64) (ui.Message, error) {
	a.ended++
	return ui.Text("ended"), nil
}

type fakeDispatcher struct {
	route     dispatch.Route
	texts     []string
	cancelled int
}

func (d *fakeDispatcher) HandleText(ctx context.Context, _ int64, text string, out dispatch.Sink) (dispatch.Route, error) {
	d.texts = append(d.texts, text)
	if d.route != dispatch.RouteMenu {
		return d.route, out.Send(ctx, ui.Text("dialog reply"))
	}
	return d.route, nil
}

func (d *fakeDispatcher) Cancel(ctx context.Context, _ int64, out dispatch.Sink) error {
	d.cancelled++
	return out.Send(ctx, ui.Text("cancelled"))
}

type fakeForecaster struct {
	disk    predict.DiskForecast
	ram     predict.RAMForecast
	report  predict.AnomalyReport
	samples []domain.Sample
	err     error
}

func (f *fakeForecaster) Disk(_ context.Context, s []domain.Sample) (predict.DiskForecast, error) {
	f.samples = s
	return f.disk, f.err
}

func (f *fakeForecaster) RAM(_ context.Context, s []domain.Sample) (predict.RAMForecast, error) {
	f.samples = s
	return f.ram, f.err
}

func (f *fakeForecaster) Anomalies(_ context.Context, s []domain.Sample) (predict.AnomalyReport, error) {
	f.samples = s
	return f.report, f.err
}

type fakeProbe struct{ up bool }

func (p fakeProbe) Reachable(context.Context, domain.Server) bool { return p.up }
