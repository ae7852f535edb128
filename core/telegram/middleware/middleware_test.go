package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/serverhealth/core/telegram/helpers"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
)

type fakeContext struct {
	tele.Context
	upd   tele.Update
	user  *tele.User
	store map[string]any
	sent  []any
}

func newContext(userID int64, callback bool) *fakeContext {
	user := &tele.User{ID: userID}
	upd := tele.Update{ID: 1, Message: &tele.Message{Sender: user, Chat: &tele.Chat{ID: userID}}}
	if callback {
		upd = tele.Update{ID: 2, Callback: &tele.Callback{Sender: user, Data: "\fservers"}}
	}
	return &fakeContext{upd: upd, user: user, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update                     { return f.upd }
func (f *fakeContext) Sender() *tele.User                      { return f.user }
func (f *fakeContext) Chat() *tele.Chat                        { return &tele.Chat{ID: f.user.ID} }
func (f *fakeContext) Callback() *tele.Callback                { return f.upd.Callback }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error { return nil }
func (f *fakeContext) Text() string                            { return "hello" }
func (f *fakeContext) Get(k string) any                        { return f.store[k] }
func (f *fakeContext) Set(k string, v any)                     { f.store[k] = v }
func (f *fakeContext) Send(what any, _ ...any) error {
	f.sent = append(f.sent, what)
	return nil
}

func passthrough(calls *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*calls++
		return nil
	}
}

func TestAllowList(t *testing.T) {
	tghelpers.SetDispatcher(nil)
	mw := AllowList(AccessOptions{AllowedIDs: []int64{42}, DenyMessage: "Access denied"})
	calls := 0
	h := mw(passthrough(&calls))

	require.NoError(t, h(newContext(42, false)))
	assert.Equal(t, 1, calls)

	stranger := newContext(7, false)
	require.NoError(t, h(stranger))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []any{"Access denied"}, stranger.sent)
}

func TestRateLimitPerUserAndExclusions(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Burst:    2,
		Exclude:  map[string]struct{}{"callback": {}},
	})
	calls := 0
	h := mw(passthrough(&calls))

	for range 3 {
		require.NoError(t, h(newContext(42, false)))
	}
	assert.Equal(t, 2, calls, "third message within the interval is dropped")

	require.NoError(t, h(newContext(43, false)))
	assert.Equal(t, 3, calls, "limits are per user")

	require.NoError(t, h(newContext(42, true)))
	assert.Equal(t, 4, calls, "callbacks bypass the limiter")
}

func TestRateLimitDisabledWithoutInterval(t *testing.T) {
	calls := 0
	h := RateLimitMiddleware(RateLimitOptions{})(passthrough(&calls))
	for range 5 {
		require.NoError(t, h(newContext(1, false)))
	}
	assert.Equal(t, 5, calls)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newContext(42, false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return want })(newContext(1, false)), want)
}

func TestCountersAndLogger(t *testing.T) {
	tghelpers.SetDispatcher(nil)
	c := newContext(42, true)
	h := LoggerMiddleware(MessageMetricsMiddleware(func(c tele.Context) error {
		return tghelpers.Send(c, ui.Text("menu").WithRows(ui.Row(ui.Action("Back", "back_to_menu"))))
	}))
	require.NoError(t, h(c))

	n, kb := GetCounters(c)
	assert.Equal(t, 1, n)
	assert.True(t, kb)
	assert.Equal(t, "2:42:42", c.Get("rid"))
}
