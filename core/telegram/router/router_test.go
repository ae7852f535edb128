package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/serverhealth/core/telegram"
	"github.com/m3rciful/serverhealth/core/telegram/commands"
)

type fakeContext struct {
	tele.Context
	text      string
	cb        *tele.Callback
	store     map[string]any
	responded int
}

func textContext(text string) *fakeContext {
	return &fakeContext{text: text, store: map[string]any{}}
}

func callbackContext(unique, payload string) *fakeContext {
	return &fakeContext{
		cb:    &tele.Callback{Unique: unique, Data: payload, Sender: &tele.User{ID: 42}},
		store: map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 1} }
func (f *fakeContext) Sender() *tele.User       { return &tele.User{ID: 42} }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: 42} }
func (f *fakeContext) Text() string             { return f.text }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Get(k string) any         { return f.store[k] }
func (f *fakeContext) Set(k string, v any)      { f.store[k] = v }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded++
	return nil
}

type fakeConversation struct {
	claim bool
	err   error
	seen  []string
}

func (f *fakeConversation) HandleText(c tele.Context) (string, bool, error) {
	f.seen = append(f.seen, c.Text())
	return "wizard", f.claim, f.err
}

func recorder(calls *[]string, name string) tele.HandlerFunc {
	return func(tele.Context) error {
		*calls = append(*calls, name)
		return nil
	}
}

func textHandler(t *testing.T, routes []tg.Route) tele.HandlerFunc {
	t.Helper()
	require.Len(t, routes, 1)
	assert.Equal(t, tele.OnText, routes[0].Endpoint)
	return routes[0].Handler
}

func TestTextRoutesPreferConversation(t *testing.T) {
	var calls []string
	reg := tg.NewRegistry()
	reg.SetTextFallback(recorder(&calls, "fallback"))
	conv := &fakeConversation{claim: true}

	h := textHandler(t, TextRoutes(conv, reg))
	require.NoError(t, h(textContext("db-1")))

	assert.Equal(t, []string{"db-1"}, conv.seen)
	assert.Empty(t, calls)
}

func TestTextRoutesConversationError(t *testing.T) {
	boom := errors.New("boom")
	h := textHandler(t, TextRoutes(&fakeConversation{err: boom}, tg.NewRegistry()))
	assert.ErrorIs(t, h(textContext("x")), boom)
}

func TestTextRoutesCommandThenFallback(t *testing.T) {
	var calls []string
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Handler:     recorder(&calls, "start"),
		Description: "menu",
		Aliases:     []string{"menu"},
	}))
	reg.SetTextFallback(recorder(&calls, "fallback"))

	h := textHandler(t, TextRoutes(&fakeConversation{}, reg))
	require.NoError(t, h(textContext("menu")))
	require.NoError(t, h(textContext("what now?")))

	assert.Equal(t, []string{"start", "fallback"}, calls)
}

func TestTextRoutesWithoutFallback(t *testing.T) {
	h := textHandler(t, TextRoutes(nil, tg.NewRegistry()))
	assert.NoError(t, h(textContext("hello")))
}

func TestCallbackRoute(t *testing.T) {
	var calls []string
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCallback("servers", recorder(&calls, "servers")))
	reg.SetCallbackNotFound(recorder(&calls, "not_found"))

	route := CallbackRoute(reg, CallbackOptions{})
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	known := callbackContext("servers", "")
	require.NoError(t, route.Handler(known))
	assert.Equal(t, 1, known.responded)

	unknown := callbackContext("nope", "7")
	require.NoError(t, route.Handler(unknown))
	assert.Equal(t, []string{"servers", "not_found"}, calls)
	assert.Zero(t, unknown.responded, "not-found handler owns the answer")

	assert.NoError(t, route.Handler(textContext("plain")), "non-callback updates are ignored")
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "menu",
		Aliases:     []string{"menu"},
	}))

	var endpoints []any
	for _, r := range CommandRoutes(reg) {
		endpoints = append(endpoints, r.Endpoint)
	}
	assert.ElementsMatch(t, []any{"/start", "/menu"}, endpoints)
	assert.Nil(t, CommandRoutes(nil))
}

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
}
