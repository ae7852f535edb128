package helpers

import (
	"context"
	"testing"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type sent struct {
	what any
	opts *tele.SendOptions
}

type fakeContext struct {
	tele.Context
	store map[string]any
	out   []sent
}

func newFakeContext() *fakeContext {
	return &fakeContext{store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update   { return tele.Update{ID: 100} }
func (f *fakeContext) Chat() *tele.Chat      { return &tele.Chat{ID: 200} }
func (f *fakeContext) Sender() *tele.User    { return &tele.User{ID: 300} }
func (f *fakeContext) Get(key string) any    { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }
func (f *fakeContext) Send(what any, opts ...any) error {
	s := sent{what: what}
	if len(opts) > 0 {
		s.opts, _ = opts[0].(*tele.SendOptions)
	}
	f.out = append(f.out, s)
	return nil
}

func TestBuildContextCachesMetadata(t *testing.T) {
	c := newFakeContext()
	ctx := BuildContext(c)

	assert.Equal(t, "100:200:300", logger.RIDFrom(ctx))
	assert.Equal(t, int64(300), logger.UserIDFrom(ctx))
	assert.Equal(t, int64(200), logger.ChatIDFrom(ctx))

	tagged := WithHandler(c, "callback.servers")
	assert.Equal(t, "callback.servers", logger.HandlerFrom(BuildContext(c)))
	assert.Equal(t, logger.RIDFrom(ctx), logger.RIDFrom(tagged))
	assert.Equal(t, int64(300), SenderID(c))
}

func TestSinkSendsSynchronouslyWithoutDispatcher(t *testing.T) {
	SetDispatcher(nil)
	c := newFakeContext()

	msg := ui.HTMLText("<b>Servers</b>").WithRows(ui.Row(ui.Action("List", "servers_list")))
	require.NoError(t, SinkFor(c).Send(context.Background(), msg))
	require.NoError(t, SendText(c, "plain"))

	require.Len(t, c.out, 2)
	n, kb := Replies(c)
	assert.Equal(t, 2, n)
	assert.True(t, kb)
	assert.Equal(t, "<b>Servers</b>", c.out[0].what)
	assert.Equal(t, tele.ModeHTML, c.out[0].opts.ParseMode)
	require.NotNil(t, c.out[0].opts.ReplyMarkup)
	assert.Equal(t, "servers_list", c.out[0].opts.ReplyMarkup.InlineKeyboard[0][0].Unique)
	assert.Nil(t, c.out[1].opts.ReplyMarkup)
}
