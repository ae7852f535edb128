package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers used when an update matches no
// command, callback or active conversation.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
