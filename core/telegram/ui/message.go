// Package ui holds the transport-neutral render instruction produced by
// conversation handlers. The telegram layer turns it into API calls.
package ui

// ParseMode selects how the text is interpreted by the client.
type ParseMode string

const (
	Plain ParseMode = ""
	HTML  ParseMode = "HTML"
)

// Button is one inline keyboard button. Exactly one of Action or URL is set.
type Button struct {
	Text    string `json:"text"`
	Action  string `json:"action,omitempty"`
	Payload string `json:"payload,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Message is a single outbound reply: text plus an optional inline keyboard.
type Message struct {
	Text      string     `json:"text"`
	ParseMode ParseMode  `json:"parse_mode,omitempty"`
	Keyboard  [][]Button `json:"keyboard,omitempty"`
}

// Text returns a plain message.
func Text(s string) Message { return Message{Text: s} }

// HTMLText returns a message rendered with HTML parse mode.
func HTMLText(s string) Message { return Message{Text: s, ParseMode: HTML} }

// WithRows appends keyboard rows and returns the message.
func (m Message) WithRows(rows ...[]Button) Message {
	m.Keyboard = append(append([][]Button(nil), m.Keyboard...), rows...)
	return m
}

// HasKeyboard reports whether the message carries any button.
func (m Message) HasKeyboard() bool {
	for _, row := range m.Keyboard {
		if len(row) > 0 {
			return true
		}
	}
	return false
}

// Action builds a callback button.
func Action(text, action string, payload ...string) Button {
	b := Button{Text: text, Action: action}
	if len(payload) > 0 {
		b.Payload = payload[0]
	}
	return b
}

// Link builds a URL button.
func Link(text, url string) Button { return Button{Text: text, URL: url} }

// Row is shorthand for a keyboard row.
func Row(buttons ...Button) []Button { return buttons }
