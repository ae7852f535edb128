package keyboard

import (
	"github.com/m3rciful/serverhealth/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// Grid lays buttons out n per row.
func Grid(buttons []ui.Button, n int) [][]ui.Button {
	n = max(n, 1)
	rows := make([][]ui.Button, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		rows = append(rows, buttons[i:min(i+n, len(buttons))])
	}
	return rows
}

// Markup converts ui keyboard rows into an inline markup; nil when there are no buttons.
func Markup(rows [][]ui.Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				r = append(r, *markup.URL(b.Text, b.URL).Inline())
				continue
			}
			r = append(r, *markup.Data(b.Text, b.Action, b.Payload).Inline())
		}
		if len(r) > 0 {
			markup.InlineKeyboard = append(markup.InlineKeyboard, r)
		}
	}
	if len(markup.InlineKeyboard) == 0 {
		return nil
	}
	return markup
}
