package keyboard

import (
	"testing"

	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkupEncodesCallbackData(t *testing.T) {
	m := Markup([][]ui.Button{
		{ui.Action("Refresh", "analytics_server", "5"), ui.Action("End", "analytics_end")},
		{ui.Link("CPU", "https://charts.example/cpu?server=5")},
		{},
	})
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 2)

	assert.Equal(t, "analytics_server", m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "5", m.InlineKeyboard[0][0].Data)
	assert.Equal(t, "analytics_end", m.InlineKeyboard[0][1].Unique)
	assert.Empty(t, m.InlineKeyboard[0][1].Data)
	assert.Equal(t, "https://charts.example/cpu?server=5", m.InlineKeyboard[1][0].URL)
	assert.Empty(t, m.InlineKeyboard[1][0].Data)
}

func TestMarkupWithoutButtonsIsNil(t *testing.T) {
	assert.Nil(t, Markup(nil))
	assert.Nil(t, Markup([][]ui.Button{{}}))
}

func TestGrid(t *testing.T) {
	btns := []ui.Button{ui.Action("a", "x"), ui.Action("b", "x"), ui.Action("c", "x")}
	rows := Grid(btns, 2)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 2)
	assert.Equal(t, "c", rows[1][0].Text)

	assert.Len(t, Grid(btns, 0), 3)
	assert.Empty(t, Grid(nil, 2))
}
