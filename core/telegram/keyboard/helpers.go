// Package keyboard builds inline keyboards whose buttons share one callback key.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is one inline button; Data travels back in the callback payload.
type Button struct {
	Text string
	Data string
}

// Inline lays rows out as an inline keyboard routed to the unique callback key.
func Inline(unique string, rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, *markup.Data(b.Text, unique, b.Data).Inline())
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, line)
	}
	return markup
}

// Column places every button on its own row.
func Column(unique string, buttons ...Button) *tele.ReplyMarkup {
	rows := make([][]Button, len(buttons))
	for i, b := range buttons {
		rows[i] = []Button{b}
	}
	return Inline(unique, rows...)
}
