// Package callbacks decodes inline button callback data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Split returns the button's unique key and payload. Telebot fills
// cb.Unique only when a handler is bound to that key; otherwise Data still
// holds the raw "\f<unique>|<payload>" form.
func Split(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// Key is the unique part of the current callback, if any.
func Key(c tele.Context) string {
	k, _ := Split(c.Callback())
	return k
}

// Payload is the data part of the current callback, if any.
func Payload(c tele.Context) string {
	_, p := Split(c.Callback())
	return p
}
