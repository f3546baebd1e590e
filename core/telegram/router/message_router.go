package router

import (
	tg "github.com/m3rciful/mediabot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextOptions configures TextRoutes.
type TextOptions struct {
	// UnknownText handles text when the registry has no fallback.
	UnknownText tele.HandlerFunc
}

// TextRoutes routes plain text. A bare public command word is resolved
// through the registry; anything else goes to the registry text fallback.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		text := c.Text()
		if reg != nil {
			if name, cmd, ok := reg.LookupCommand(text); ok && cmd.Public() {
				return summarized(c, handlerName(name), cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return summarized(c, "fallback", fb)
			}
		}
		if opts.UnknownText != nil {
			return summarized(c, "unknown_text", opts.UnknownText)
		}
		return nil
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: wrap(handler)}}
}
