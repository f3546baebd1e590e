package router

import (
	"log/slog"

	tg "github.com/m3rciful/mediabot/core/telegram"
	"github.com/m3rciful/mediabot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions configures CallbackRoute.
type CallbackOptions struct {
	// NotFound is used when neither a key handler nor the registry fallback exists.
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches every callback query by its unique key. The
// selected handler decides whether and how to answer the query.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: wrap(func(c tele.Context) error {
			if c.Callback() == nil {
				return nil
			}
			key := callbacks.Key(c)
			extras := []slog.Attr{slog.String("cb_key", key)}

			h, ok := reg.GetCallback(key)
			if !ok {
				if h = reg.CallbackNotFound(); h == nil {
					h = opts.NotFound
				}
				extras = append(extras, slog.String("cause", "not_found"))
			}
			if h == nil {
				return nil
			}
			return summarized(c, "callback."+handlerName(key), h, extras...)
		}),
	}
}
