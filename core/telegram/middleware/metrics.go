package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const (
	keyResponses = "responses"
	keyKeyboard  = "kb"
)

// countingContext records how many replies a handler produced through the
// tele.Context helpers and whether any of them carried a keyboard.
type countingContext struct{ tele.Context }

func (c countingContext) count(err error, opts []any) error {
	if err != nil {
		return err
	}
	n, _ := c.Get(keyResponses).(int)
	c.Set(keyResponses, n+1)
	if withKeyboard(opts) {
		c.Set(keyKeyboard, true)
	}
	return nil
}

func withKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v != nil
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		}
	}
	return false
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.count(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.count(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.count(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.count(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.count(c.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware starts per-update reply counters read by GetCounters.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(keyResponses, 0)
		c.Set(keyKeyboard, false)
		return next(countingContext{Context: c})
	}
}

// GetCounters returns the reply count and keyboard flag of the current update.
func GetCounters(c tele.Context) (int, bool) {
	n, _ := c.Get(keyResponses).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return n, kb
}
