package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/mediabot/core/logger"
	"github.com/m3rciful/mediabot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes helper sends through d; nil makes them synchronous.
func SetDispatcher(d *sender.Dispatcher) { dispatcher.Store(d) }

// deliver queues run on the dispatcher, or runs it inline when there is no
// dispatcher or the queue cannot take it.
func deliver(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("operation", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText sends plain text to the update's chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := make([]any, 0, 1)
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return deliver(c, "send.text", "sendMessage", func() error {
		return c.Send(text, args...)
	})
}

// ReplyText sends plain text as a reply to the update's message.
func ReplyText(c tele.Context, text string) error {
	opts := &tele.SendOptions{}
	if msg := c.Message(); msg != nil {
		opts.ReplyTo = msg
	}
	return SendText(c, text, opts)
}
