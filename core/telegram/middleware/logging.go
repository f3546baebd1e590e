package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/mediabot/core/logger"
	"github.com/m3rciful/mediabot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/mediabot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const receiptTTL = 10 * time.Second

// receipts remembers recently logged update IDs; LoggerMiddleware wraps both
// global and per-route chains, so one update can pass it twice.
type receipts struct {
	mu   sync.Mutex
	seen map[int]time.Time
}

var logged = &receipts{seen: make(map[int]time.Time)}

func (r *receipts) first(id int, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.seen {
		if now.Sub(t) > receiptTTL {
			delete(r.seen, k)
		}
	}
	if _, ok := r.seen[id]; ok {
		return false
	}
	r.seen[id] = now
	return true
}

// LoggerMiddleware builds the per-update logging context (rid, update, user
// and chat ids) and emits one sampled debug line per received update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		user := c.Sender()
		if user != nil {
			userID = user.ID
		}

		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		ctx := logger.WithRID(context.Background(), rid)
		ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
		ctx = logger.WithLogger(ctx, logger.Component("tg"))
		tghelpers.StoreContext(c, ctx)

		if logger.ShouldSampleDebug() && logged.first(upd.ID, time.Now()) {
			attrs := []slog.Attr{slog.String("status", "ok"), slog.String("mode", UpdateKind(upd))}
			if user != nil && user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
			if upd.Callback != nil {
				if key := callbacks.Key(c); key != "" {
					attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 64)))
				}
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}
		return next(c)
	}
}
