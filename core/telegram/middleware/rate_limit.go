package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/mediabot/core/logger"
	tghelpers "github.com/m3rciful/mediabot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Update kinds understood by RateLimitOptions.Exclude.
const (
	KindCallback = "callback"
	KindMessage  = "message"
	KindOther    = "other"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between two updates of one user.
	Interval time.Duration
	// Exclude lists update kinds that bypass the limit.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// UpdateKind classifies the update for rate limit exclusions.
func UpdateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return KindCallback
	case u.Message != nil:
		return KindMessage
	default:
		return KindOther
	}
}

// RateLimitMiddleware drops updates that arrive from the same user within Interval.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var (
		mu       sync.Mutex
		lastSeen = make(map[int64]time.Time)
	)
	allow := func(userID int64) bool {
		t := now()
		mu.Lock()
		defer mu.Unlock()
		if last, ok := lastSeen[userID]; ok && t.Sub(last) < opts.Interval {
			return false
		}
		lastSeen[userID] = t
		return true
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip || allow(user.ID) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("mode", kind),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
