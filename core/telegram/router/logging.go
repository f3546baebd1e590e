// Package router turns registry entries into telebot routes that carry the
// shared middleware and log one summary line per handled update.
package router

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/mediabot/core/logger"
	tghelpers "github.com/m3rciful/mediabot/core/telegram/helpers"
	"github.com/m3rciful/mediabot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summarized runs fn under handler name and logs the handler.handled line.
func summarized(c tele.Context, name string, fn tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	err := fn(c)

	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	replies, kb := middleware.GetCounters(c)
	attrs := append([]slog.Attr{
		slog.String("status", outcome),
		slog.String("outcome", outcome),
		slog.Int("messages", replies),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(start)),
	}, extras...)
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
	return err
}

// handlerName turns "/Add" into "add" and "" into "unknown".
func handlerName(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(raw, " ", "_"))
}

func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}
