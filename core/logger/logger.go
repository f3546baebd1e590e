// Package logger provides the process-wide structured slog logger and the
// context helpers that correlate log lines with Telegram updates.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/mediabot/core/buildinfo"
	coreconfig "github.com/m3rciful/mediabot/core/config"
)

const (
	defaultSampleNum = 1
	defaultSampleDen = 50
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	out     *asyncWriter
	closers []io.Closer

	level        slog.LevelVar
	debugSampler = newRatioSampler(defaultSampleNum, defaultSampleDen)
	traceAll     bool

	// L is the root logger. Before InitLogger it is slog's default.
	L *slog.Logger

	// Component loggers for packages that log without a request context.
	DB     *slog.Logger
	MIG    *slog.Logger
	TG     *slog.Logger
	TWire  *slog.Logger
	Engine *slog.Logger
)

func init() {
	L = slog.Default()
	deriveComponents()
}

// InitLogger installs the structured handler as slog's default. Later calls are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		if cfg == nil {
			cfg = &coreconfig.Config{}
		}
		lc := cfg.Logging
		level.Set(parseLevel(lc.Level))
		debugSampler.Set(parseSample(lc.DebugSample))
		traceAll = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		var sinks []io.Writer
		sinks, closers = openSinks(lc)
		out = newAsyncWriter(sinks, 0)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   out,
			format:   parseFormat(lc),
			keyOrder: parseKeyOrder(lc.KeysOrder),
		}))
		slog.SetDefault(L)
		deriveComponents()

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", profile(lc)),
		)
	})
	return nil
}

func deriveComponents() {
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	TG = L.With("component", "tg")
	TWire = L.With("component", "tg.wire")
	Engine = L.With("component", "engine")
}

// Shutdown flushes queued lines and closes file sinks.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		var errs []error
		if out != nil {
			errs = append(errs, out.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if p := profile(lc); p == "debug" || p == "dev" {
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return defaultKeyOrder
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return defaultKeyOrder
	}
	return order
}

func parseSample(spec string) (int, int) {
	if strings.TrimSpace(spec) == "" {
		return defaultSampleNum, defaultSampleDen
	}
	num, den := parseRatioSpec(spec)
	if num < 0 || den < 0 || (num == 0) != (den == 0) {
		return defaultSampleNum, defaultSampleDen
	}
	return num, den
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		return p
	}
	return "prod"
}

// openSinks returns stdout plus the configured log file. A file that cannot
// be opened is reported on stderr and skipped.
func openSinks(lc coreconfig.LoggingConfig) ([]io.Writer, []io.Closer) {
	sinks := []io.Writer{os.Stdout}
	dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir == "" || name == "" {
		return sinks, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v", dir, err)
		return sinks, nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open log file %s: %v", path, err)
		return sinks, nil
	}
	return append(sinks, f), []io.Closer{f}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug line should be emitted.
// TRACE=1 lets every line through.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}

// Component returns L scoped to the component attribute.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes an attribute-only record with the event key set.
// A nil log falls back to the context logger.
func LogEvent(ctx context.Context, log *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	log.LogAttrs(ctx, lvl, "", attrs...)
}

// Event logs event for component at lvl.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// RoundMS rounds d to milliseconds; negative durations become 0.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Took is RoundMS(time.Since(start)).
func Took(start time.Time) time.Duration { return RoundMS(time.Since(start)) }

// SummarizeStrings joins at most limit values and reports whether any were cut.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
