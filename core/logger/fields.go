package logger

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// defaultKeyOrder puts the correlation keys first; unknown keys follow sorted.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status", "rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "handler", "operation", "cb_key", "outcome",
	"duration_ms", "took_ms", "messages", "kb", "count", "lang", "mode", "listen",
	"public_url", "db", "host", "port", "target_id", "alias", "format", "url",
	"prompt_id", "title", "path", "users", "err", "err_code", "cause", "attempts",
}

var knownOutcome = map[string]bool{
	"ok": true, "fail": true, "cancelled": true, "rate_limited": true,
}

// fields collects one record's flattened attributes.
type fields map[string]any

func (f fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (f fields) setDefault(key string, v any) {
	if !f.has(key) {
		f[key] = v
	}
}

// add flattens groups into dotted keys under prefix.
func (f fields) add(prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := plainValue(key, v); ok {
		f[k] = val
	}
}

// normalize canonicalizes enumerations and drops empty values. Grouped keys
// ("dl.outcome") are treated like their top-level counterparts.
func (f fields) normalize() {
	for k, v := range f {
		s, isString := v.(string)
		switch {
		case v == nil, isString && s == "":
			delete(f, k)
		case !isString:
		case baseKey(k) == "status":
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				f[k] = s
			} else {
				delete(f, k)
			}
		case baseKey(k) == "outcome":
			if o := strings.ToLower(strings.TrimSpace(s)); knownOutcome[o] {
				f[k] = o
			} else {
				delete(f, k)
			}
		}
	}
}

func baseKey(key string) string {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		return key[i+1:]
	}
	return key
}

func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	default:
		return key + "_ms"
	}
}

func plainValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}
