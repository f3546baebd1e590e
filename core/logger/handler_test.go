package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, format logFormat, emit func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	emit(slog.New(newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: w,
		format: format,
	})).With("component", "app"))
	require.NoError(t, w.Close())
	return strings.TrimSpace(buf.String())
}

func TestKVLineFollowsKeyOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(context.Background(), "rid-123"), 42, 7, 9)
	line := render(t, formatKV, func(l *slog.Logger) {
		LogEvent(ctx, l, slog.LevelInfo, "test.event", slog.String("status", "OK"), slog.String("cause", "unit"))
	})

	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	require.GreaterOrEqual(t, len(tokens), len(want), line)
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want %s", i, tokens[i], prefix)
	}
}

func TestJSONLineFollowsKeyOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	line := render(t, formatJSON, func(l *slog.Logger) {
		LogEvent(ctx, l, slog.LevelError, "service.failed", slog.String("status", "fail"), slog.String("err", "boom"))
	})

	require.True(t, strings.HasPrefix(line, `{"ts":`), line)
	pos := -1
	for _, part := range []string{`"level":"ERROR"`, `"component":"app"`, `"event":"service.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`} {
		idx := strings.Index(line, part)
		require.Greater(t, idx, pos, "%s out of order in %s", part, line)
		pos = idx
	}
}

func TestRIDIsCompacted(t *testing.T) {
	ctx := WithRID(context.Background(), "123:456:789")

	kv := render(t, formatKV, func(l *slog.Logger) { LogEvent(ctx, l, slog.LevelInfo, "rid.test") })
	assert.Contains(t, kv, "rid="+CompactRID("123:456:789"))
	assert.NotContains(t, kv, "rid_full=")

	js := render(t, formatJSON, func(l *slog.Logger) { LogEvent(ctx, l, slog.LevelInfo, "rid.test") })
	assert.Contains(t, js, `"rid":"3f.co.lx"`)
	assert.Contains(t, js, `"rid_full":"123:456:789"`)
	assert.Contains(t, js, `"ts_unix_nano"`)
}

func TestValuesAreNormalized(t *testing.T) {
	ctx := context.Background()
	line := render(t, formatKV, func(l *slog.Logger) {
		l.WithGroup("dl").LogAttrs(ctx, slog.LevelInfo, "",
			slog.Duration("duration", 1500*time.Microsecond),
			slog.String("empty", ""),
			slog.String("outcome", "bogus"),
			slog.String("status", " OK"),
			slog.String("title", "two words"),
		)
	})

	assert.Contains(t, line, "dl.duration_ms=2")
	assert.Contains(t, line, `dl.title="two words"`)
	assert.NotContains(t, line, "empty")
	assert.Contains(t, line, "dl.status=ok")
	assert.NotContains(t, line, "outcome")

	line = render(t, formatKV, func(l *slog.Logger) {
		l.WithGroup("dl").LogAttrs(ctx, slog.LevelInfo, "", slog.String("outcome", "FAIL"))
	})
	assert.Contains(t, line, "dl.outcome=fail")
}

func TestDebugBelowLevelIsDropped(t *testing.T) {
	line := render(t, formatKV, func(l *slog.Logger) {
		l.Debug("hidden")
	})
	assert.Empty(t, line)
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "z.a.1", CompactRID("35:10:1"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:x:2", CompactRID("1:x:2"))
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "héll", SanitizeLimit("héllo", 4))
	assert.Empty(t, SanitizeLimit("x", 0))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	n, d := parseRatioSpec("2/5")
	assert.Equal(t, [2]int{2, 5}, [2]int{n, d})
	n, d = parseRatioSpec("10")
	assert.Equal(t, [2]int{1, 10}, [2]int{n, d})
	n, d = parseRatioSpec("x/y")
	assert.Equal(t, [2]int{0, 0}, [2]int{n, d})
}
