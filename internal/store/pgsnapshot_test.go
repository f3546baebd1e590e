package store

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `CREATE TABLE IF NOT EXISTS users (
    id          BIGINT PRIMARY KEY,
    alias       TEXT   NOT NULL DEFAULT '',
    video_count BIGINT NOT NULL DEFAULT 0,
    audio_count BIGINT NOT NULL DEFAULT 0
)`

func TestPostgresSnapshotRoundTrip(t *testing.T) {
	dsn := os.Getenv("MEDIABOT_TEST_DSN")
	if dsn == "" {
		t.Skip("MEDIABOT_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, testSchema)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM users`)
	require.NoError(t, err)

	snap := NewPostgresSnapshot(db)
	want := []UserRecord{
		{ID: 10, Alias: "a", Counts: Counts{Videos: 1}},
		{ID: 20, Alias: "b", Counts: Counts{Audios: 5}},
	}
	require.NoError(t, snap.Save(ctx, want))
	require.NoError(t, snap.Save(ctx, want[1:]))

	got, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want[1:], got)
}
