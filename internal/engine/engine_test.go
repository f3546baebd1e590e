package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/mediabot/internal/media"
)

type fakeEngine struct {
	meta      Metadata
	metaErr   error
	path      string
	dlErr     error
	updateErr error

	active  atomic.Int32
	overlap atomic.Bool
	updates atomic.Int32
}

func (f *fakeEngine) enter() func() {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	time.Sleep(2 * time.Millisecond)
	return func() { f.active.Add(-1) }
}

func (f *fakeEngine) FetchMetadata(context.Context, string) (Metadata, error) {
	defer f.enter()()
	return f.meta, f.metaErr
}

func (f *fakeEngine) Download(context.Context, string, media.Format) (string, error) {
	defer f.enter()()
	return f.path, f.dlErr
}

func (f *fakeEngine) SelfUpdate(context.Context) error {
	defer f.enter()()
	f.updates.Add(1)
	return f.updateErr
}

func TestHandleDownloadUsesTitle(t *testing.T) {
	h := NewHandle(&fakeEngine{meta: Metadata{ID: "abc", Title: "Song"}, path: "/tmp/x.mp3"})
	art, err := h.Download(context.Background(), "https://example.com", media.AudioOnly)
	require.NoError(t, err)
	assert.Equal(t, &Artifact{Path: "/tmp/x.mp3", Title: "Song"}, art)
}

func TestHandleDownloadFallsBackToID(t *testing.T) {
	h := NewHandle(&fakeEngine{meta: Metadata{ID: "abc"}, path: "/tmp/x.mp4"})
	art, err := h.Download(context.Background(), "https://example.com", media.HD)
	require.NoError(t, err)
	assert.Equal(t, "abc", art.Title)
}

func TestHandleDownloadErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := NewHandle(&fakeEngine{metaErr: boom}).Download(context.Background(), "u", media.HD)
	assert.ErrorIs(t, err, boom)

	_, err = NewHandle(&fakeEngine{dlErr: boom}).Download(context.Background(), "u", media.HD)
	assert.ErrorIs(t, err, boom)

	_, err = NewHandle(&fakeEngine{}).Download(context.Background(), "u", media.HD)
	assert.ErrorIs(t, err, ErrNoArtifact)
}

func TestHandleSerializesOperations(t *testing.T) {
	eng := &fakeEngine{meta: Metadata{ID: "x"}, path: "/tmp/x"}
	h := NewHandle(eng)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = h.Download(context.Background(), "u", media.LowRes)
		}()
		go func() {
			defer wg.Done()
			_ = h.SelfUpdate(context.Background())
		}()
	}
	wg.Wait()

	assert.False(t, eng.overlap.Load())
	assert.Equal(t, int32(8), eng.updates.Load())
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "/w/a.mp4", lastLine("[info] x\n/w/a.mp4\n\n"))
	assert.Equal(t, "", lastLine("  \n"))
}

func TestFindAndRemoveByPrefix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"id.mp4.part", "id.mp4", "other.mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	assert.Equal(t, filepath.Join(dir, "id.mp4"), findByPrefix(dir, "id"))
	assert.Empty(t, findByPrefix(dir, "missing"))

	removeByPrefix(dir, "id")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "other.mp4", entries[0].Name())
}
