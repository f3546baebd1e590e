package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corebootstrap "github.com/m3rciful/mediabot/core/bootstrap"
	"github.com/m3rciful/mediabot/internal/config"
	"github.com/m3rciful/mediabot/internal/engine"
	"github.com/m3rciful/mediabot/internal/media"
)

type nopEngine struct{}

func (nopEngine) FetchMetadata(context.Context, string) (engine.Metadata, error) {
	return engine.Metadata{}, nil
}

func (nopEngine) Download(context.Context, string, media.Format) (string, error) {
	return "", errors.New("not implemented")
}

func (nopEngine) SelfUpdate(context.Context) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Telegram.Token = "1:test"
	cfg.Telegram.AdminID = 1
	cfg.App.Workdir = filepath.Join(t.TempDir(), "work")
	require.NoError(t, config.Normalize(cfg))
	return cfg
}

func testOptions(boots *[]corebootstrap.Options) Options {
	return Options{
		Bootstrap: func(o corebootstrap.Options) (*corebootstrap.Result, error) {
			*boots = append(*boots, o)
			return &corebootstrap.Result{}, nil
		},
		NewEngine: func(context.Context, string, engine.Options) (engine.Engine, error) {
			return nopEngine{}, nil
		},
	}
}

func TestNewWithFileStorage(t *testing.T) {
	var boots []corebootstrap.Options
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, testOptions(&boots))
	require.NoError(t, err)

	require.Len(t, boots, 1)
	assert.False(t, boots[0].UseDatabase)
	assert.DirExists(t, cfg.App.Workdir)
	assert.Empty(t, a.Store().List())

	a.Store().Add(context.Background(), 9, "x")
	assert.FileExists(t, cfg.Storage.File)
}

func TestRunOptionsAndTasks(t *testing.T) {
	var boots []corebootstrap.Options
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, testOptions(&boots))
	require.NoError(t, err)

	ro, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, cfg.CoreConfig(), ro.Config)
	// Four admin commands, the text route and the callback route.
	assert.Len(t, ro.Routes, 6)
	require.NotEmpty(t, ro.Middlewares)
	assert.Equal(t, "allow_list", ro.Middlewares[0].Name)
	_, ok := ro.Registry.GetCallback("fmt")
	assert.True(t, ok)

	assert.Len(t, a.BackgroundTasks(), 1)

	cfg.Metrics.Listen = "127.0.0.1:0"
	tasks := a.BackgroundTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "metrics", tasks[1].Name)
}

func TestNewPropagatesEngineFailure(t *testing.T) {
	var boots []corebootstrap.Options
	opts := testOptions(&boots)
	boom := errors.New("no yt-dlp")
	opts.NewEngine = func(context.Context, string, engine.Options) (engine.Engine, error) { return nil, boom }

	_, err := New(context.Background(), testConfig(t), opts)
	require.ErrorIs(t, err, boom)
}

func TestPostgresRequiresConnection(t *testing.T) {
	var boots []corebootstrap.Options
	cfg := testConfig(t)
	cfg.Storage.Driver = config.StoragePostgres

	_, err := New(context.Background(), cfg, testOptions(&boots))
	require.Error(t, err)
	require.Len(t, boots, 1)
	assert.True(t, boots[0].UseDatabase)
}
