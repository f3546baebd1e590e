package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/m3rciful/mediabot/core/logger"
	"github.com/m3rciful/mediabot/internal/media"
)

// DefaultTimeout bounds a single engine invocation.
const DefaultTimeout = 10 * time.Minute

// Options configure the yt-dlp engine.
type Options struct {
	Timeout time.Duration
	// SkipInstall resolves yt-dlp from PATH instead of downloading it.
	// The go-ytdlp cache directory is still searched first.
	SkipInstall bool
}

// YTDLP drives the yt-dlp binary.
type YTDLP struct {
	workdir string
	timeout time.Duration
}

// NewYTDLP installs or resolves yt-dlp and performs one update.
// An update failure is logged and does not prevent startup.
func NewYTDLP(ctx context.Context, workdir string, opts Options) (*YTDLP, error) {
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create workdir: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := time.Now()
	// A system binary is accepted at any version; the update below moves it forward.
	installed, err := ytdlp.Install(ctx, &ytdlp.InstallOptions{
		DisableDownload:      opts.SkipInstall,
		AllowVersionMismatch: opts.SkipInstall,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: install yt-dlp: %w", err)
	}
	logger.Engine.Info("yt-dlp ready",
		slog.String("event", "engine.install"),
		slog.String("path", installed.Executable),
		slog.String("version", installed.Version),
		slog.Duration("took_ms", logger.Took(start)),
	)

	y := &YTDLP{workdir: workdir, timeout: timeout}
	if err := y.SelfUpdate(ctx); err != nil {
		logger.Engine.Warn("initial update failed",
			slog.String("event", "engine.update"),
			slog.String("status", "fail"),
			slog.Any("err", err),
		)
	}
	return y, nil
}

// FetchMetadata reads the item info without downloading.
func (y *YTDLP) FetchMetadata(ctx context.Context, url string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	res, err := ytdlp.New().
		SkipDownload().
		DumpJSON().
		NoPlaylist().
		Run(ctx, url)
	if err != nil {
		return Metadata{}, fmt.Errorf("yt-dlp metadata: %w", err)
	}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return Metadata{}, fmt.Errorf("yt-dlp metadata: %w", err)
	}
	if len(infos) == 0 {
		return Metadata{}, fmt.Errorf("yt-dlp metadata: empty result")
	}

	meta := Metadata{ID: infos[0].ID}
	if infos[0].Title != nil {
		meta.Title = *infos[0].Title
	}
	return meta, nil
}

// Download stores the media under a unique name in the workdir.
func (y *YTDLP) Download(ctx context.Context, url string, format media.Format) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	base := uuid.NewString()
	cmd := ytdlp.New().
		NoPlaylist().
		NoProgress().
		Format(format.Selector()).
		Output(filepath.Join(y.workdir, base+".%(ext)s")).
		Print("after_move:filepath")
	if format.IsAudio() {
		cmd = cmd.ExtractAudio().AudioFormat("mp3").AudioQuality("0")
	} else {
		cmd = cmd.MergeOutputFormat("mp4")
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		removeByPrefix(y.workdir, base)
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}

	path := lastLine(res.Stdout)
	if path == "" {
		path = findByPrefix(y.workdir, base)
	}
	if path == "" {
		return "", ErrNoArtifact
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoArtifact, err)
	}
	return path, nil
}

// SelfUpdate runs yt-dlp's own updater.
func (y *YTDLP) SelfUpdate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	res, err := ytdlp.New().Update(ctx)
	if err != nil {
		return fmt.Errorf("yt-dlp update: %w", err)
	}
	logger.Engine.Info("yt-dlp updated",
		slog.String("event", "engine.update"),
		slog.String("status", "ok"),
		slog.String("output", logger.SanitizeLimit(lastLine(res.Stdout), 200)),
	)
	return nil
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func findByPrefix(dir, base string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, base+".*"))
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		return m
	}
	return ""
}

func removeByPrefix(dir, base string) {
	matches, _ := filepath.Glob(filepath.Join(dir, base+".*"))
	for _, m := range matches {
		_ = os.Remove(m)
	}
}
