// Package engine wraps the external media download tool.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/mediabot/core/logger"
	"github.com/m3rciful/mediabot/internal/media"
)

// ErrNoArtifact is returned when a download finished without a file on disk.
var ErrNoArtifact = errors.New("engine: no artifact produced")

// Metadata describes a remote media item.
type Metadata struct {
	ID    string
	Title string
}

// Engine is the download backend.
type Engine interface {
	FetchMetadata(ctx context.Context, url string) (Metadata, error)
	// Download stores the media in the requested format and returns the local path.
	Download(ctx context.Context, url string, format media.Format) (string, error)
	SelfUpdate(ctx context.Context) error
}

// Artifact is a downloaded file ready for delivery.
type Artifact struct {
	Path  string
	Title string
}

// Handle serializes every engine operation.
type Handle struct {
	mu  sync.Mutex
	eng Engine
}

// NewHandle wraps eng.
func NewHandle(eng Engine) *Handle {
	return &Handle{eng: eng}
}

// Download fetches metadata and the media itself while holding the engine lock.
func (h *Handle) Download(ctx context.Context, url string, format media.Format) (*Artifact, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	meta, err := h.eng.FetchMetadata(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("engine: metadata: %w", err)
	}
	path, err := h.eng.Download(ctx, url, format)
	if err != nil {
		return nil, fmt.Errorf("engine: download: %w", err)
	}
	if path == "" {
		return nil, ErrNoArtifact
	}

	title := meta.Title
	if title == "" {
		title = meta.ID
	}
	logger.Info(ctx, "engine", "engine.download",
		slog.String("status", "ok"),
		slog.String("format", format.String()),
		slog.String("path", path),
		slog.Duration("took_ms", logger.Took(start)),
	)
	return &Artifact{Path: path, Title: title}, nil
}

// SelfUpdate updates the engine while holding the engine lock.
func (h *Handle) SelfUpdate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.eng.SelfUpdate(ctx); err != nil {
		return fmt.Errorf("engine: update: %w", err)
	}
	return nil
}
