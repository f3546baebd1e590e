// Package coordinator implements the two-phase download flow: a user sends a
// link, picks a format on the prompt, and receives the media in place of it.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/m3rciful/mediabot/core/logger"
	"github.com/m3rciful/mediabot/internal/engine"
	"github.com/m3rciful/mediabot/internal/media"
	"github.com/m3rciful/mediabot/internal/metrics"
	"github.com/m3rciful/mediabot/internal/store"
	"github.com/m3rciful/mediabot/internal/texts"
)

// Button is an inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	// Send posts text to chatID, optionally replying to replyTo, and returns the new message ID.
	Send(ctx context.Context, chatID int64, replyTo int, text string) (int, error)
	EditText(ctx context.Context, chatID int64, msgID int, text string) error
	EditButtons(ctx context.Context, chatID int64, msgID int, rows [][]Button) error
	// EditMedia replaces the message content with the downloaded file.
	EditMedia(ctx context.Context, chatID int64, msgID int, art *engine.Artifact, format media.Format) error
	// Ack answers the callback; a non-empty text is shown to the user as a notification.
	Ack(ctx context.Context, callbackID, text string) error
}

// Downloader produces a local artifact for a URL.
type Downloader interface {
	Download(ctx context.Context, url string, format media.Format) (*engine.Artifact, error)
}

// Message is an inbound text message.
type Message struct {
	SenderID  int64
	ChatID    int64
	MessageID int
	Text      string
	Language  string
}

// Callback is an inbound button press.
type Callback struct {
	ID       string
	SenderID int64
	ChatID   int64
	// MessageID is the message carrying the pressed button, zero when unknown.
	MessageID int
	Data      string
	Language  string
}

// Coordinator drives download requests.
type Coordinator struct {
	store      *store.Store
	downloader Downloader
	messenger  Messenger
	metrics    *metrics.Metrics
}

// New builds a Coordinator. m may be nil.
func New(st *store.Store, dl Downloader, msg Messenger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{store: st, downloader: dl, messenger: msg, metrics: m}
}

// HandleMessage answers a link with the format prompt. Messages from users
// outside the allow-list are dropped without a reply.
func (c *Coordinator) HandleMessage(ctx context.Context, m Message) error {
	if m.SenderID == 0 || !c.store.Contains(m.SenderID) {
		return nil
	}
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return nil
	}
	lang := texts.LanguageFrom(m.Language)

	link, ok := parseLink(text)
	if !ok {
		if _, err := c.messenger.Send(ctx, m.ChatID, 0, texts.Text(lang, texts.SendALink)); err != nil {
			return fmt.Errorf("coordinator: send hint: %w", err)
		}
		return nil
	}

	prompt, err := c.messenger.Send(ctx, m.ChatID, m.MessageID, texts.Text(lang, texts.ChooseFormat))
	if err != nil {
		return fmt.Errorf("coordinator: send prompt: %w", err)
	}
	c.store.SetPending(m.SenderID, store.Pending{URL: link, Prompt: prompt})

	if err := c.messenger.EditButtons(ctx, m.ChatID, prompt, formatButtons(lang, prompt)); err != nil {
		return fmt.Errorf("coordinator: attach buttons: %w", err)
	}
	logger.Debug(ctx, "download", "download.prompt",
		slog.Int64("user_id", m.SenderID),
		slog.Int("prompt_id", prompt),
	)
	return nil
}

// HandleCallback resolves a format choice. Callbacks from users outside the
// allow-list are neither acknowledged nor answered.
func (c *Coordinator) HandleCallback(ctx context.Context, cb Callback) error {
	if cb.SenderID == 0 || !c.store.Contains(cb.SenderID) {
		return nil
	}
	chatID := cb.ChatID
	if chatID == 0 {
		chatID = cb.SenderID
	}
	lang := texts.LanguageFrom(cb.Language)

	// Without a message to edit, a broken token is reported in the callback answer.
	tok, decodeErr := media.Decode(cb.Data)
	var notice string
	if decodeErr != nil && cb.MessageID == 0 {
		notice = texts.Text(lang, texts.BrokenSession)
	}
	if err := c.messenger.Ack(ctx, cb.ID, notice); err != nil {
		logger.Warn(ctx, "download", "callback.ack", slog.String("status", "fail"), slog.Any("err", err))
	}

	if decodeErr != nil {
		logger.Warn(ctx, "download", "download.session", slog.String("reason", "bad_token"), slog.Any("err", decodeErr))
		if cb.MessageID == 0 {
			return nil
		}
		return c.editText(ctx, chatID, cb.MessageID, texts.Text(lang, texts.BrokenSession))
	}

	link, ok := c.store.TakePendingFor(cb.SenderID, tok.Message)
	if !ok {
		logger.Info(ctx, "download", "download.session",
			slog.String("reason", "no_pending"),
			slog.Int("prompt_id", tok.Message),
		)
		return c.editText(ctx, chatID, tok.Message, texts.Text(lang, texts.BrokenSession))
	}

	logger.Info(ctx, "download", "download.request",
		slog.Int64("user_id", cb.SenderID),
		slog.String("url", link),
		slog.String("format", tok.Format.String()),
	)
	if err := c.editText(ctx, chatID, tok.Message, texts.Text(lang, texts.PleaseWait)); err != nil {
		return err
	}

	start := time.Now()
	art, err := c.downloader.Download(ctx, link, tok.Format)
	if err != nil {
		c.metrics.ObserveDownload(tok.Format.String(), "fail", time.Since(start))
		logger.Error(ctx, "download", "download.failed",
			slog.String("url", link),
			slog.String("format", tok.Format.String()),
			slog.Any("err", err),
		)
		return c.editText(ctx, chatID, tok.Message, texts.Text(lang, texts.FailedToDownload))
	}
	defer removeArtifact(ctx, art.Path)

	if err := c.messenger.EditMedia(ctx, chatID, tok.Message, art, tok.Format); err != nil {
		c.metrics.ObserveDownload(tok.Format.String(), "delivery_fail", time.Since(start))
		logger.Error(ctx, "download", "download.deliver",
			slog.String("status", "fail"),
			slog.String("path", art.Path),
			slog.Any("err", err),
		)
		return c.editText(ctx, chatID, tok.Message, texts.Text(lang, texts.FailedToDownload))
	}

	c.store.RecordDownload(ctx, cb.SenderID, tok.Format.IsAudio())
	c.metrics.ObserveDownload(tok.Format.String(), "ok", time.Since(start))
	logger.Info(ctx, "download", "download.deliver",
		slog.String("status", "ok"),
		slog.String("title", art.Title),
		slog.Duration("took_ms", logger.Took(start)),
	)
	return nil
}

func (c *Coordinator) editText(ctx context.Context, chatID int64, msgID int, text string) error {
	if err := c.messenger.EditText(ctx, chatID, msgID, text); err != nil {
		return fmt.Errorf("coordinator: edit message %d: %w", msgID, err)
	}
	return nil
}

func formatButtons(lang texts.Language, prompt int) [][]Button {
	formats := media.All()
	rows := make([][]Button, 0, len(formats))
	for _, f := range formats {
		rows = append(rows, []Button{{
			Text: texts.FormatLabel(lang, f),
			Data: media.Token{Message: prompt, Format: f}.Encode(),
		}})
	}
	return rows
}

// parseLink accepts absolute http(s) URLs with a host.
func parseLink(text string) (string, bool) {
	u, err := url.Parse(text)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	return u.String(), true
}

func removeArtifact(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn(ctx, "download", "artifact.remove", slog.String("path", path), slog.Any("err", err))
	}
}
