// Package bot adapts the Telegram transport to the download coordinator and
// the admin commands.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/mediabot/core/logger"
	"github.com/m3rciful/mediabot/core/telegram/keyboard"
	"github.com/m3rciful/mediabot/core/telegram/netutil"
	"github.com/m3rciful/mediabot/internal/coordinator"
	"github.com/m3rciful/mediabot/internal/engine"
	"github.com/m3rciful/mediabot/internal/media"
)

// FormatCallback is the callback unique of format choice buttons.
const FormatCallback = "fmt"

const (
	sendAttempts = 2
	retryBackoff = time.Second
)

// API is the subset of *tele.Bot used by Messenger.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Messenger implements coordinator.Messenger over the Bot API.
type Messenger struct {
	api API
}

// NewMessenger wraps api.
func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

var _ coordinator.Messenger = (*Messenger)(nil)

// Send posts text and returns the new message ID.
func (m *Messenger) Send(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	opts := &tele.SendOptions{}
	if replyTo > 0 {
		opts.ReplyTo = &tele.Message{ID: replyTo, Chat: &tele.Chat{ID: chatID}}
	}
	var id int
	err := withRetry(ctx, "send.text", func() error {
		msg, err := m.api.Send(tele.ChatID(chatID), text, opts)
		if err != nil {
			return err
		}
		id = msg.ID
		return nil
	})
	return id, err
}

// EditText replaces the message text and drops its keyboard.
func (m *Messenger) EditText(ctx context.Context, chatID int64, msgID int, text string) error {
	return withRetry(ctx, "edit.text", func() error {
		_, err := m.api.Edit(stored(chatID, msgID), text)
		if isNotModified(err) {
			return nil
		}
		return err
	})
}

// EditButtons attaches an inline keyboard to the message.
func (m *Messenger) EditButtons(ctx context.Context, chatID int64, msgID int, rows [][]coordinator.Button) error {
	kb := make([][]keyboard.Button, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.Button, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.Button{Text: b.Text, Data: b.Data})
		}
		kb = append(kb, r)
	}
	markup := keyboard.Inline(FormatCallback, kb...)
	return withRetry(ctx, "edit.markup", func() error {
		_, err := m.api.EditReplyMarkup(stored(chatID, msgID), markup)
		return err
	})
}

// EditMedia uploads the artifact in place of the message content.
// Uploads are not retried.
func (m *Messenger) EditMedia(_ context.Context, chatID int64, msgID int, art *engine.Artifact, format media.Format) error {
	if art == nil {
		return fmt.Errorf("bot: nil artifact")
	}
	var input tele.Inputtable
	if format.IsAudio() {
		input = &tele.Audio{File: tele.FromDisk(art.Path), Title: art.Title}
	} else {
		input = &tele.Video{File: tele.FromDisk(art.Path), Streaming: true}
	}
	_, err := m.api.Edit(stored(chatID, msgID), input)
	return err
}

// Ack answers the callback query without a notification.
func (m *Messenger) Ack(ctx context.Context, callbackID, text string) error {
	var resp []*tele.CallbackResponse
	if text != "" {
		resp = append(resp, &tele.CallbackResponse{Text: text})
	}
	return withRetry(ctx, "callback.ack", func() error {
		return m.api.Respond(&tele.Callback{ID: callbackID}, resp...)
	})
}

func stored(chatID int64, msgID int) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(msgID), ChatID: chatID}
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// withRetry repeats fn once more on transient network failures.
func withRetry(ctx context.Context, action string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if err = fn(); err == nil || !netutil.ShouldRetry(err) || attempt == sendAttempts {
			break
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			slog.String("action", action),
			slog.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	if err != nil {
		return fmt.Errorf("bot: %s: %w", action, err)
	}
	return nil
}
