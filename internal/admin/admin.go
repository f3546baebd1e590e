// Package admin implements the allow-list management commands.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/mediabot/core/logger"
	"github.com/m3rciful/mediabot/internal/store"
	"github.com/m3rciful/mediabot/internal/texts"
)

// Command describes one admin command for help output and registration.
type Command struct {
	Name string
	Key  texts.Key
}

// Commands lists the admin commands in help order.
var Commands = []Command{
	{Name: "/help", Key: texts.HelpCommandHelp},
	{Name: "/add", Key: texts.HelpCommandAdd},
	{Name: "/remove", Key: texts.HelpCommandRemove},
	{Name: "/list", Key: texts.HelpCommandList},
}

// Handler mutates the registry on behalf of the admin. Every method returns
// the reply text; an empty string means no reply.
type Handler struct {
	store *store.Store
}

// New returns a Handler over st.
func New(st *store.Store) *Handler {
	return &Handler{store: st}
}

// Help lists the commands.
func (h *Handler) Help(lang texts.Language) string {
	var b strings.Builder
	b.WriteString(texts.Text(lang, texts.HelpHeading))
	b.WriteString("\n")
	for _, c := range Commands {
		fmt.Fprintf(&b, "\n%s - %s", c.Name, texts.Text(lang, c.Key))
	}
	return b.String()
}

// Add grants access to args[0] under alias args[1]. Existing users are left untouched.
func (h *Handler) Add(ctx context.Context, lang texts.Language, args []string) string {
	if len(args) != 2 {
		return texts.Text(lang, texts.AddUsage)
	}
	id, ok := parseUserID(args[0])
	if !ok {
		return texts.Text(lang, texts.InvalidUserID)
	}
	if h.store.Contains(id) {
		return ""
	}
	h.store.Add(ctx, id, args[1])
	logger.Info(ctx, "admin", "user.add", slog.Int64("target_id", id), slog.String("alias", args[1]))
	return texts.Text(lang, texts.UserAdded)
}

// Remove revokes access of args[0]. Unknown users are ignored.
func (h *Handler) Remove(ctx context.Context, lang texts.Language, args []string) string {
	if len(args) != 1 {
		return texts.Text(lang, texts.RemoveUsage)
	}
	id, ok := parseUserID(args[0])
	if !ok {
		return texts.Text(lang, texts.InvalidUserID)
	}
	if !h.store.Contains(id) {
		return ""
	}
	h.store.Remove(ctx, id)
	logger.Info(ctx, "admin", "user.remove", slog.Int64("target_id", id))
	return texts.Text(lang, texts.UserRemoved)
}

// List renders every user with their download counters.
func (h *Handler) List(lang texts.Language) string {
	users := h.store.List()
	if len(users) == 0 {
		return texts.Text(lang, texts.NoUsers)
	}
	lines := make([]string, 0, len(users)+1)
	lines = append(lines, texts.Text(lang, texts.UsersHeading))
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("%s (%d): [%s]", u.Alias, u.ID, texts.Downloads(u.Counts.Videos, u.Counts.Audios)))
	}
	return strings.Join(lines, "\n")
}

func parseUserID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
