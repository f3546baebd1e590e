package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/mediabot/core/logger"
	"github.com/m3rciful/mediabot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry collects commands, callback handlers and fallbacks before routes are built.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback fallback just
// answers the query.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond()
		},
	}
}

// RegisterCommand adds cmd under name ("/name"). Invalid or duplicate
// registrations are logged and ignored.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	reason := ""
	switch {
	case cmd.Handler == nil || cmd.Description == "":
		reason = "invalid"
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		reason = "no_slash_prefix"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; dup && reason == "" {
		reason = "duplicate"
	}
	if reason != "" {
		logger.TWire.Warn("command skipped",
			slog.String("event", "register.command.skip"),
			slog.String("operation", name),
			slog.String("cause", reason),
		)
		return
	}
	r.commands[name] = cmd
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// ListCommands returns commands sorted by name; publicOnly drops admin and hidden ones.
func (r *Registry) ListCommands(publicOnly bool) []tele.Command {
	var list []tele.Command
	for name, cmd := range r.Commands() {
		if publicOnly && !cmd.Public() {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves name (with or without the slash) or one of the aliases.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = "/" + strings.TrimPrefix(strings.TrimSpace(name), "/")
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if "/"+strings.TrimPrefix(alias, "/") == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// RegisterCallback binds handler to a button unique key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return errors.New("telegram: invalid callback registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("telegram: callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler bound to key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// SetCallbackNotFound replaces the unknown-callback fallback; nil is ignored.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that is not a public command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// InitBotCommands publishes the public command menu and, when adminID is
// set, the full menu scoped to the admin's private chat.
func InitBotCommands(bot *tele.Bot, reg *Registry, adminID int64) {
	publish := func(scope string, cmds []tele.Command, opts ...any) {
		var err error
		if len(cmds) == 0 {
			err = bot.DeleteCommands(opts...)
		} else {
			err = bot.SetCommands(append([]any{cmds}, opts...)...)
		}
		if err != nil {
			logger.TWire.Error("command menu not published",
				slog.String("event", "register.commands.set_failed"),
				slog.String("mode", scope),
				slog.String("err", err.Error()),
			)
		}
	}
	publish("public", reg.ListCommands(true))
	if adminID != 0 {
		publish("admin", reg.ListCommands(false), tele.CommandScope{Type: tele.CommandScopeChat, ChatID: adminID})
	}
}
