package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/mediabot/core/telegram"
	"github.com/m3rciful/mediabot/core/telegram/callbacks"
	"github.com/m3rciful/mediabot/core/telegram/commands"
	tghelpers "github.com/m3rciful/mediabot/core/telegram/helpers"
	"github.com/m3rciful/mediabot/internal/admin"
	"github.com/m3rciful/mediabot/internal/coordinator"
	"github.com/m3rciful/mediabot/internal/texts"
)

// Flow is the download side of the bot.
type Flow interface {
	HandleMessage(ctx context.Context, m coordinator.Message) error
	HandleCallback(ctx context.Context, cb coordinator.Callback) error
}

// FlowFactory binds the download flow to the API of the bot serving an update.
type FlowFactory func(api API) Flow

// NewFlow returns a FlowFactory building coordinators over a Messenger.
func NewFlow(build func(coordinator.Messenger) Flow) FlowFactory {
	return func(api API) Flow { return build(NewMessenger(api)) }
}

// Handlers converts Telegram updates into coordinator events and admin replies.
type Handlers struct {
	flow  FlowFactory
	admin *admin.Handler
}

// NewHandlers returns handlers for flow and adm.
func NewHandlers(flow FlowFactory, adm *admin.Handler) *Handlers {
	return &Handlers{flow: flow, admin: adm}
}

// Register wires text, callback and admin command handlers into reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.SetTextFallback(h.OnText)
	if err := reg.RegisterCallback(FormatCallback, h.OnCallback); err != nil {
		return err
	}
	// Unknown callbacks (old keyboards) take the same path and end as a broken session.
	reg.SetCallbackNotFound(h.OnCallback)

	run := map[string]func(c tele.Context, lang texts.Language) string{
		"/help": func(_ tele.Context, lang texts.Language) string {
			return h.admin.Help(lang)
		},
		"/add": func(c tele.Context, lang texts.Language) string {
			return h.admin.Add(tghelpers.BuildContext(c), lang, c.Args())
		},
		"/remove": func(c tele.Context, lang texts.Language) string {
			return h.admin.Remove(tghelpers.BuildContext(c), lang, c.Args())
		},
		"/list": func(_ tele.Context, lang texts.Language) string {
			return h.admin.List(lang)
		},
	}
	for _, cmd := range admin.Commands {
		fn, ok := run[cmd.Name]
		if !ok {
			continue
		}
		reg.RegisterCommand(cmd.Name, commands.Command{
			Handler:     adminReply(fn),
			Description: texts.Text(texts.English, cmd.Key),
			AdminOnly:   true,
		})
	}
	return nil
}

// OnText handles plain messages and commands typed by non-admins.
func (h *Handlers) OnText(c tele.Context) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}
	ev := coordinator.Message{
		MessageID: msg.ID,
		Text:      msg.Text,
	}
	if s := c.Sender(); s != nil {
		ev.SenderID = s.ID
		ev.Language = s.LanguageCode
	}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	return h.flow(c.Bot()).HandleMessage(tghelpers.BuildContext(c), ev)
}

// OnCallback handles format choice buttons.
func (h *Handlers) OnCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	ev := coordinator.Callback{
		ID:   cb.ID,
		Data: callbacks.Payload(c),
	}
	if s := c.Sender(); s != nil {
		ev.SenderID = s.ID
		ev.Language = s.LanguageCode
	}
	if cb.Message != nil {
		ev.MessageID = cb.Message.ID
		if cb.Message.Chat != nil {
			ev.ChatID = cb.Message.Chat.ID
		}
	}
	return h.flow(c.Bot()).HandleCallback(tghelpers.BuildContext(c), ev)
}

// OnLimited answers an update dropped by the rate limiter with a short notice.
func (h *Handlers) OnLimited(c tele.Context) error {
	text := texts.Text(senderLanguage(c), texts.TooFast)
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: text})
	}
	if c.Message() == nil {
		return nil
	}
	return tghelpers.ReplyText(c, text)
}

func senderLanguage(c tele.Context) texts.Language {
	if s := c.Sender(); s != nil {
		return texts.LanguageFrom(s.LanguageCode)
	}
	return texts.English
}

func adminReply(fn func(c tele.Context, lang texts.Language) string) tele.HandlerFunc {
	return func(c tele.Context) error {
		reply := fn(c, senderLanguage(c))
		if reply == "" {
			return nil
		}
		return tghelpers.ReplyText(c, reply)
	}
}
