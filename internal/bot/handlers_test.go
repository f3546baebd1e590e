package bot

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/mediabot/core/telegram"
	"github.com/m3rciful/mediabot/internal/admin"
	"github.com/m3rciful/mediabot/internal/coordinator"
	"github.com/m3rciful/mediabot/internal/store"
)

type recordingFlow struct {
	messages  []coordinator.Message
	callbacks []coordinator.Callback
}

func (f *recordingFlow) HandleMessage(_ context.Context, m coordinator.Message) error {
	f.messages = append(f.messages, m)
	return nil
}

func (f *recordingFlow) HandleCallback(_ context.Context, cb coordinator.Callback) error {
	f.callbacks = append(f.callbacks, cb)
	return nil
}

type memSnapshot struct{}

func (memSnapshot) Load(context.Context) ([]store.UserRecord, error) { return nil, nil }
func (memSnapshot) Save(context.Context, []store.UserRecord) error   { return nil }

// apiRecorder fakes the Bot API endpoint and keeps request bodies.
type apiRecorder struct {
	mu     sync.Mutex
	bodies map[string][]string
}

func newTestBot(t *testing.T) (*tele.Bot, *apiRecorder) {
	t.Helper()
	rec := &apiRecorder{bodies: map[string][]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		rec.mu.Lock()
		rec.bodies[method] = append(rec.bodies[method], string(body))
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	}))
	t.Cleanup(srv.Close)

	b, err := tele.NewBot(tele.Settings{Token: "1:test", URL: srv.URL, Offline: true, Synchronous: true})
	require.NoError(t, err)
	return b, rec
}

func newHandlers(t *testing.T) (*Handlers, *recordingFlow, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), memSnapshot{})
	require.NoError(t, err)
	flow := &recordingFlow{}
	return NewHandlers(func(API) Flow { return flow }, admin.New(st)), flow, st
}

func TestOnTextBuildsMessageEvent(t *testing.T) {
	b, _ := newTestBot(t)
	h, flow, _ := newHandlers(t)

	c := b.NewContext(tele.Update{ID: 1, Message: &tele.Message{
		ID:     10,
		Text:   "https://youtu.be/x",
		Sender: &tele.User{ID: 42, LanguageCode: "ru"},
		Chat:   &tele.Chat{ID: 42},
	}})
	require.NoError(t, h.OnText(c))

	require.Len(t, flow.messages, 1)
	assert.Equal(t, coordinator.Message{
		SenderID: 42, ChatID: 42, MessageID: 10, Text: "https://youtu.be/x", Language: "ru",
	}, flow.messages[0])
}

func TestOnCallbackBuildsCallbackEvent(t *testing.T) {
	b, _ := newTestBot(t)
	h, flow, _ := newHandlers(t)

	c := b.NewContext(tele.Update{ID: 2, Callback: &tele.Callback{
		ID:      "cb",
		Unique:  FormatCallback,
		Data:    "1.a.f.0000",
		Sender:  &tele.User{ID: 42},
		Message: &tele.Message{ID: 11, Chat: &tele.Chat{ID: 42}},
	}})
	require.NoError(t, h.OnCallback(c))

	require.Len(t, flow.callbacks, 1)
	assert.Equal(t, coordinator.Callback{
		ID: "cb", SenderID: 42, ChatID: 42, MessageID: 11, Data: "1.a.f.0000",
	}, flow.callbacks[0])
}

func TestRegisterWiresRegistry(t *testing.T) {
	h, _, _ := newHandlers(t)
	reg := tg.NewRegistry()
	require.NoError(t, h.Register(reg))

	for _, cmd := range admin.Commands {
		_, def, ok := reg.LookupCommand(cmd.Name)
		require.True(t, ok, cmd.Name)
		assert.True(t, def.AdminOnly)
	}
	_, ok := reg.GetCallback(FormatCallback)
	assert.True(t, ok)
	assert.NotNil(t, reg.TextFallback())
	assert.Empty(t, reg.ListCommands(true), "admin commands stay out of the public menu")
}

func TestAdminListRepliesToCommand(t *testing.T) {
	b, rec := newTestBot(t)
	h, _, st := newHandlers(t)
	st.Add(context.Background(), 7, "bob")

	reg := tg.NewRegistry()
	require.NoError(t, h.Register(reg))
	_, def, ok := reg.LookupCommand("/list")
	require.True(t, ok)

	c := b.NewContext(tele.Update{ID: 3, Message: &tele.Message{
		ID:     12,
		Text:   "/list",
		Sender: &tele.User{ID: 1},
		Chat:   &tele.Chat{ID: 1},
	}})
	require.NoError(t, def.Handler(c))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.bodies["sendMessage"], 1)
	assert.Contains(t, rec.bodies["sendMessage"][0], "bob (7)")
}

func TestAdminAddUsesArgs(t *testing.T) {
	b, _ := newTestBot(t)
	h, _, st := newHandlers(t)
	reg := tg.NewRegistry()
	require.NoError(t, h.Register(reg))
	_, def, _ := reg.LookupCommand("/add")

	c := b.NewContext(tele.Update{ID: 4, Message: &tele.Message{
		ID:      13,
		Text:    "/add 55 carol",
		Payload: "55 carol",
		Sender:  &tele.User{ID: 1},
		Chat:    &tele.Chat{ID: 1},
	}})
	require.NoError(t, def.Handler(c))
	assert.True(t, st.Contains(55))
}

func TestOnLimitedNotifiesSender(t *testing.T) {
	b, rec := newTestBot(t)
	h, flow, _ := newHandlers(t)

	msg := b.NewContext(tele.Update{ID: 5, Message: &tele.Message{
		ID:     14,
		Text:   "https://youtu.be/x",
		Sender: &tele.User{ID: 42},
		Chat:   &tele.Chat{ID: 42},
	}})
	require.NoError(t, h.OnLimited(msg))

	cb := b.NewContext(tele.Update{ID: 6, Callback: &tele.Callback{
		ID:     "cb-limited",
		Sender: &tele.User{ID: 42},
	}})
	require.NoError(t, h.OnLimited(cb))

	assert.Empty(t, flow.messages)
	assert.Empty(t, flow.callbacks)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.bodies["sendMessage"], 1)
	assert.Contains(t, rec.bodies["sendMessage"][0], "Too many requests")
	require.Len(t, rec.bodies["answerCallbackQuery"], 1)
	assert.Contains(t, rec.bodies["answerCallbackQuery"][0], "cb-limited")
	assert.Contains(t, rec.bodies["answerCallbackQuery"][0], "Too many requests")
}

func TestNewFlowWrapsAPI(t *testing.T) {
	var got coordinator.Messenger
	factory := NewFlow(func(m coordinator.Messenger) Flow {
		got = m
		return &recordingFlow{}
	})
	require.NotNil(t, factory(&fakeAPI{}))
	_, ok := got.(*Messenger)
	assert.True(t, ok)
}
