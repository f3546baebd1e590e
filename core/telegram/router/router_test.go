package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/mediabot/core/telegram"
	"github.com/m3rciful/mediabot/core/telegram/commands"
)

func newContext(t *testing.T, u tele.Update) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Token: "1:test", Offline: true})
	require.NoError(t, err)
	return b.NewContext(u)
}

func command(from int64, text string) tele.Update {
	return tele.Update{ID: int(from), Message: &tele.Message{
		ID:     1,
		Text:   text,
		Sender: &tele.User{ID: from},
		Chat:   &tele.Chat{ID: from},
	}}
}

func routeFor(t *testing.T, routes []tg.Route, endpoint string) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

func TestHandlerName(t *testing.T) {
	cases := map[string]string{
		"/Add":        "add",
		" /list ":     "list",
		"":            "unknown",
		"/":           "unknown",
		"fmt":         "fmt",
		"two words":   "two_words",
		"/Remove Now": "remove_now",
	}
	for in, want := range cases {
		assert.Equal(t, want, handlerName(in), "input %q", in)
	}
}

func TestAdminCommandFromOthersFallsThrough(t *testing.T) {
	reg := tg.NewRegistry()
	var ran, rejected []int64
	reg.RegisterCommand("/add", commands.Command{
		Description: "add a user",
		AdminOnly:   true,
		Aliases:     []string{"grant"},
		Handler:     func(c tele.Context) error { ran = append(ran, c.Sender().ID); return nil },
	})

	routes := CommandRoutes(reg, CommandRouteOptions{
		AdminID:       7,
		OnAdminReject: func(c tele.Context) error { rejected = append(rejected, c.Sender().ID); return nil },
	})
	require.Len(t, routes, 2)

	add := routeFor(t, routes, "/add")
	require.NoError(t, add(newContext(t, command(7, "/add 1 bob"))))
	require.NoError(t, add(newContext(t, command(8, "/add 1 bob"))))
	require.NoError(t, routeFor(t, routes, "/grant")(newContext(t, command(9, "/grant 1 bob"))))

	assert.Equal(t, []int64{7}, ran)
	assert.Equal(t, []int64{8, 9}, rejected)
}

func TestSummarizedPassesErrorThrough(t *testing.T) {
	boom := errors.New("boom")
	c := newContext(t, command(7, "/x"))

	assert.ErrorIs(t, summarized(c, "x", func(tele.Context) error { return boom }), boom)
	assert.NoError(t, summarized(c, "x", func(tele.Context) error { return nil }))
}

func TestTextRoutesUseFallback(t *testing.T) {
	reg := tg.NewRegistry()
	var texts []string
	reg.SetTextFallback(func(c tele.Context) error { texts = append(texts, c.Text()); return nil })
	reg.RegisterCommand("/secret", commands.Command{
		Description: "admin only",
		AdminOnly:   true,
		Handler:     func(tele.Context) error { t.Fatal("admin command reached from text route"); return nil },
	})

	routes := TextRoutes(reg, TextOptions{})
	require.Len(t, routes, 1)
	h := routes[0].Handler
	require.NoError(t, h(newContext(t, command(5, "https://example.com"))))
	require.NoError(t, h(newContext(t, command(5, "/secret"))))

	assert.Equal(t, []string{"https://example.com", "/secret"}, texts)
}

func TestCallbackRouteDispatchesByKey(t *testing.T) {
	reg := tg.NewRegistry()
	var got []string
	require.NoError(t, reg.RegisterCallback("fmt", func(tele.Context) error { got = append(got, "fmt"); return nil }))
	reg.SetCallbackNotFound(func(tele.Context) error { got = append(got, "missing"); return nil })

	h := CallbackRoute(reg, CallbackOptions{}).Handler
	cb := func(data string) tele.Update {
		return tele.Update{ID: 3, Callback: &tele.Callback{ID: "cb", Data: data, Sender: &tele.User{ID: 5}}}
	}
	require.NoError(t, h(newContext(t, cb("\ffmt|1.a.f.00000000"))))
	require.NoError(t, h(newContext(t, cb("\fold|x"))))

	assert.Equal(t, []string{"fmt", "missing"}, got)
}
