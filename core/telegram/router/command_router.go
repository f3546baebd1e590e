package router

import (
	"log/slog"

	"github.com/m3rciful/mediabot/core/logger"
	tg "github.com/m3rciful/mediabot/core/telegram"
	"github.com/m3rciful/mediabot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures CommandRoutes.
type CommandRouteOptions struct {
	AdminID int64
	// OnAdminReject receives admin commands sent by anyone else.
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes binds every registered command and its aliases.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, cmd := range cmds {
		name, cmd := name, cmd
		h := func(c tele.Context) error {
			return summarized(c, handlerName(name), cmd.Handler)
		}
		if cmd.AdminOnly {
			h = admin(h)
		}
		h = wrap(h)
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range cmd.Aliases {
			routes = append(routes, tg.Route{Endpoint: "/" + alias, Handler: h})
		}
	}

	logger.TWire.Info("routes wired",
		slog.String("event", "tg.wire"),
		slog.Int("count", len(routes)),
	)
	return routes
}
