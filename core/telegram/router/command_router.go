package router

import (
	"context"
	"log/slog"
	"slices"

	"github.com/m3rciful/gptbot/core/logger"
	tg "github.com/m3rciful/gptbot/core/telegram"
	"github.com/m3rciful/gptbot/core/telegram/commands"
	"github.com/m3rciful/gptbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per registered command, ordered by name.
// Aliases are not routed here; the text route resolves them.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	cmds := reg.Commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	slices.Sort(names)

	routes := make([]tg.Route, 0, len(names))
	for _, name := range names {
		routes = append(routes, tg.Route{Endpoint: name, Handler: wrapCommand(cmds[name], admin)})
	}

	logger.Info(context.Background(), "tg.wire", "wire.complete",
		slog.Int("commands", len(names)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

// wrapCommand applies, outermost first: admin gate, logging, recover.
func wrapCommand(cmd commands.Command, admin tele.MiddlewareFunc) tele.HandlerFunc {
	h := middleware.LoggerMiddleware(middleware.RecoverMiddleware(cmd.Handler))
	if cmd.AdminOnly {
		h = admin(h)
	}
	return h
}
