package app

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/gptbot/bot/flows"
	"github.com/m3rciful/gptbot/core/telegram"
	"github.com/m3rciful/gptbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/gptbot/core/telegram/helpers"
	"github.com/m3rciful/gptbot/core/telegram/middleware"
	"github.com/m3rciful/gptbot/core/telegram/router"
)

const callbackStatsRefresh = "stats_refresh"

func (a *App) registry() (*telegram.Registry, error) {
	reg := telegram.NewRegistry()
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{
			Description: "Main menu",
			Aliases:     []string{"menu"},
			Handler:     a.adapter.Choice(flows.TagStart),
		}},
		{"/cancel", commands.Command{
			Description: "Cancel the current task",
			Handler:     a.adapter.Choice(flows.TagCancel),
		}},
		{"/history", commands.Command{
			Description: "Recent generations",
			Handler:     a.handleHistory,
		}},
		{"/stats", commands.Command{
			Description: "Bot statistics",
			AdminOnly:   true,
			Hidden:      true,
			Handler:     a.handleStats,
		}},
	}
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return nil, err
		}
	}

	refresh := middleware.AdminOnlyMiddleware(middleware.AdminOptions{AdminID: a.cfg.Telegram.AdminID})(a.handleStatsRefresh)
	if err := reg.RegisterCallback(callbackStatsRefresh, refresh); err != nil {
		return nil, err
	}
	return reg, nil
}

func (a *App) routes(reg *telegram.Registry) []telegram.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.reply("admin_only"),
	})
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{
		FSM:         a.adapter,
		UnknownText: a.reply("unknown_command"),
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{FSM: a.adapter}))
	return routes
}

// menu localizes command descriptions from the "menu_<command>" keys.
func (a *App) menu() telegram.MenuOptions {
	return telegram.MenuOptions{
		Languages: a.catalog.Locales(),
		Describe: func(lang, name string) string {
			key := "menu_" + strings.TrimPrefix(name, "/")
			if text := a.catalog.Text(a.catalog.Match(lang), key, nil); text != key {
				return text
			}
			return ""
		},
	}
}

// reply answers with a localized message in the sender's locale.
func (a *App) reply(key string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, a.catalog.Text(a.senderLocale(c), key, nil))
	}
}
