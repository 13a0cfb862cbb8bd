package app

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/gptbot/bot/history"
	"github.com/m3rciful/gptbot/bot/l10n"
	"github.com/m3rciful/gptbot/core/logger"
	tghelpers "github.com/m3rciful/gptbot/core/telegram/helpers"
)

const recentLimit = 5

func (a *App) handleHistory(c tele.Context) error {
	u := c.Sender()
	if u == nil {
		return nil
	}
	locale := a.senderLocale(c)
	return tghelpers.SendText(c, a.historyText(tghelpers.BuildContext(c), locale, u.ID))
}

// historyText lists the user's latest generations, newest first.
func (a *App) historyText(ctx context.Context, locale string, user int64) string {
	entries, err := a.journal.Recent(ctx, user, recentLimit)
	if err != nil {
		logger.Warn(ctx, component, "history.recent", slog.String("err", err.Error()))
	}
	if len(entries) == 0 {
		return a.catalog.Text(locale, "history_empty", nil)
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, a.catalog.Text(locale, "history_title", nil))
	for _, e := range entries {
		key := "history_ok"
		if e.Status == history.StatusFail {
			key = "history_fail"
		}
		lines = append(lines, a.catalog.Text(locale, key, l10n.Args{
			"flow":     e.Flow,
			"model":    e.Model,
			"duration": strconv.FormatInt(e.DurationMS, 10),
			"error":    e.Error,
		}))
	}
	return strings.Join(lines, "\n")
}
