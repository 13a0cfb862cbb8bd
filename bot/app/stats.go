package app

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/gptbot/bot/l10n"
	"github.com/m3rciful/gptbot/core/logger"
	"github.com/m3rciful/gptbot/core/telegram/format"
	tghelpers "github.com/m3rciful/gptbot/core/telegram/helpers"
	"github.com/m3rciful/gptbot/core/telegram/keyboard"
)

func (a *App) handleStats(c tele.Context) error {
	locale := a.senderLocale(c)
	text := a.statsText(tghelpers.BuildContext(c), locale)
	return tghelpers.SendMD(c, text, a.statsMarkup(locale))
}

func (a *App) handleStatsRefresh(c tele.Context) error {
	locale := a.senderLocale(c)
	ctx := tghelpers.BuildContext(c)
	text := a.statsText(ctx, locale)
	err := c.Edit(text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: a.statsMarkup(locale)})
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}

func (a *App) statsMarkup(locale string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{{
		Text: a.catalog.Text(locale, "stats_refresh", nil),
		Data: callbackStatsRefresh,
	}})
}

// statsText renders active sessions, journal totals and the inbound and
// outbound counters as Markdown.
func (a *App) statsText(ctx context.Context, locale string) string {
	var lines []string

	totals, err := a.journal.Totals(ctx)
	if err != nil {
		logger.Warn(ctx, component, "stats.totals", slog.String("err", err.Error()))
	}
	for _, t := range totals {
		flow, _ := format.EscapeMarkdown(t.Flow, format.MarkdownV1)
		lines = append(lines, a.catalog.Text(locale, "stats_flow", l10n.Args{
			"flow":   "*" + flow + "*",
			"total":  strconv.FormatInt(t.Total, 10),
			"failed": strconv.FormatInt(t.Failed, 10),
		}))
	}
	if len(lines) == 0 {
		lines = append(lines, a.catalog.Text(locale, "stats_empty", nil))
	}

	if counts := a.inbound.Snapshot(); len(counts) > 0 {
		parts := make([]string, 0, len(counts))
		for _, kc := range counts {
			parts = append(parts, kc.Kind+" "+strconv.FormatUint(kc.Count, 10))
		}
		lines = append(lines, a.catalog.Text(locale, "stats_inbound", l10n.Args{"counts": strings.Join(parts, ", ")}))
	}
	if d := a.sender.Load(); d != nil {
		s := d.Stats()
		lines = append(lines, a.catalog.Text(locale, "stats_outbound", l10n.Args{
			"sent":    strconv.FormatUint(s.Sent, 10),
			"failed":  strconv.FormatUint(s.Failed, 10),
			"pending": strconv.Itoa(s.Pending),
		}))
	}

	return a.catalog.Text(locale, "stats", l10n.Args{
		"sessions": strconv.Itoa(a.engine.Store().Active()),
		"totals":   strings.Join(lines, "\n"),
	})
}

func (a *App) senderLocale(c tele.Context) string {
	if u := c.Sender(); u != nil {
		return a.catalog.Match(u.LanguageCode)
	}
	return a.catalog.Default()
}
