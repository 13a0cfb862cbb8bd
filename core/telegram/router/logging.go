package router

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/gptbot/core/logger"
	tghelpers "github.com/m3rciful/gptbot/core/telegram/helpers"
	"github.com/m3rciful/gptbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handleWithSummary runs fn under handlerName and logs one summary line.
// A non-empty status overrides the ok/fail derived from fn's error.
func handleWithSummary(c tele.Context, handlerName string, start time.Time, status string, fn func() error, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, handlerName)
	err := fn()
	logHandlerSummary(c, handlerName, start, status, err, extras...)
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, status string, err error, extras ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, handlerName)
	if status == "" {
		status = "ok"
		if err != nil {
			status = "fail"
		}
	}
	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("kind", middleware.UpdateKind(c.Update())),
		slog.Duration("duration", logger.Took(start)),
	}, extras...)
	if err == nil {
		logger.Info(ctx, "tg", "handler.handled", attrs...)
		return
	}
	attrs = append(attrs,
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		slog.String("err_code", errorCode(err)),
	)
	logger.Warn(ctx, "tg", "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// errorCode names the failure for log aggregation.
func errorCode(err error) string {
	var (
		apiErr   *tele.Error
		floodErr tele.FloodError
	)
	switch {
	case errors.As(err, &floodErr):
		return "flood"
	case errors.As(err, &apiErr):
		return "api_" + strconv.Itoa(apiErr.Code)
	}
	return "internal"
}
