// Package app wires configuration, the conversation engine, the flows and
// the Telegram runtime into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/gptbot/bot/flows"
	"github.com/m3rciful/gptbot/bot/history"
	"github.com/m3rciful/gptbot/bot/l10n"
	"github.com/m3rciful/gptbot/bot/media"
	"github.com/m3rciful/gptbot/bot/openai"
	"github.com/m3rciful/gptbot/bot/transport"
	"github.com/m3rciful/gptbot/core/bootstrap"
	corecmd "github.com/m3rciful/gptbot/core/cmd"
	"github.com/m3rciful/gptbot/core/fsm"
	"github.com/m3rciful/gptbot/core/logger"
	"github.com/m3rciful/gptbot/core/telegram"
	"github.com/m3rciful/gptbot/core/telegram/middleware"
	tgsender "github.com/m3rciful/gptbot/core/telegram/sender"
)

const component = "app"

// App holds the wired components.
type App struct {
	cfg     *Config
	db      *sqlx.DB
	catalog *l10n.Catalog
	journal *history.Journal
	adapter *transport.Adapter
	flows   *flows.Set
	engine  *fsm.Router
	inbound *middleware.UpdateCounter

	sender atomic.Pointer[tgsender.Dispatcher]
}

// Bootstrap initializes logging and the optional journal database, then
// builds the App. It matches the runner's bootstrap hook.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
		Migrate:  history.Migrate,
	})
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, res.DB, nil)
	if err != nil {
		if res.DB != nil {
			_ = res.DB.Close()
		}
		return nil, err
	}
	return a, nil
}

// New builds the App. gen overrides the OpenAI client, mainly for tests;
// db may be nil to run without the journal.
func New(cfg *Config, db *sqlx.DB, gen flows.Generator) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	catalog, err := l10n.Default(cfg.Locales.Default)
	if err != nil {
		return nil, err
	}
	files, err := media.New(cfg.Media)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		client, err := openai.New(cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		gen = client
	}

	a := &App{
		cfg:     cfg,
		db:      db,
		catalog: catalog,
		journal: history.New(db),
		adapter: transport.New(catalog),
		inbound: middleware.NewUpdateCounter(),
	}

	a.flows, err = flows.New(flows.Deps{
		Transport: a.adapter,
		Generator: gen,
		Files:     files,
		L10n:      catalog,
		HelpURL:   cfg.HelpURL,
		Explain:   openai.Message,
	})
	if err != nil {
		return nil, err
	}
	reg, err := a.flows.Registry()
	if err != nil {
		return nil, err
	}

	a.engine, err = fsm.NewRouter(fsm.Options{
		Flows:             reg,
		Notifier:          a.adapter,
		Files:             files,
		Globals:           a.flows.Globals(),
		StepTimeout:       cfg.Engine.StepTimeout(),
		FailureText:       a.flows.FailureText,
		InternalErrorText: a.flows.InternalErrorText,
		Observe:           a.journal.Observe,
	})
	if err != nil {
		return nil, err
	}
	a.adapter.Bind(a.engine)

	logger.Info(context.Background(), component, "app.wired",
		slog.Int("flows", len(reg.Flows())),
		slog.Bool("journal", a.journal.Enabled()),
		slog.String("locale", catalog.Default()),
	)
	return a, nil
}

// Engine exposes the conversation engine.
func (a *App) Engine() *fsm.Router {
	return a.engine
}

// TelegramRunOptions implements the runner's TelegramApp.
func (a *App) TelegramRunOptions() (telegram.RunOptions, error) {
	reg, err := a.registry()
	if err != nil {
		return telegram.RunOptions{}, err
	}
	return telegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Menu:        a.menu(),
		Middlewares: telegram.DefaultMiddlewares(&a.cfg.Config, telegram.ChainOptions{
			OnLimited: a.reply("rate_limited"),
			Counter:   a.inbound,
		}),
		Routes:      a.routes(reg),
		OnStart: func(ctx context.Context, rt telegram.Runtime) error {
			a.adapter.Attach(rt.Bot)
			a.sender.Store(rt.Dispatcher)
			return nil
		},
		OnStop: func(ctx context.Context, rt telegram.Runtime) error {
			a.engine.Wait()
			if a.db != nil {
				if err := a.db.Close(); err != nil {
					return fmt.Errorf("app: close db: %w", err)
				}
			}
			return nil
		},
	}, nil
}
