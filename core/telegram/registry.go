package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/gptbot/core/logger"
	"github.com/m3rciful/gptbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

const wireComponent = "tg.wire"

// Registry holds bot commands and the callbacks that bypass the conversation engine.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
}

// NewRegistry creates an empty Registry. Unknown callbacks are answered with
// a short notice.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// RegisterCommand adds cmd under name, which must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	var err error
	switch {
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		err = fmt.Errorf("telegram: command %q must start with a slash", name)
	case cmd.Handler == nil || cmd.Description == "":
		err = fmt.Errorf("telegram: command %s needs a handler and a description", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[name]; err == nil && dup {
		err = fmt.Errorf("telegram: command %s registered twice", name)
	}
	if err != nil {
		logger.Warn(context.Background(), wireComponent, "register.command.skip", slog.String("err", err.Error()))
		return err
	}
	r.commands[name] = cmd
	return nil
}

// ListCommands returns the commands sorted by name. With visibleOnly set,
// hidden and admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: cmd.Description})
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// LookupCommand resolves name, with or without its slash, against command
// names and aliases. It returns the canonical name.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = "/" + strings.TrimPrefix(name, "/")
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if "/"+strings.TrimPrefix(alias, "/") == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// RegisterCallback binds handler to callback data key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return fmt.Errorf("telegram: callback %q needs a key and a handler", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		logger.Warn(context.Background(), wireComponent, "register.callback.duplicate", slog.String("cb_key", key))
		return fmt.Errorf("telegram: callback %s registered twice", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the registered callback keys, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CallbackNotFound returns the handler for callbacks with no registered key.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// MenuOptions localizes the published command menu.
type MenuOptions struct {
	// Languages are the client language codes that get their own menu.
	Languages []string
	// Describe returns the description of command name for lang. An empty
	// result keeps the registered description.
	Describe func(lang, name string) string
}

// MenuFor builds the visible command menu for lang.
func (r *Registry) MenuFor(lang string, opts MenuOptions) []tele.Command {
	menu := r.ListCommands(true)
	if opts.Describe == nil {
		return menu
	}
	for i, cmd := range menu {
		if d := opts.Describe(lang, cmd.Text); d != "" {
			menu[i].Description = d
		}
	}
	return menu
}

// SetupCommands publishes the visible commands as the bot's command menu:
// once as the default and once per configured language.
func SetupCommands(bot *tele.Bot, reg *Registry, opts MenuOptions) {
	publish := func(menu []tele.Command, args ...any) {
		if err := bot.SetCommands(append([]any{menu}, args...)...); err != nil {
			logger.Error(context.Background(), wireComponent, "register.commands.set_failed",
				slog.String("err", err.Error()),
			)
		}
	}
	if len(reg.ListCommands(true)) == 0 {
		return
	}
	publish(reg.MenuFor("", opts))
	for _, lang := range opts.Languages {
		publish(reg.MenuFor(lang, opts), lang)
	}
}
