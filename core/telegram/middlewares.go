package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/gptbot/core/config"
	"github.com/m3rciful/gptbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// ChainOptions tunes DefaultMiddlewares.
type ChainOptions struct {
	// OnLimited answers updates dropped by the rate limiter.
	OnLimited tele.HandlerFunc
	// Counter, when set, tallies every update that passes the rate limiter.
	Counter *middleware.UpdateCounter
}

// DefaultMiddlewares builds the global chain: panic recovery, per-user rate
// limiting when configured, update counting and receipt logging.
func DefaultMiddlewares(cfg *coreconfig.Config, opts ChainOptions) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}

	if interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond; interval > 0 {
		exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			exclude[kind] = struct{}{}
		}
		chain = append(chain, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  interval,
			Exclude:   exclude,
			OnLimited: opts.OnLimited,
		})})
	}
	if opts.Counter != nil {
		chain = append(chain, Middleware{Name: "count", Use: opts.Counter.Middleware})
	}
	return append(chain, Middleware{Name: "logger", Use: middleware.LoggerMiddleware})
}
