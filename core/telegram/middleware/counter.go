package middleware

import (
	"sync"

	coreconfig "github.com/m3rciful/gptbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// UpdateCounter tallies inbound updates by kind.
type UpdateCounter struct {
	mu     sync.Mutex
	counts map[string]uint64
}

// NewUpdateCounter returns an empty counter.
func NewUpdateCounter() *UpdateCounter {
	return &UpdateCounter{counts: make(map[string]uint64)}
}

// Middleware counts the update and passes it on.
func (u *UpdateCounter) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		u.add(UpdateKind(c.Update()))
		return next(c)
	}
}

func (u *UpdateCounter) add(kind string) {
	u.mu.Lock()
	u.counts[kind]++
	u.mu.Unlock()
}

// KindCount is one row of a Snapshot.
type KindCount struct {
	Kind  string
	Count uint64
}

// Snapshot returns the non-zero counts in coreconfig.UpdateKinds order.
func (u *UpdateCounter) Snapshot() []KindCount {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]KindCount, 0, len(u.counts))
	for _, kind := range coreconfig.UpdateKinds {
		if n := u.counts[kind]; n > 0 {
			out = append(out, KindCount{Kind: kind, Count: n})
		}
	}
	return out
}
