package dispatcher

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type nickLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NickRateLimiter throttles command handling per nick so one user flooding
// the channel cannot starve the dispatch loop. Dropped commands are silent to
// the user.
type NickRateLimiter struct {
	nicks      map[string]*nickLimiter
	mu         sync.Mutex
	rate       rate.Limit
	burst      int
	expiration time.Duration
	logger     *slog.Logger

	ctx context.Context
}

func NewNickRateLimiter(ctx context.Context, commands int, window time.Duration, logger *slog.Logger) *NickRateLimiter {
	r := rate.Limit(float64(commands) / window.Seconds())

	l := &NickRateLimiter{
		nicks:      make(map[string]*nickLimiter),
		rate:       r,
		burst:      commands,
		expiration: 1 * time.Hour,
		logger:     logger,
		ctx:        ctx,
	}

	go l.cleanup()

	return l
}

func (l *NickRateLimiter) Allow(nick string) bool {
	nick = strings.ToLower(nick)

	l.mu.Lock()

	entry, exists := l.nicks[nick]
	if !exists {
		entry = &nickLimiter{
			limiter:  rate.NewLimiter(l.rate, l.burst),
			lastSeen: time.Now(),
		}
		l.nicks[nick] = entry
	} else {
		entry.lastSeen = time.Now()
	}

	l.mu.Unlock()

	return entry.limiter.Allow()
}

func (l *NickRateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for nick, entry := range l.nicks {
				if time.Since(entry.lastSeen) > l.expiration {
					delete(l.nicks, nick)
				}
			}
			l.mu.Unlock()
		case <-l.ctx.Done():
			return
		}
	}
}
