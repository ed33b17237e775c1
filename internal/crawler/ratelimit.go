package crawler

import (
	"context"
	"sync"
	"time"
)

// agentPool rotates through the configured User-Agent strings.
type agentPool struct {
	mu     sync.Mutex
	agents []string
	cursor int
}

func newAgentPool(agents []string) *agentPool {
	return &agentPool{agents: agents}
}

func (p *agentPool) next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.agents) == 0 {
		return ""
	}

	agent := p.agents[p.cursor%len(p.agents)]
	p.cursor++

	return agent
}

// rateLimiter enforces a minimum interval between requests to the same
// host, so concurrent site pipelines never hammer a shared source.
type rateLimiter struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		lastSent: make(map[string]time.Time),
	}
}

// wait blocks until the host's minimum interval has elapsed, or the
// context is cancelled. The reservation is taken before sleeping so two
// goroutines cannot claim the same slot.
func (r *rateLimiter) wait(ctx context.Context, host string, minInterval time.Duration) error {
	if minInterval <= 0 {
		return nil
	}

	r.mu.Lock()

	now := time.Now()
	earliest := r.lastSent[host].Add(minInterval)

	if earliest.Before(now) {
		earliest = now
	}

	r.lastSent[host] = earliest
	r.mu.Unlock()

	return sleepCtx(ctx, time.Until(earliest))
}
