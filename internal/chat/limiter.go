package chat

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool hands out one token bucket per sender.
type limiterPool struct {
	mu    sync.Mutex
	m     map[int64]*rate.Limiter
	rps   float64
	burst int
}

func (p *limiterPool) get(id int64) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[int64]*rate.Limiter)
	}
	if l, ok := p.m[id]; ok {
		return l
	}
	rps := p.rps
	if rps <= 0 {
		rps = 5
	}
	burst := p.burst
	if burst <= 0 {
		burst = 10
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[id] = l
	return l
}

// Allow reports whether sender id may send now. A pool with a negative
// rate never limits.
func (p *limiterPool) Allow(id int64) bool {
	if p == nil || p.rps < 0 {
		return true
	}
	return p.get(id).Allow()
}
