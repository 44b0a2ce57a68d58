// Package connectivity reports whether the backend is reachable and notifies
// subscribers when that changes.
package connectivity

import (
	"context"
	"log"
	"sync"
	"time"
)

type Event struct {
	Online bool
	At     time.Time
}

type Monitor interface {
	Online() bool
	// Subscribe returns a channel of transitions and a func that tears the
	// subscription down. The channel holds at most the latest undelivered event.
	Subscribe() (<-chan Event, func())
}

// Manual is a Monitor whose state is set by the caller.
type Manual struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan Event
	next   int
	now    func() time.Time
}

func NewManual(online bool) *Manual {
	return &Manual{online: online, subs: map[int]chan Event{}, now: time.Now}
}

func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records the state and notifies subscribers if it changed.
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	ev := Event{Online: online, At: m.now()}
	for _, ch := range m.subs {
		// keep only the newest event for slow readers
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
}

func (m *Manual) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	ch := make(chan Event, 1)
	m.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Pinger checks reachability of the backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober polls a Pinger and publishes transitions.
type Prober struct {
	*Manual
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
}

func NewProber(p Pinger, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	timeout := interval
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Prober{Manual: NewManual(false), pinger: p, interval: interval, timeout: timeout}
}

// Probe checks once and updates the state.
func (p *Prober) Probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.pinger.Ping(pctx)
	if ctx.Err() != nil {
		return p.Online()
	}
	online := err == nil
	if was := p.Online(); was != online {
		if online {
			log.Printf("connectivity: backend reachable")
		} else {
			log.Printf("connectivity: backend unreachable: %v", err)
		}
	}
	p.SetOnline(online)
	return online
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	p.Probe(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Probe(ctx)
		}
	}
}
