package eventmock

import (
	"context"
	"sync"

	"meref-loan-engine/internal/domain/event"
)

var _ event.Publisher = (*Publisher)(nil)

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *Publisher) Publish(_ context.Context, e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *Publisher) Events() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Event, len(p.events))
	copy(out, p.events)
	return out
}
