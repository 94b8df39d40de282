package api

import (
	"sync"
)

type RunEvent struct {
	Type string
	Data map[string]any
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan RunEvent]struct{} // tenant -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan RunEvent]struct{}{}}
}

func (b *Broker) Subscribe(tenantID string) chan RunEvent {
	ch := make(chan RunEvent, 8)
	b.mu.Lock()
	if b.subs[tenantID] == nil {
		b.subs[tenantID] = map[chan RunEvent]struct{}{}
	}
	b.subs[tenantID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(tenantID string, ch chan RunEvent) {
	b.mu.Lock()
	if m := b.subs[tenantID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, tenantID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(tenantID string, evt RunEvent) {
	b.mu.Lock()
	m := b.subs[tenantID]
	for ch := range m {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
