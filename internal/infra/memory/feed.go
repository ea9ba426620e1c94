package memory

import (
	"context"
	"sync"

	"couplegame-service/internal/domain"
)

const subscriberBuffer = 8

// Feed is an in-process app.Feed. Slow subscribers lose their oldest pending snapshot rather than
// blocking the writer.
type Feed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Session]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[string]map[chan domain.Session]struct{})}
}

func (f *Feed) Subscribe(_ context.Context, sessionID string) (<-chan domain.Session, func(), error) {
	ch := make(chan domain.Session, subscriberBuffer)

	f.mu.Lock()
	subs, ok := f.subscribers[sessionID]
	if !ok {
		subs = make(map[chan domain.Session]struct{})
		f.subscribers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs := f.subscribers[sessionID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(f.subscribers, sessionID)
		}
	}
	return ch, cancel, nil
}

func (f *Feed) Publish(_ context.Context, session domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[session.ID] {
		snapshot := session.Clone()
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
	return nil
}
