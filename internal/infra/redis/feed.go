package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"couplegame-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const subscriberBuffer = 8

// Feed publishes session snapshots on game:feed:{id} so every instance can serve live subscribers.
type Feed struct {
	client *redis.Client
}

func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func (f *Feed) Publish(ctx context.Context, session domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return f.client.Publish(ctx, feedChannel(session.ID), payload).Err()
}

// Subscribe returns once the subscription is confirmed by the server.
func (f *Feed) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Session, func(), error) {
	ps := f.client.Subscribe(ctx, feedChannel(sessionID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", sessionID, err)
	}

	out := make(chan domain.Session, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var session domain.Session
				if err := json.Unmarshal([]byte(msg.Payload), &session); err != nil {
					continue
				}
				deliver(out, session)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	return out, cancel, nil
}

// deliver replaces the oldest pending snapshot when the consumer is behind.
func deliver(ch chan domain.Session, session domain.Session) {
	select {
	case ch <- session:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- session
	}
}
