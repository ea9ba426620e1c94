package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"couplegame-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps each session as a JSON document and serializes writers per session with
// WATCH/MULTI/EXEC. Layout:
//
//	game:session:{id}                   session document
//	game:active:{creator}:{gameType}    id of the creator's in_progress session of that type
//	game:player:{id}:active             zset of in_progress session ids, scored by start time
//	game:player:{id}:history            zset of terminal session ids, scored by start time
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	session = session.Clone()
	session.Version = 1
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	active := activeKey(session.Creator, session.GameType)
	key := sessionKey(session.ID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		if session.Status == domain.StatusInProgress {
			switch err := tx.Get(ctx, active).Err(); {
			case err == nil:
				return domain.ErrDuplicateActiveSession
			case !errors.Is(err, redis.Nil):
				return err
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, doc, 0)
			if session.Status == domain.StatusInProgress {
				pipe.Set(ctx, active, session.ID, 0)
			}
			indexPlayers(ctx, pipe, session)
			return nil
		})
		return err
	}, active, key)
	return mapTxErr(err)
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	return decode(s.client.Get(ctx, sessionKey(id)).Bytes())
}

func (s *SessionStore) Update(ctx context.Context, id string, mutate func(*domain.Session) error) (domain.Session, error) {
	key := sessionKey(id)
	var updated domain.Session

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := decode(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := mutate(&next); err != nil {
			return err
		}
		next.Version = current.Version + 1
		doc, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		active := activeKey(next.Creator, next.GameType)
		releaseActive := false
		if next.Status.Terminal() {
			owner, err := tx.Get(ctx, active).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			releaseActive = owner == id
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, doc, 0)
			if releaseActive {
				pipe.Del(ctx, active)
			}
			indexPlayers(ctx, pipe, next)
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}, key)
	if err != nil {
		return domain.Session{}, mapTxErr(err)
	}
	return updated, nil
}

func (s *SessionStore) ListActive(ctx context.Context, playerID string) ([]domain.Session, error) {
	return s.list(ctx, playerActiveKey(playerID), func(st domain.Status) bool { return st == domain.StatusInProgress })
}

func (s *SessionStore) ListHistory(ctx context.Context, playerID string) ([]domain.Session, error) {
	return s.list(ctx, playerHistoryKey(playerID), domain.Status.Terminal)
}

func (s *SessionStore) list(ctx context.Context, index string, keep func(domain.Status) bool) ([]domain.Session, error) {
	ids, err := s.client.ZRevRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := []domain.Session{}
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, raw := range docs {
		doc, ok := raw.(string)
		if !ok {
			continue
		}
		session, err := decode([]byte(doc), nil)
		if err != nil {
			return nil, err
		}
		if keep(session.Status) {
			out = append(out, session)
		}
	}
	domain.SortNewestFirst(out)
	return out, nil
}

// indexPlayers files the session under the active or history index of both players.
func indexPlayers(ctx context.Context, pipe redis.Pipeliner, session domain.Session) {
	member := redis.Z{Score: float64(session.StartedAt.UnixMilli()), Member: session.ID}
	for _, player := range []string{session.Player1, session.Player2} {
		if session.Status.Terminal() {
			pipe.ZRem(ctx, playerActiveKey(player), session.ID)
			pipe.ZAdd(ctx, playerHistoryKey(player), member)
		} else {
			pipe.ZAdd(ctx, playerActiveKey(player), member)
		}
	}
}

func decode(doc []byte, err error) (domain.Session, error) {
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	var session domain.Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func mapTxErr(err error) error {
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrConflict
	}
	return err
}
