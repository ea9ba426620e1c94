package app

import (
	"context"

	"couplegame-service/internal/domain"
)

// SessionRepository persists game sessions (in-memory, Redis, Postgres).
//
// Update applies mutate to the stored session under a single writer per session. When mutate returns an
// error nothing is persisted and that error is returned as is. A write lost to a concurrent writer of the
// same session fails with domain.ErrConflict.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	Update(ctx context.Context, id string, mutate func(*domain.Session) error) (domain.Session, error)
	ListActive(ctx context.Context, playerID string) ([]domain.Session, error)
	ListHistory(ctx context.Context, playerID string) ([]domain.Session, error)
}

// QuestionBank supplies the ordered catalog for a game type (from cache/backing store).
type QuestionBank interface {
	Questions(ctx context.Context, gameType domain.GameType) ([]domain.BankQuestion, error)
}

// PartnerDirectory resolves who a user is paired with.
type PartnerDirectory interface {
	PartnerOf(ctx context.Context, userID string) (string, error)
}

// Feed fans session snapshots out to live subscribers.
// The caller must invoke the returned cancel function to avoid leaks.
type Feed interface {
	Publish(ctx context.Context, session domain.Session) error
	Subscribe(ctx context.Context, sessionID string) (<-chan domain.Session, func(), error)
}
