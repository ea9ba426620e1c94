package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"couplegame-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// SessionStore keeps sessions in game_sessions: the full document as JSONB plus the columns needed for
// lookups. Writers are serialized per session by an optimistic version check.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	session = session.Clone()
	session.Version = 1
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO game_sessions (id, game_type, creator, player1, player2, status, started_at, ended_at, version, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.ID, string(session.GameType), session.Creator, session.Player1, session.Player2,
		string(session.Status), session.StartedAt, session.EndedAt, session.Version, doc,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "game_sessions_one_active" {
		return domain.ErrDuplicateActiveSession
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	return scanSession(s.pool.QueryRow(ctx, `SELECT doc, version FROM game_sessions WHERE id = $1`, id))
}

func (s *SessionStore) Update(ctx context.Context, id string, mutate func(*domain.Session) error) (domain.Session, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	next := current.Clone()
	if err := mutate(&next); err != nil {
		return domain.Session{}, err
	}
	next.Version = current.Version + 1
	doc, err := json.Marshal(next)
	if err != nil {
		return domain.Session{}, fmt.Errorf("encode session: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE game_sessions
		SET status = $3, ended_at = $4, version = $5, doc = $6
		WHERE id = $1 AND version = $2`,
		id, current.Version, string(next.Status), next.EndedAt, next.Version, doc,
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Session{}, domain.ErrConflict
	}
	return next, nil
}

func (s *SessionStore) ListActive(ctx context.Context, playerID string) ([]domain.Session, error) {
	return s.list(ctx, playerID, []string{string(domain.StatusInProgress)})
}

func (s *SessionStore) ListHistory(ctx context.Context, playerID string) ([]domain.Session, error) {
	return s.list(ctx, playerID, []string{string(domain.StatusCompleted), string(domain.StatusAbandoned)})
}

func (s *SessionStore) list(ctx context.Context, playerID string, statuses []string) ([]domain.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc, version FROM game_sessions
		WHERE (player1 = $1 OR player2 = $1) AND status = ANY($2)
		ORDER BY started_at DESC, id DESC`,
		playerID, statuses,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var (
		doc     []byte
		version int64
	)
	if err := row.Scan(&doc, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(doc, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	session.Version = version
	return session, nil
}
