package postgres

import (
	"context"
	"fmt"

	"couplegame-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionBankLoader loads catalog records from the question_bank table in position order.
type QuestionBankLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionBankLoader(pool *pgxpool.Pool) *QuestionBankLoader {
	return &QuestionBankLoader{pool: pool}
}

func (l *QuestionBankLoader) LoadQuestions(ctx context.Context, gameType domain.GameType) ([]domain.BankQuestion, error) {
	if !gameType.Valid() {
		return nil, domain.ErrUnknownGameType
	}
	rows, err := l.pool.Query(ctx, `
		SELECT prompt, points, COALESCE(option_a, ''), COALESCE(option_b, '')
		FROM question_bank WHERE game_type = $1 ORDER BY position`, string(gameType))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.BankQuestion
	for rows.Next() {
		var q domain.BankQuestion
		if err := rows.Scan(&q.Prompt, &q.Points, &q.OptionA, &q.OptionB); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(out) == 0 {
		return nil, domain.ErrEmptyQuestionBank
	}
	return out, nil
}

// Seed inserts catalog for every game type that has no rows yet. Existing catalogs are left alone.
func (l *QuestionBankLoader) Seed(ctx context.Context, catalog map[domain.GameType][]domain.BankQuestion) error {
	for gameType, questions := range catalog {
		err := l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM question_bank WHERE game_type = $1)`, string(gameType)).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return nil
			}
			batch := &pgx.Batch{}
			for i, q := range questions {
				batch.Queue(`
					INSERT INTO question_bank (game_type, position, prompt, points, option_a, option_b)
					VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
					ON CONFLICT (game_type, position) DO NOTHING`,
					string(gameType), i, q.Prompt, max(q.Points, 1), q.OptionA, q.OptionB)
			}
			return tx.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			return fmt.Errorf("seed question bank %s: %w", gameType, err)
		}
	}
	return nil
}
