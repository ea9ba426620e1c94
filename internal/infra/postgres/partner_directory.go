package postgres

import (
	"context"
	"errors"
	"fmt"

	"couplegame-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PartnerDirectory resolves pairings from the couples table.
type PartnerDirectory struct {
	pool *pgxpool.Pool
}

func NewPartnerDirectory(pool *pgxpool.Pool) *PartnerDirectory {
	return &PartnerDirectory{pool: pool}
}

func (d *PartnerDirectory) PartnerOf(ctx context.Context, userID string) (string, error) {
	var partner string
	err := d.pool.QueryRow(ctx, `SELECT partner_id FROM couples WHERE user_id = $1`, userID).Scan(&partner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNoPartner
	}
	if err != nil {
		return "", fmt.Errorf("load partner: %w", err)
	}
	return partner, nil
}

// Pair links a and b in both directions.
func (d *PartnerDirectory) Pair(ctx context.Context, a, b string) error {
	if a == "" || b == "" || a == b {
		return domain.ErrInvalidPlayers
	}
	return d.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, row := range [][2]string{{a, b}, {b, a}} {
			if _, err := tx.Exec(ctx, `
				INSERT INTO couples (user_id, partner_id) VALUES ($1, $2)
				ON CONFLICT (user_id) DO UPDATE SET partner_id = EXCLUDED.partner_id`, row[0], row[1]); err != nil {
				return fmt.Errorf("pair %s: %w", row[0], err)
			}
		}
		return nil
	})
}
