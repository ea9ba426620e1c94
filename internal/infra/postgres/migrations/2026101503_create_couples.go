package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			// one row per direction so lookups stay a primary key hit
			_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS couples (
				user_id    TEXT PRIMARY KEY,
				partner_id TEXT NOT NULL CHECK (partner_id <> user_id)
			)`)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS couples`)
			return err
		},
	)
}
