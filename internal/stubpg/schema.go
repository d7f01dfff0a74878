package stubpg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS profiles (
    profile_id TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    role TEXT NOT NULL,
    image TEXT NOT NULL DEFAULT '',
    created_at_unix BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_profiles_subject ON profiles (subject_id);
CREATE INDEX IF NOT EXISTS idx_profiles_role ON profiles (role);
`)
	return err
}
