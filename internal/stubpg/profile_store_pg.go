package stubpg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tyemirov/decora/internal/stubapi"
)

// uniqueViolationCode is the PostgreSQL error code for a unique
// constraint violation.
const uniqueViolationCode = "23505"

// PostgresProfileStore persists application profiles in PostgreSQL
// through a raw pgx pool.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

// NewPostgresProfileStore constructs a Postgres store.
func NewPostgresProfileStore(pool *pgxpool.Pool) *PostgresProfileStore {
	return &PostgresProfileStore{pool: pool}
}

// Create inserts a profile row. The unique constraint on subject_id
// keeps duplicate registrations idempotent under concurrency.
func (store *PostgresProfileStore) Create(ctx context.Context, subjectID string, name string, role string, image string) (stubapi.ProfileRecord, error) {
	if subjectID == "" {
		return stubapi.ProfileRecord{}, fmt.Errorf("profile_store.create.pg: %w", stubapi.ErrProfileEmptySubject)
	}
	if name == "" {
		return stubapi.ProfileRecord{}, fmt.Errorf("profile_store.create.pg: %w", stubapi.ErrProfileEmptyName)
	}
	record := stubapi.ProfileRecord{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Name:      name,
		Role:      role,
		Image:     image,
		CreatedAt: time.Now().UTC(),
	}
	_, execErr := store.pool.Exec(ctx, `
INSERT INTO profiles (profile_id, subject_id, name, role, image, created_at_unix)
VALUES ($1, $2, $3, $4, $5, $6)
`, record.ID, record.SubjectID, record.Name, record.Role, record.Image, record.CreatedAt.Unix())
	if execErr != nil {
		var pgErr *pgconn.PgError
		if errors.As(execErr, &pgErr) && pgErr.Code == uniqueViolationCode {
			return stubapi.ProfileRecord{}, fmt.Errorf("profile_store.create.pg: %w", stubapi.ErrProfileAlreadyRegistered)
		}
		return stubapi.ProfileRecord{}, fmt.Errorf("profile_store.create.pg: %w", execErr)
	}
	return record, nil
}

// BySubject locates a profile by its subject identity.
func (store *PostgresProfileStore) BySubject(ctx context.Context, subjectID string) (stubapi.ProfileRecord, error) {
	row := store.pool.QueryRow(ctx, `
SELECT profile_id, subject_id, name, role, image, created_at_unix
FROM profiles
WHERE subject_id = $1
`, subjectID)
	record, scanErr := scanProfile(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return stubapi.ProfileRecord{}, fmt.Errorf("profile_store.by_subject.pg: %w", stubapi.ErrProfileNotFound)
		}
		return stubapi.ProfileRecord{}, fmt.Errorf("profile_store.by_subject.pg: %w", scanErr)
	}
	return record, nil
}

// List returns every profile ordered by creation time.
func (store *PostgresProfileStore) List(ctx context.Context) ([]stubapi.ProfileRecord, error) {
	rows, queryErr := store.pool.Query(ctx, `
SELECT profile_id, subject_id, name, role, image, created_at_unix
FROM profiles
ORDER BY created_at_unix ASC
`)
	if queryErr != nil {
		return nil, fmt.Errorf("profile_store.list.pg: %w", queryErr)
	}
	defer rows.Close()

	records := make([]stubapi.ProfileRecord, 0)
	for rows.Next() {
		record, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("profile_store.list.pg: %w", scanErr)
		}
		records = append(records, record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("profile_store.list.pg: %w", rowsErr)
	}
	return records, nil
}

// UpdateRole changes the role for an existing profile.
func (store *PostgresProfileStore) UpdateRole(ctx context.Context, profileID string, role string) (stubapi.ProfileRecord, error) {
	commandTag, execErr := store.pool.Exec(ctx, `
UPDATE profiles SET role = $1 WHERE profile_id = $2
`, role, profileID)
	if execErr != nil {
		return stubapi.ProfileRecord{}, fmt.Errorf("profile_store.update_role.pg: %w", execErr)
	}
	if commandTag.RowsAffected() == 0 {
		return stubapi.ProfileRecord{}, fmt.Errorf("profile_store.update_role.pg: %w", stubapi.ErrProfileNotFound)
	}
	row := store.pool.QueryRow(ctx, `
SELECT profile_id, subject_id, name, role, image, created_at_unix
FROM profiles
WHERE profile_id = $1
`, profileID)
	record, scanErr := scanProfile(row)
	if scanErr != nil {
		return stubapi.ProfileRecord{}, fmt.Errorf("profile_store.update_role.pg: %w", scanErr)
	}
	return record, nil
}

func scanProfile(row pgx.Row) (stubapi.ProfileRecord, error) {
	var record stubapi.ProfileRecord
	var createdAtUnix int64
	if scanErr := row.Scan(&record.ID, &record.SubjectID, &record.Name, &record.Role, &record.Image, &createdAtUnix); scanErr != nil {
		return stubapi.ProfileRecord{}, scanErr
	}
	record.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return record, nil
}
