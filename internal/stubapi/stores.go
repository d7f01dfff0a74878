package stubapi

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrProfileNotFound indicates no profile exists for the subject.
	ErrProfileNotFound = errors.New("profile_store.not_found")
	// ErrProfileAlreadyRegistered signals a duplicate registration for a
	// subject that already has a profile. Registration stays idempotent:
	// the duplicate call never creates a second profile.
	ErrProfileAlreadyRegistered = errors.New("profile_store.already_registered")
	// ErrProfileEmptySubject indicates the subject identifier is empty.
	ErrProfileEmptySubject = errors.New("profile_store.empty_subject")
	// ErrProfileEmptyName indicates the profile name is empty.
	ErrProfileEmptyName = errors.New("profile_store.empty_name")
)

// ProfileRecord is one application profile. Exactly one record exists
// per subject identity.
type ProfileRecord struct {
	ID        string
	SubjectID string
	Name      string
	Role      string
	Image     string
	CreatedAt time.Time
}

// ProfileStore persists application profiles keyed by subject identity.
type ProfileStore interface {
	Create(ctx context.Context, subjectID string, name string, role string, image string) (ProfileRecord, error)
	BySubject(ctx context.Context, subjectID string) (ProfileRecord, error)
	List(ctx context.Context) ([]ProfileRecord, error)
	UpdateRole(ctx context.Context, profileID string, role string) (ProfileRecord, error)
}
