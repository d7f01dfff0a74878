package stubapi

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryProfileStore is an in-memory ProfileStore intended for tests and
// dev runs of the stub backend.
type MemoryProfileStore struct {
	mutex     sync.Mutex
	byID      map[string]*ProfileRecord
	bySubject map[string]string
}

// NewMemoryProfileStore creates an empty in-memory store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		byID:      make(map[string]*ProfileRecord),
		bySubject: make(map[string]string),
	}
}

// Create inserts a profile for the subject. A second create for the same
// subject returns ErrProfileAlreadyRegistered and leaves the existing
// record untouched.
func (store *MemoryProfileStore) Create(ctx context.Context, subjectID string, name string, role string, image string) (ProfileRecord, error) {
	if strings.TrimSpace(subjectID) == "" {
		return ProfileRecord{}, fmt.Errorf("profile_store.create: %w", ErrProfileEmptySubject)
	}
	if strings.TrimSpace(name) == "" {
		return ProfileRecord{}, fmt.Errorf("profile_store.create: %w", ErrProfileEmptyName)
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	if _, exists := store.bySubject[subjectID]; exists {
		return ProfileRecord{}, fmt.Errorf("profile_store.create: %w", ErrProfileAlreadyRegistered)
	}

	record := &ProfileRecord{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Name:      name,
		Role:      role,
		Image:     image,
		CreatedAt: time.Now().UTC(),
	}
	store.byID[record.ID] = record
	store.bySubject[subjectID] = record.ID
	return *record, nil
}

// BySubject returns the profile for the subject identity.
func (store *MemoryProfileStore) BySubject(ctx context.Context, subjectID string) (ProfileRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	profileID, exists := store.bySubject[subjectID]
	if !exists {
		return ProfileRecord{}, fmt.Errorf("profile_store.by_subject: %w", ErrProfileNotFound)
	}
	return *store.byID[profileID], nil
}

// List returns every profile ordered by creation time.
func (store *MemoryProfileStore) List(ctx context.Context) ([]ProfileRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	records := make([]ProfileRecord, 0, len(store.byID))
	for _, record := range store.byID {
		records = append(records, *record)
	}
	sort.Slice(records, func(left, right int) bool {
		return records[left].CreatedAt.Before(records[right].CreatedAt)
	})
	return records, nil
}

// UpdateRole changes the role for an existing profile.
func (store *MemoryProfileStore) UpdateRole(ctx context.Context, profileID string, role string) (ProfileRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record, exists := store.byID[profileID]
	if !exists {
		return ProfileRecord{}, fmt.Errorf("profile_store.update_role: %w", ErrProfileNotFound)
	}
	record.Role = role
	return *record, nil
}
