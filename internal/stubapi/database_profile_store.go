package stubapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sqliteDialector "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("profile_store.unsupported_dialect")

	errEmptyDatabaseURL    = errors.New("profile_store.empty_database_url")
	errSQLiteEmptyPath     = errors.New("profile_store.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("profile_store.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("profile_store.unsupported_no_scheme")
)

// DatabaseProfileStore persists application profiles using GORM.
type DatabaseProfileStore struct {
	db          *gorm.DB
	driverLabel string
}

// Driver exposes the selected database driver label.
func (store *DatabaseProfileStore) Driver() string {
	return store.driverLabel
}

type profileRow struct {
	ProfileID     string `gorm:"column:profile_id;primaryKey"`
	SubjectID     string `gorm:"column:subject_id;uniqueIndex;not null"`
	Name          string `gorm:"column:name;not null"`
	Role          string `gorm:"column:role;not null"`
	Image         string `gorm:"column:image;not null;default:''"`
	CreatedAtUnix int64  `gorm:"column:created_at_unix;not null"`
}

func (profileRow) TableName() string {
	return "profiles"
}

func (row profileRow) toRecord() ProfileRecord {
	return ProfileRecord{
		ID:        row.ProfileID,
		SubjectID: row.SubjectID,
		Name:      row.Name,
		Role:      row.Role,
		Image:     row.Image,
		CreatedAt: time.Unix(row.CreatedAtUnix, 0).UTC(),
	}
}

// NewDatabaseProfileStore constructs a GORM-backed store. The database
// URL scheme selects the driver: postgres:// or sqlite://.
func NewDatabaseProfileStore(ctx context.Context, databaseURL string) (*DatabaseProfileStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("profile_store.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if openErr != nil {
		return nil, fmt.Errorf("profile_store.open.%s: %w", driverLabel, openErr)
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&profileRow{}); migrateErr != nil {
		return nil, fmt.Errorf("profile_store.migrate.%s: %w", driverLabel, migrateErr)
	}
	return &DatabaseProfileStore{
		db:          gormDB,
		driverLabel: driverLabel,
	}, nil
}

// Create inserts a profile row. The unique index on subject_id makes the
// duplicate path race-safe: a concurrent insert for the same subject
// surfaces as ErrProfileAlreadyRegistered rather than a second row.
func (store *DatabaseProfileStore) Create(ctx context.Context, subjectID string, name string, role string, image string) (ProfileRecord, error) {
	if strings.TrimSpace(subjectID) == "" {
		return ProfileRecord{}, fmt.Errorf("profile_store.create.%s: %w", store.driverLabel, ErrProfileEmptySubject)
	}
	if strings.TrimSpace(name) == "" {
		return ProfileRecord{}, fmt.Errorf("profile_store.create.%s: %w", store.driverLabel, ErrProfileEmptyName)
	}
	row := profileRow{
		ProfileID:     uuid.NewString(),
		SubjectID:     subjectID,
		Name:          name,
		Role:          role,
		Image:         image,
		CreatedAtUnix: time.Now().UTC().Unix(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ProfileRecord{}, fmt.Errorf("profile_store.create.%s: %w", store.driverLabel, ErrProfileAlreadyRegistered)
		}
		return ProfileRecord{}, fmt.Errorf("profile_store.create.%s: %w", store.driverLabel, err)
	}
	return row.toRecord(), nil
}

// BySubject locates a profile by its subject identity.
func (store *DatabaseProfileStore) BySubject(ctx context.Context, subjectID string) (ProfileRecord, error) {
	var row profileRow
	err := store.db.WithContext(ctx).Where("subject_id = ?", subjectID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProfileRecord{}, fmt.Errorf("profile_store.by_subject.%s: %w", store.driverLabel, ErrProfileNotFound)
		}
		return ProfileRecord{}, fmt.Errorf("profile_store.by_subject.%s: %w", store.driverLabel, err)
	}
	return row.toRecord(), nil
}

// List returns every profile ordered by creation time.
func (store *DatabaseProfileStore) List(ctx context.Context) ([]ProfileRecord, error) {
	var rows []profileRow
	if err := store.db.WithContext(ctx).Order("created_at_unix asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("profile_store.list.%s: %w", store.driverLabel, err)
	}
	records := make([]ProfileRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

// UpdateRole changes the role for an existing profile.
func (store *DatabaseProfileStore) UpdateRole(ctx context.Context, profileID string, role string) (ProfileRecord, error) {
	result := store.db.WithContext(ctx).Model(&profileRow{}).
		Where("profile_id = ?", profileID).
		Update("role", role)
	if result.Error != nil {
		return ProfileRecord{}, fmt.Errorf("profile_store.update_role.%s: %w", store.driverLabel, result.Error)
	}
	if result.RowsAffected == 0 {
		return ProfileRecord{}, fmt.Errorf("profile_store.update_role.%s: %w", store.driverLabel, ErrProfileNotFound)
	}
	var row profileRow
	if err := store.db.WithContext(ctx).Where("profile_id = ?", profileID).Take(&row).Error; err != nil {
		return ProfileRecord{}, fmt.Errorf("profile_store.update_role.%s: %w", store.driverLabel, err)
	}
	return row.toRecord(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique") || strings.Contains(text, "duplicate")
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("profile_store.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", fmt.Errorf("profile_store.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("profile_store.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("profile_store.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
