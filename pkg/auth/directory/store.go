package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/dittoauth/pkg/config"
)

var (
	// ErrAccountNotFound is returned when the directory has no such user.
	ErrAccountNotFound = errors.New("directory: account not found")

	// ErrDuplicateAccount is returned by CreateAccount for an existing user.
	ErrDuplicateAccount = errors.New("directory: account already exists")
)

// Account is one row of the accounts table.
type Account struct {
	ID             uint       `gorm:"primaryKey"`
	Username       string     `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash   string     `gorm:"size:255;not null"`
	ExpiresAt      *time.Time // nil when the password never expires
	Locked         bool       `gorm:"not null;default:false"`
	FailedAttempts int        `gorm:"not null;default:0"`
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM.
func (Account) TableName() string {
	return "accounts"
}

// Expired reports whether the password has expired at now.
func (a *Account) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}

// Store is the GORM-backed account directory.
// It supports both SQLite and PostgreSQL backends via the same codebase.
type Store struct {
	db *gorm.DB
}

// Open connects to the directory database and migrates the schema.
func Open(cfg *config.DirectoryConfig) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("directory config is nil")
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case config.DatabaseTypeSQLite, "":
		if cfg.SQLite.Path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		// Ensure parent directory exists for SQLite
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// SQLite pragmas for concurrent dittoauth processes:
		// - journal_mode(WAL): Write-Ahead Logging for concurrent readers/single writer
		// - busy_timeout(5000): Wait up to 5 seconds when database is locked
		dsn := cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)

	case config.DatabaseTypePostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == config.DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}

// GetAccount returns the account for username.
func (s *Store) GetAccount(ctx context.Context, username string) (*Account, error) {
	var a Account
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&a).Error
	if err != nil {
		return nil, convertNotFoundError(err, ErrAccountNotFound)
	}
	return &a, nil
}

// CreateAccount inserts a new account.
func (s *Store) CreateAccount(ctx context.Context, a *Account) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateAccount
		}
		return err
	}
	return nil
}

// UpsertAccount creates the account or replaces its password hash and
// expiry. Replacing the password unlocks the account and clears the
// failure counter.
func (s *Store) UpsertAccount(ctx context.Context, username, passwordHash string, expiresAt *time.Time) error {
	a := &Account{
		Username:     username,
		PasswordHash: passwordHash,
		ExpiresAt:    expiresAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
		DoUpdates: clause.Assignments(map[string]any{
			"password_hash":   passwordHash,
			"expires_at":      expiresAt,
			"locked":          false,
			"failed_attempts": 0,
			"updated_at":      time.Now(),
		}),
	}).Create(a).Error
}

// SetLocked locks or unlocks an account.
func (s *Store) SetLocked(ctx context.Context, username string, locked bool) error {
	return s.update(ctx, username, map[string]any{"locked": locked})
}

// RecordFailure increments the consecutive failure counter.
func (s *Store) RecordFailure(ctx context.Context, username string) error {
	return s.update(ctx, username, map[string]any{
		"failed_attempts": gorm.Expr("failed_attempts + ?", 1),
	})
}

// RecordSuccess clears the failure counter and stamps the login time.
func (s *Store) RecordSuccess(ctx context.Context, username string, at time.Time) error {
	return s.update(ctx, username, map[string]any{
		"failed_attempts": 0,
		"last_login_at":   at,
	})
}

// ResetFailures clears the consecutive failure counter.
func (s *Store) ResetFailures(ctx context.Context, username string) error {
	return s.update(ctx, username, map[string]any{"failed_attempts": 0})
}

// DeleteAccount removes an account.
func (s *Store) DeleteAccount(ctx context.Context, username string) error {
	result := s.db.WithContext(ctx).Where("username = ?", username).Delete(&Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ListAccounts returns every account ordered by username.
func (s *Store) ListAccounts(ctx context.Context) ([]*Account, error) {
	var accounts []*Account
	if err := s.db.WithContext(ctx).Order("username").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Store) update(ctx context.Context, username string, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(&Account{}).Where("username = ?", username).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// isUniqueConstraintError checks if the error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite or PostgreSQL unique constraint errors
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint")
}

// convertNotFoundError converts gorm.ErrRecordNotFound to the appropriate domain error.
func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}
