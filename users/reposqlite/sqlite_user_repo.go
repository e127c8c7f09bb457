// Package sqliteuserrepo provides a SQLite-backed user store.
package sqliteuserrepo

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/labtrack/labtrack-auth/internal/errors"
	"github.com/labtrack/labtrack-auth/internal/sqlitemigrate"
	"github.com/labtrack/labtrack-auth/users"
	"github.com/labtrack/labtrack-auth/users/reposqlite/migrations"

	_ "modernc.org/sqlite"
)

var _ users.UserRepo = (*SQLiteUserRepo)(nil)

// SQLiteUserRepo persists user records in SQLite.
type SQLiteUserRepo struct {
	sqlDB *sql.DB
}

// Open opens a SQLite user store and applies embedded migrations.
func Open(path string) (*SQLiteUserRepo, error) {
	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}
	repo, err := NewWithDB(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return repo, nil
}

// OpenDB opens the shared SQLite handle used by all sqlite-backed repos.
func OpenDB(path string) (*sql.DB, error) {
	return openDB(path)
}

// NewWithDB wraps an already-open handle, applying this repo's migrations.
func NewWithDB(sqlDB *sql.DB) (*SQLiteUserRepo, error) {
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		return nil, fmt.Errorf("run user migrations: %w", err)
	}
	return &SQLiteUserRepo{sqlDB: sqlDB}, nil
}

func openDB(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return sqlDB, nil
}

// Close closes the SQLite handle.
func (r *SQLiteUserRepo) Close() error {
	if r == nil || r.sqlDB == nil {
		return nil
	}
	return r.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

func (r *SQLiteUserRepo) Upsert(user *users.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := r.sqlDB.Exec(`
INSERT INTO users (id, username, email, full_name, password_hash, recovery_code, recovery_attempts, remember_token, token_expiry, active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    username = excluded.username,
    email = excluded.email,
    full_name = excluded.full_name,
    password_hash = excluded.password_hash,
    recovery_code = excluded.recovery_code,
    recovery_attempts = excluded.recovery_attempts,
    remember_token = excluded.remember_token,
    token_expiry = excluded.token_expiry,
    active = excluded.active
`, user.ID, user.Username, user.Email, user.FullName, user.PasswordHash,
		user.RecoveryCode, user.RecoveryAttempts, user.RememberToken,
		toMillis(user.TokenExpiry), boolToInt(user.Active), toMillis(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepo) Delete(username string) error {
	res, err := r.sqlDB.Exec(`DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *SQLiteUserRepo) GetByID(id string) (*users.User, error) {
	return r.getWhere(`id = ?`, id)
}

func (r *SQLiteUserRepo) GetByUsername(username string) (*users.User, error) {
	return r.getWhere(`username = ?`, username)
}

func (r *SQLiteUserRepo) GetByEmail(email string) (*users.User, error) {
	return r.getWhere(`email = ?`, email)
}

func (r *SQLiteUserRepo) GetByRememberToken(token string) (*users.User, error) {
	if token == "" {
		return nil, apperrors.ErrUserNotFound
	}
	return r.getWhere(`remember_token = ?`, token)
}

func (r *SQLiteUserRepo) Count() (int, error) {
	var count int
	if err := r.sqlDB.QueryRow(`SELECT COUNT(1) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *SQLiteUserRepo) getWhere(where string, arg any) (*users.User, error) {
	row := r.sqlDB.QueryRow(`
SELECT id, username, email, full_name, password_hash, recovery_code, recovery_attempts, remember_token, token_expiry, active, created_at
FROM users WHERE `+where, arg)

	var (
		user        users.User
		tokenExpiry int64
		createdAt   int64
		active      int
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.PasswordHash, &user.RecoveryCode, &user.RecoveryAttempts,
		&user.RememberToken, &tokenExpiry, &active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.TokenExpiry = fromMillis(tokenExpiry)
	user.CreatedAt = fromMillis(createdAt)
	user.Active = active != 0
	return &user, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
