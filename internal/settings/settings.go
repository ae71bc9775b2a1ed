// Package settings stores operator-editable configuration, such as the
// business name printed on receipt headers, in the shared database.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/printdeck/printdeck/internal/plugin"
)

// ErrNotFound is returned when a setting key does not exist.
var ErrNotFound = errors.New("setting not found")

// KeyStoreName is the business name shown on receipt headers.
const KeyStoreName = "store_name"

// Setting is one key-value configuration entry.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository provides access to stored settings.
type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	GetAll(ctx context.Context) ([]Setting, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository implements Repository on the shared store.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates the repository and runs its migration.
func NewSQLiteRepository(ctx context.Context, store plugin.Store) (*SQLiteRepository, error) {
	if err := store.Migrate(ctx, "settings", migrations); err != nil {
		return nil, fmt.Errorf("settings migrations: %w", err)
	}
	return &SQLiteRepository{db: store.DB()}, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM core_settings WHERE key = ?`, key,
	).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}
	return &s, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]Setting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM core_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting row: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO core_settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM core_settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create core_settings table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE core_settings (
					key        TEXT PRIMARY KEY,
					value      TEXT NOT NULL,
					updated_at TIMESTAMP NOT NULL
				)`)
			return err
		},
	},
}
