package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
)

// Bucket is a named slot in the shared kv table holding one JSON
// document. The printer registry and the print log each keep their
// entire collection under a single bucket and replace it atomically on
// every write.
type Bucket struct {
	name   string
	db     *sql.DB
	logger *zap.Logger
}

// kvMigrations defines the shared kv table.
var kvMigrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create core_kv table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE core_kv (
					bucket     TEXT PRIMARY KEY,
					value      TEXT NOT NULL,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
}

// NewBucket creates (or reuses) the kv table and returns a handle for
// the named bucket.
func NewBucket(ctx context.Context, s plugin.Store, name string, logger *zap.Logger) (*Bucket, error) {
	if err := s.Migrate(ctx, "core_kv", kvMigrations); err != nil {
		return nil, fmt.Errorf("kv migrations: %w", err)
	}
	return &Bucket{name: name, db: s.DB(), logger: logger}, nil
}

// Load unmarshals the bucket's document into dest. A missing bucket or
// a corrupt stored value leaves dest untouched and returns false; the
// caller starts from its zero value instead of failing.
func (b *Bucket) Load(ctx context.Context, dest any) (bool, error) {
	var raw string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM core_kv WHERE bucket = ?`, b.name,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load bucket %q: %w", b.name, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// Corrupt value: reset rather than crash. The next Save
		// overwrites it.
		b.logger.Warn("discarding corrupt kv document",
			zap.String("bucket", b.name),
			zap.Error(err),
		)
		return false, nil
	}
	return true, nil
}

// Save marshals value and replaces the bucket's document in one write.
func (b *Bucket) Save(ctx context.Context, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal bucket %q: %w", b.name, err)
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO core_kv (bucket, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (bucket) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.name, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save bucket %q: %w", b.name, err)
	}
	return nil
}
