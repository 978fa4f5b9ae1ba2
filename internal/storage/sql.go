package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLBackend はkv_entriesテーブルを使用したBackend実装。
// SQLite（mattn/go-sqlite3）とPostgreSQL（lib/pq）の両方で同じSQLが動作する。
// scopeごとにキー空間を分離する。
type SQLBackend struct {
	db    *sql.DB
	scope string
	now   func() time.Time
}

// NewSQLBackend はSQLBackendを生成する。テーブルはマイグレーションで作成済みであること。
func NewSQLBackend(db *sql.DB, scope string) *SQLBackend {
	return &SQLBackend{
		db:    db,
		scope: scope,
		now:   time.Now,
	}
}

// Get は値を取得する。存在しない場合はfound=falseを返す。
func (b *SQLBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE scope = $1 AND key = $2`,
		b.scope, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get entry: %w", err)
	}

	return value, true, nil
}

// Set は値をupsertする。
func (b *SQLBackend) Set(ctx context.Context, key, value string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO kv_entries (scope, key, value, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.scope, key, value, b.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to set entry: %w", err)
	}
	return nil
}

// Remove は値を削除する。
func (b *SQLBackend) Remove(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE scope = $1 AND key = $2`,
		b.scope, key,
	)
	if err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Backend = (*SQLBackend)(nil)
