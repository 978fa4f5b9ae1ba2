package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/storefront/internal/database"
)

// newSQLiteBackend は一時ディレクトリのSQLiteにマイグレーションを適用してBackendを返す。
func newSQLiteBackend(t *testing.T, scope string) (*SQLBackend, func(scope string) *SQLBackend) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "kv.db")
	if err := database.RunMigrations("sqlite3://" + path); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	db, err := database.Open(database.DriverSQLite, path)
	if err != nil {
		t.Fatalf("データベースへの接続に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewSQLBackend(db, scope), func(s string) *SQLBackend { return NewSQLBackend(db, s) }
}

func TestSQLBackend_SetGetRemove(t *testing.T) {
	b, _ := newSQLiteBackend(t, "storefront")
	ctx := context.Background()

	if _, found, err := b.Get(ctx, "user"); err != nil || found {
		t.Fatalf("Get on empty table = found %v, err %v", found, err)
	}

	if err := b.Set(ctx, "user", `{"id":"u1"}`); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	v, found, err := b.Get(ctx, "user")
	if err != nil || !found {
		t.Fatalf("Get = found %v, err %v", found, err)
	}
	if v != `{"id":"u1"}` {
		t.Errorf("value = %q", v)
	}

	if err := b.Remove(ctx, "user"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, found, _ := b.Get(ctx, "user"); found {
		t.Error("value still present after Remove")
	}
}

func TestSQLBackend_Set_Overwrites(t *testing.T) {
	b, _ := newSQLiteBackend(t, "storefront")
	ctx := context.Background()

	b.now = func() time.Time { return time.UnixMilli(1000) }
	if err := b.Set(ctx, "cart", "[]"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	b.now = func() time.Time { return time.UnixMilli(2000) }
	if err := b.Set(ctx, "cart", `[{"id":"sku1"}]`); err != nil {
		t.Fatalf("second Set returned error: %v", err)
	}

	v, _, _ := b.Get(ctx, "cart")
	if v != `[{"id":"sku1"}]` {
		t.Errorf("value = %q, want overwritten value", v)
	}

	var updatedAt int64
	if err := b.db.QueryRow(`SELECT updated_at FROM kv_entries WHERE scope = 'storefront' AND key = 'cart'`).Scan(&updatedAt); err != nil {
		t.Fatalf("failed to read updated_at: %v", err)
	}
	if updatedAt != 2000 {
		t.Errorf("updated_at = %d, want 2000", updatedAt)
	}
}

func TestSQLBackend_ScopesAreIsolated(t *testing.T) {
	a, withScope := newSQLiteBackend(t, "shop-a")
	b := withScope("shop-b")
	ctx := context.Background()

	_ = a.Set(ctx, "user", "a")
	if _, found, _ := b.Get(ctx, "user"); found {
		t.Error("別スコープの値が見えてしまう")
	}

	_ = b.Set(ctx, "user", "b")
	_ = b.Remove(ctx, "user")
	if v, found, _ := a.Get(ctx, "user"); !found || v != "a" {
		t.Errorf("別スコープの削除が影響した: found=%v value=%q", found, v)
	}
}

// TestSQLBackend_SurvivesReopen は再起動後も値が残ることを検証する。
func TestSQLBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	if err := database.RunMigrations("sqlite3://" + path); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}
	ctx := context.Background()

	db1, err := database.Open(database.DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	a1 := NewAdapter(NewSQLBackend(db1, "storefront"), nil, nil)
	if err := a1.Write(ctx, KeyCurrentUser, testUser{ID: "u1", FirstName: "A"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	db1.Close()

	db2, err := database.Open(database.DriverSQLite, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db2.Close()
	a2 := NewAdapter(NewSQLBackend(db2, "storefront"), nil, nil)

	var out testUser
	found, err := a2.Read(ctx, KeyCurrentUser, &out)
	if err != nil || !found {
		t.Fatalf("Read after reopen = found %v, err %v", found, err)
	}
	if out.ID != "u1" || out.FirstName != "A" {
		t.Errorf("Read after reopen = %+v", out)
	}
}
