package sqlite

import (
	"path/filepath"
	"testing"
)

func TestOpen_CreatesSchemaAndIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "orderflow.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO orders (order_id, owner_id, items_json, total_price, status, pos_order_id, created_at, updated_at)
		VALUES ('o1', 1, '[]', '10', 'CREATED', 'p1', 'now', 'now')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected row to survive reopen, got %d", n)
	}
}
