package registry

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	query := `
	CREATE TABLE webhook_configs (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		secret TEXT NOT NULL,
		selected_fields TEXT,
		downstream_endpoint TEXT,
		status TEXT DEFAULT 'active',
		created_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return db
}

func TestRegisterAndResolve(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	reg := New(db)

	cfg, err := reg.Register("ws_1", []string{"caller_number", "status"}, "")
	if err != nil {
		t.Fatalf("Failed to register webhook: %v", err)
	}

	if !strings.HasPrefix(cfg.ID, "wh_") {
		t.Errorf("Expected wh_ prefix, got %s", cfg.ID)
	}
	if !strings.HasPrefix(cfg.Secret, "whsec_") {
		t.Errorf("Expected whsec_ prefix, got %s", cfg.Secret)
	}

	resolved, err := reg.Resolve(cfg.ID)
	if err != nil {
		t.Fatalf("Failed to resolve webhook: %v", err)
	}
	if resolved.WorkspaceID != "ws_1" {
		t.Errorf("Expected workspace ws_1, got %s", resolved.WorkspaceID)
	}
	if len(resolved.SelectedFields) != 2 {
		t.Errorf("Expected 2 selected fields, got %d", len(resolved.SelectedFields))
	}
}

func TestResolveUnknown(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	reg := New(db)

	if _, err := reg.Resolve("wh_missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestResolveServedFromCache(t *testing.T) {
	// sqlmock proves the second Resolve never reaches the store.
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "workspace_id", "secret", "selected_fields", "downstream_endpoint", "status", "created_at"}).
		AddRow("wh_1", "ws_1", "whsec_1", `["status"]`, nil, "active", 1700000000)

	mock.ExpectQuery("SELECT (.+) FROM webhook_configs WHERE id = ?").
		WithArgs("wh_1").
		WillReturnRows(rows)

	reg := New(db)

	if _, err := reg.Resolve("wh_1"); err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}
	if _, err := reg.Resolve("wh_1"); err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRevoke(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	reg := New(db)

	cfg, err := reg.Register("ws_1", nil, "")
	if err != nil {
		t.Fatalf("Failed to register webhook: %v", err)
	}

	// Wrong workspace cannot revoke
	if err := reg.Revoke(cfg.ID, "ws_other"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for foreign workspace, got %v", err)
	}

	if err := reg.Revoke(cfg.ID, "ws_1"); err != nil {
		t.Fatalf("Failed to revoke webhook: %v", err)
	}

	if _, err := reg.Resolve(cfg.ID); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound after revoke, got %v", err)
	}
}
