package ingest

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"

	"callsight/internal/engine/calls"
	"callsight/internal/engine/campaigns"
	"callsight/internal/platform/registry"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	schema := `
	CREATE TABLE webhook_configs (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		secret TEXT NOT NULL,
		selected_fields TEXT,
		downstream_endpoint TEXT,
		status TEXT DEFAULT 'active',
		created_at INTEGER NOT NULL
	);
	CREATE TABLE campaigns (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		name TEXT NOT NULL,
		utm_source TEXT NOT NULL DEFAULT '',
		utm_medium TEXT NOT NULL DEFAULT '',
		utm_campaign TEXT NOT NULL DEFAULT '',
		status TEXT DEFAULT 'active',
		created_at INTEGER NOT NULL,
		UNIQUE(workspace_id, utm_source, utm_medium, utm_campaign)
	);
	CREATE TABLE calls (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		campaign_id TEXT NOT NULL,
		source_call_id TEXT,
		status TEXT NOT NULL,
		duration_seconds INTEGER DEFAULT 0,
		caller_number TEXT,
		receiver_number TEXT,
		platform TEXT,
		utm_source TEXT,
		utm_medium TEXT,
		utm_campaign TEXT,
		recording_url TEXT,
		transcript TEXT,
		qa_score INTEGER DEFAULT 0,
		qa_scored INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE TABLE deliveries (
		id TEXT PRIMARY KEY,
		webhook_id TEXT NOT NULL,
		call_id TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT DEFAULT 'pending',
		attempts INTEGER DEFAULT 0,
		last_error TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *sql.DB) (*Service, *registry.Registry) {
	reg := registry.New(db)
	svc := NewService(reg, campaigns.NewRepository(db), calls.NewRepository(db), nil)
	return svc, reg
}

func validPayload() RawPayload {
	return RawPayload{
		"call_id":       "c1",
		"status":        "answered",
		"duration":      120.0,
		"caller_number": "+15551234567",
		"utm_source":    "google",
		"utm_campaign":  "spring",
	}
}

func TestIngestHappyPath(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, reg := newTestService(t, db)

	cfg, err := reg.Register("ws_1", nil, "")
	if err != nil {
		t.Fatalf("Failed to register webhook: %v", err)
	}

	result, err := svc.Ingest(cfg.ID, cfg.Secret, validPayload())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.CallID == "" || result.CampaignID == "" {
		t.Fatalf("Expected call and campaign ids, got %+v", result)
	}

	stored, err := calls.NewRepository(db).GetByID("ws_1", result.CallID)
	if err != nil {
		t.Fatalf("Persisted call not found: %v", err)
	}
	if stored.Status != calls.StatusCompleted {
		t.Errorf("Expected status Completed, got %s", stored.Status)
	}
	if stored.CampaignID != result.CampaignID {
		t.Errorf("Call references campaign %s, result says %s", stored.CampaignID, result.CampaignID)
	}
	if stored.SourceCallID != "c1" {
		t.Errorf("Expected source call id c1, got %s", stored.SourceCallID)
	}

	snap := svc.Metrics().Snapshot()
	if snap.Received != 1 || snap.Persisted != 1 {
		t.Errorf("Unexpected metrics: %+v", snap)
	}
}

func TestIngestReusesCampaign(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, reg := newTestService(t, db)
	cfg, _ := reg.Register("ws_1", nil, "")

	first, err := svc.Ingest(cfg.ID, cfg.Secret, validPayload())
	if err != nil {
		t.Fatalf("First ingest failed: %v", err)
	}

	second := validPayload()
	second["call_id"] = "c2"
	result, err := svc.Ingest(cfg.ID, cfg.Secret, second)
	if err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}

	if result.CampaignID != first.CampaignID {
		t.Errorf("Expected campaign %s to be reused, got %s", first.CampaignID, result.CampaignID)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM campaigns`).Scan(&count)
	if count != 1 {
		t.Errorf("Expected exactly one campaign, got %d", count)
	}
}

func TestIngestInvalidSecretWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, reg := newTestService(t, db)
	cfg, _ := reg.Register("ws_1", nil, "")

	_, err := svc.Ingest(cfg.ID, "whsec_wrong", validPayload())
	if err != ErrInvalidSecret {
		t.Fatalf("Expected ErrInvalidSecret, got %v", err)
	}

	var campaignCount, callCount int
	db.QueryRow(`SELECT COUNT(*) FROM campaigns`).Scan(&campaignCount)
	db.QueryRow(`SELECT COUNT(*) FROM calls`).Scan(&callCount)
	if campaignCount != 0 || callCount != 0 {
		t.Errorf("Rejected request wrote rows: %d campaigns, %d calls", campaignCount, callCount)
	}
}

func TestIngestUnknownWebhook(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, _ := newTestService(t, db)

	_, err := svc.Ingest("wh_missing", "whsec_x", validPayload())
	if err != ErrWebhookNotFound {
		t.Fatalf("Expected ErrWebhookNotFound, got %v", err)
	}
}

func TestIngestMissingCallID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc, reg := newTestService(t, db)
	cfg, _ := reg.Register("ws_1", nil, "")

	_, err := svc.Ingest(cfg.ID, cfg.Secret, RawPayload{"status": "answered"})
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingFieldError, got %v", err)
	}
	if missing.Field != "call_id" {
		t.Errorf("Expected field call_id, got %s", missing.Field)
	}
}

func TestIngestCampaignPersistenceFailure(t *testing.T) {
	// sqlmock stands in for a failing store: resolve succeeds, the
	// campaign lookup blows up, and the error surfaces typed.
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM webhook_configs WHERE id = ?").
		WithArgs("wh_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "secret", "selected_fields", "downstream_endpoint", "status", "created_at"}).
			AddRow("wh_1", "ws_1", "whsec_1", `[]`, nil, "active", 1700000000))

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WillReturnError(errors.New("store unavailable"))

	svc := NewService(registry.New(db), campaigns.NewRepository(db), calls.NewRepository(db), nil)

	_, err = svc.Ingest("wh_1", "whsec_1", validPayload())
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected PersistenceError, got %v", err)
	}
	if perr.Resource != "campaign" {
		t.Errorf("Expected campaign persistence error, got %s", perr.Resource)
	}
}
