package workers

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"callsight/internal/engine/analytics"
	"callsight/internal/engine/campaigns"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	schema := `
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
	CREATE TABLE daily_call_stats (
		id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL,
		date TEXT NOT NULL,
		calls INTEGER DEFAULT 0,
		completed INTEGER DEFAULT 0,
		missed INTEGER DEFAULT 0,
		voicemail INTEGER DEFAULT 0,
		avg_duration_seconds REAL DEFAULT 0,
		avg_qa_score REAL DEFAULT 0,
		created_at INTEGER NOT NULL,
		UNIQUE(campaign_id, date)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func TestAggregateDailyStats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	campaignRepo := campaigns.NewRepository(db)
	analyticsRepo := analytics.NewRepository(db)

	busy, err := campaignRepo.FindOrCreate("ws_1", "google", "", "spring")
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	idle, err := campaignRepo.FindOrCreate("ws_1", "bing", "", "winter")
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	insert := `
		INSERT INTO calls (id, workspace_id, campaign_id, source_call_id, status, duration_seconds, qa_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := db.Exec(insert, "call_1", "ws_1", busy.ID, "c1", "Completed", 120, 80, "2025-03-01T09:00:00Z"); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if _, err := db.Exec(insert, "call_2", "ws_1", busy.ID, "c2", "Missed", 0, 40, "2025-03-01T15:00:00Z"); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	if err := AggregateDailyStats(campaignRepo, analyticsRepo, "2025-03-01"); err != nil {
		t.Fatalf("AggregateDailyStats failed: %v", err)
	}

	stats, err := analyticsRepo.GetDailyStats(busy.ID, "2025-03-01", "2025-03-01")
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("Expected 1 rollup row, got %d", len(stats))
	}
	if stats[0].Calls != 2 || stats[0].Completed != 1 || stats[0].Missed != 1 {
		t.Errorf("Unexpected rollup: %+v", stats[0])
	}

	// Campaigns without calls on the date get no row
	idleStats, err := analyticsRepo.GetDailyStats(idle.ID, "2025-03-01", "2025-03-01")
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if len(idleStats) != 0 {
		t.Errorf("Expected no rollup for idle campaign, got %d rows", len(idleStats))
	}

	// Rerunning is idempotent
	if err := AggregateDailyStats(campaignRepo, analyticsRepo, "2025-03-01"); err != nil {
		t.Fatalf("Rerun failed: %v", err)
	}
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM daily_call_stats`).Scan(&rows); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("Expected rerun to keep a single row, got %d", rows)
	}
}
