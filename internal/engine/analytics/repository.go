package analytics

import (
	"database/sql"
	"fmt"
	"time"
)

type DailyStat struct {
	Date            string  `json:"date"`
	Calls           int     `json:"calls"`
	Completed       int     `json:"completed"`
	Missed          int     `json:"missed"`
	Voicemail       int     `json:"voicemail"`
	AvgDurationSecs float64 `json:"avg_duration_seconds"`
	AvgQAScore      float64 `json:"avg_qa_score"`
}

type CampaignSummary struct {
	CampaignID      string  `json:"campaign_id"`
	TotalCalls      int     `json:"total_calls"`
	Completed       int     `json:"completed"`
	Missed          int     `json:"missed"`
	Voicemail       int     `json:"voicemail"`
	AvgDurationSecs float64 `json:"avg_duration_seconds"`
	AvgQAScore      float64 `json:"avg_qa_score"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ComputeDailyStats aggregates one campaign's calls for one date.
// Call timestamps are RFC3339 strings, so the day boundary is a string
// prefix match on the date portion.
func (r *Repository) ComputeDailyStats(campaignID, date string) (*DailyStat, error) {
	stat := &DailyStat{Date: date}
	prefix := date + "%"

	err := r.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'Completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'Missed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'Voicemail' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(duration_seconds), 0),
			COALESCE(AVG(qa_score), 0)
		FROM calls
		WHERE campaign_id = ? AND created_at LIKE ?
	`, campaignID, prefix).Scan(
		&stat.Calls, &stat.Completed, &stat.Missed, &stat.Voicemail,
		&stat.AvgDurationSecs, &stat.AvgQAScore,
	)
	if err != nil {
		return nil, err
	}

	return stat, nil
}

func (r *Repository) UpsertDailyStats(campaignID string, stat *DailyStat) error {
	query := `
		INSERT INTO daily_call_stats (id, campaign_id, date, calls, completed, missed, voicemail, avg_duration_seconds, avg_qa_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(campaign_id, date) DO UPDATE SET
			calls=excluded.calls,
			completed=excluded.completed,
			missed=excluded.missed,
			voicemail=excluded.voicemail,
			avg_duration_seconds=excluded.avg_duration_seconds,
			avg_qa_score=excluded.avg_qa_score
	`
	id := fmt.Sprintf("%s_%s", campaignID, stat.Date)

	_, err := r.db.Exec(query,
		id, campaignID, stat.Date,
		stat.Calls, stat.Completed, stat.Missed, stat.Voicemail,
		stat.AvgDurationSecs, stat.AvgQAScore,
		time.Now().Unix(),
	)
	return err
}

func (r *Repository) GetDailyStats(campaignID, startDate, endDate string) ([]DailyStat, error) {
	query := `
		SELECT date, calls, completed, missed, voicemail, avg_duration_seconds, avg_qa_score
		FROM daily_call_stats
		WHERE campaign_id = ? AND date >= ? AND date <= ?
		ORDER BY date DESC
	`
	rows, err := r.db.Query(query, campaignID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var s DailyStat
		if err := rows.Scan(&s.Date, &s.Calls, &s.Completed, &s.Missed, &s.Voicemail, &s.AvgDurationSecs, &s.AvgQAScore); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// GetCampaignSummary aggregates over the live calls table rather than the
// daily rollups so the dashboard sees today's calls immediately.
func (r *Repository) GetCampaignSummary(workspaceID, campaignID string) (*CampaignSummary, error) {
	summary := &CampaignSummary{CampaignID: campaignID}

	err := r.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'Completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'Missed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'Voicemail' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(duration_seconds), 0),
			COALESCE(AVG(qa_score), 0)
		FROM calls
		WHERE workspace_id = ? AND campaign_id = ?
	`, workspaceID, campaignID).Scan(
		&summary.TotalCalls, &summary.Completed, &summary.Missed, &summary.Voicemail,
		&summary.AvgDurationSecs, &summary.AvgQAScore,
	)
	if err != nil {
		return nil, err
	}

	return summary, nil
}
