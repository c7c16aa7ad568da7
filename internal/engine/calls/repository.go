package calls

import (
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const callColumns = `id, workspace_id, campaign_id, source_call_id, status, duration_seconds,
	caller_number, receiver_number, platform, utm_source, utm_medium, utm_campaign,
	recording_url, transcript, qa_score, qa_scored, created_at`

func (r *Repository) Insert(call *Call) error {
	query := `
		INSERT INTO calls (
			id, workspace_id, campaign_id, source_call_id, status, duration_seconds,
			caller_number, receiver_number, platform, utm_source, utm_medium, utm_campaign,
			recording_url, transcript, qa_score, qa_scored, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		call.ID,
		call.WorkspaceID,
		call.CampaignID,
		call.SourceCallID,
		string(call.Status),
		call.DurationSeconds,
		call.CallerNumber,
		call.ReceiverNumber,
		call.Platform,
		call.UTMSource,
		call.UTMMedium,
		call.UTMCampaign,
		call.RecordingURL,
		call.Transcript,
		call.QAScore,
		call.QAScored,
		call.CreatedAt,
	)
	return err
}

func (r *Repository) GetByID(workspaceID, id string) (*Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE workspace_id = ? AND id = ?`
	row := r.db.QueryRow(query, workspaceID, id)
	return scanCall(row)
}

type ListFilter struct {
	CampaignID string
	Status     string
	Limit      int
	Offset     int
}

func (r *Repository) ListByWorkspace(workspaceID string, filter ListFilter) ([]*Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE workspace_id = ?`
	args := []interface{}{workspaceID}

	if filter.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, filter.CampaignID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, call)
	}
	return result, rows.Err()
}

func (r *Repository) CountByCampaign(workspaceID, campaignID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM calls WHERE workspace_id = ? AND campaign_id = ?`, workspaceID, campaignID).Scan(&count)
	return count, err
}

func scanCall(s interface {
	Scan(dest ...interface{}) error
}) (*Call, error) {
	var call Call
	var status string
	var recording, transcript sql.NullString

	err := s.Scan(
		&call.ID,
		&call.WorkspaceID,
		&call.CampaignID,
		&call.SourceCallID,
		&status,
		&call.DurationSeconds,
		&call.CallerNumber,
		&call.ReceiverNumber,
		&call.Platform,
		&call.UTMSource,
		&call.UTMMedium,
		&call.UTMCampaign,
		&recording,
		&transcript,
		&call.QAScore,
		&call.QAScored,
		&call.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	call.Status = Status(status)
	call.RecordingURL = recording.String
	call.Transcript = transcript.String

	return &call, nil
}
