package campaigns

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindOrCreate returns the campaign owning the given attribution triple,
// creating it when absent. The campaigns table carries a UNIQUE index on
// (workspace_id, utm_source, utm_medium, utm_campaign); when two requests
// race on a previously-unseen triple, the loser's insert hits the
// constraint and we re-fetch the winner's row instead of duplicating it.
func (r *Repository) FindOrCreate(workspaceID, utmSource, utmMedium, utmCampaign string) (*Campaign, error) {
	existing, err := r.getByTriple(workspaceID, utmSource, utmMedium, utmCampaign)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	campaign := &Campaign{
		ID:          "camp_" + uuid.New().String(),
		WorkspaceID: workspaceID,
		Name:        DisplayName(utmSource, utmCampaign),
		UTMSource:   utmSource,
		UTMMedium:   utmMedium,
		UTMCampaign: utmCampaign,
		Status:      "active",
		CreatedAt:   time.Now().Unix(),
	}

	query := `
		INSERT INTO campaigns (id, workspace_id, name, utm_source, utm_medium, utm_campaign, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, campaign.ID, campaign.WorkspaceID, campaign.Name,
		campaign.UTMSource, campaign.UTMMedium, campaign.UTMCampaign, campaign.Status, campaign.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			existing, ferr := r.getByTriple(workspaceID, utmSource, utmMedium, utmCampaign)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	return campaign, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func (r *Repository) getByTriple(workspaceID, utmSource, utmMedium, utmCampaign string) (*Campaign, error) {
	query := `
		SELECT id, workspace_id, name, utm_source, utm_medium, utm_campaign, status, created_at
		FROM campaigns
		WHERE workspace_id = ? AND utm_source = ? AND utm_medium = ? AND utm_campaign = ?
	`
	row := r.db.QueryRow(query, workspaceID, utmSource, utmMedium, utmCampaign)

	campaign, err := scanCampaign(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return campaign, nil
}

func (r *Repository) GetByID(workspaceID, id string) (*Campaign, error) {
	query := `
		SELECT id, workspace_id, name, utm_source, utm_medium, utm_campaign, status, created_at
		FROM campaigns WHERE workspace_id = ? AND id = ?
	`
	row := r.db.QueryRow(query, workspaceID, id)
	return scanCampaign(row)
}

func (r *Repository) ListByWorkspace(workspaceID string, limit, offset int) ([]*Campaign, error) {
	query := `
		SELECT id, workspace_id, name, utm_source, utm_medium, utm_campaign, status, created_at
		FROM campaigns WHERE workspace_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, campaign)
	}
	return result, rows.Err()
}

// ListAll is used by the stats aggregation worker, which walks every
// workspace's campaigns.
func (r *Repository) ListAll() ([]*Campaign, error) {
	query := `
		SELECT id, workspace_id, name, utm_source, utm_medium, utm_campaign, status, created_at
		FROM campaigns ORDER BY created_at
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, campaign)
	}
	return result, rows.Err()
}

func scanCampaign(s interface {
	Scan(dest ...interface{}) error
}) (*Campaign, error) {
	var c Campaign
	err := s.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.UTMSource, &c.UTMMedium, &c.UTMCampaign, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
