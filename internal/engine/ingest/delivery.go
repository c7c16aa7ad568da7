package ingest

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Delivery is one outbound forwarding attempt record. Failed deliveries
// keep their payload so the retry worker can re-send the same event.
type Delivery struct {
	ID        string `json:"id"`
	WebhookID string `json:"webhook_id"`
	CallID    string `json:"call_id"`
	Endpoint  string `json:"endpoint"`
	Payload   string `json:"payload"`
	Status    string `json:"status"` // pending, ok, failed
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type DeliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Create(d *Delivery) error {
	d.ID = "dlv_" + uuid.New().String()
	d.Status = "pending"
	d.CreatedAt = time.Now().Unix()
	d.UpdatedAt = d.CreatedAt

	query := `
		INSERT INTO deliveries (id, webhook_id, call_id, endpoint, payload, status, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, d.ID, d.WebhookID, d.CallID, d.Endpoint, d.Payload, d.Status, d.Attempts, d.LastError, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *DeliveryRepository) MarkOK(id string) error {
	_, err := r.db.Exec(`UPDATE deliveries SET status = 'ok', attempts = attempts + 1, last_error = '', updated_at = ? WHERE id = ?`,
		time.Now().Unix(), id)
	return err
}

func (r *DeliveryRepository) MarkFailed(id, lastError string) error {
	_, err := r.db.Exec(`UPDATE deliveries SET status = 'failed', attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`,
		lastError, time.Now().Unix(), id)
	return err
}

// ListRetryable returns failed deliveries still under the attempt cap,
// oldest first.
func (r *DeliveryRepository) ListRetryable(maxAttempts, limit int) ([]*Delivery, error) {
	query := `
		SELECT id, webhook_id, call_id, endpoint, payload, status, attempts, last_error, created_at, updated_at
		FROM deliveries
		WHERE status = 'failed' AND attempts < ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	rows, err := r.db.Query(query, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Delivery
	for rows.Next() {
		var d Delivery
		var lastError sql.NullString
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.CallID, &d.Endpoint, &d.Payload, &d.Status, &d.Attempts, &lastError, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.LastError = lastError.String
		result = append(result, &d)
	}
	return result, rows.Err()
}
