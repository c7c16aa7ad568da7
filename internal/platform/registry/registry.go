package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("webhook not found")

// WebhookConfig is one registered inbound webhook. The ID doubles as a
// bearer credential in the ingest URL path, so it has to be drawn from a
// large random space.
type WebhookConfig struct {
	ID                 string   `json:"id"`
	WorkspaceID        string   `json:"workspace_id"`
	Secret             string   `json:"secret"`
	SelectedFields     []string `json:"selected_fields"` // JSON array in DB
	DownstreamEndpoint string   `json:"downstream_endpoint,omitempty"`
	Status             string   `json:"status"` // active, revoked
	CreatedAt          int64    `json:"created_at"`
}

type cachedConfig struct {
	config   *WebhookConfig
	cachedAt time.Time
}

// Registry keeps webhook configs in the store and serves lookups through
// an in-process cache, so registrations survive restarts and ingest
// lookups stay off the hot path.
type Registry struct {
	db    *sql.DB
	cache sync.Map // map[webhookID]*cachedConfig
	ttl   time.Duration
}

func New(db *sql.DB) *Registry {
	return &Registry{db: db, ttl: 5 * time.Minute}
}

func (r *Registry) Register(workspaceID string, selectedFields []string, downstreamEndpoint string) (*WebhookConfig, error) {
	cfg := &WebhookConfig{
		ID:                 "wh_" + uuid.New().String(),
		WorkspaceID:        workspaceID,
		Secret:             "whsec_" + uuid.New().String(),
		SelectedFields:     selectedFields,
		DownstreamEndpoint: downstreamEndpoint,
		Status:             "active",
		CreatedAt:          time.Now().Unix(),
	}

	fieldsJSON, err := json.Marshal(cfg.SelectedFields)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO webhook_configs (id, workspace_id, secret, selected_fields, downstream_endpoint, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, cfg.ID, cfg.WorkspaceID, cfg.Secret, string(fieldsJSON), cfg.DownstreamEndpoint, cfg.Status, cfg.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.cache.Store(cfg.ID, &cachedConfig{config: cfg, cachedAt: time.Now()})
	return cfg, nil
}

func (r *Registry) Resolve(id string) (*WebhookConfig, error) {
	if val, ok := r.cache.Load(id); ok {
		entry := val.(*cachedConfig)
		if time.Since(entry.cachedAt) < r.ttl {
			return entry.config, nil
		}
		r.cache.Delete(id)
	}

	cfg, err := r.fetch(id)
	if err != nil {
		return nil, err
	}

	r.cache.Store(id, &cachedConfig{config: cfg, cachedAt: time.Now()})
	return cfg, nil
}

func (r *Registry) fetch(id string) (*WebhookConfig, error) {
	query := `
		SELECT id, workspace_id, secret, selected_fields, downstream_endpoint, status, created_at
		FROM webhook_configs WHERE id = ? AND status = 'active'
	`
	row := r.db.QueryRow(query, id)

	var cfg WebhookConfig
	var fieldsStr string
	var downstream sql.NullString

	err := row.Scan(&cfg.ID, &cfg.WorkspaceID, &cfg.Secret, &fieldsStr, &downstream, &cfg.Status, &cfg.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if downstream.Valid {
		cfg.DownstreamEndpoint = downstream.String
	}
	if err := json.Unmarshal([]byte(fieldsStr), &cfg.SelectedFields); err != nil {
		// A corrupted column means the full record gets forwarded; make
		// that visible instead of silent.
		log.Error().Err(err).Str("webhook_id", cfg.ID).Msg("invalid selected_fields column")
	}

	return &cfg, nil
}

func (r *Registry) ListByWorkspace(workspaceID string) ([]*WebhookConfig, error) {
	query := `
		SELECT id, workspace_id, secret, selected_fields, downstream_endpoint, status, created_at
		FROM webhook_configs WHERE workspace_id = ? AND status = 'active'
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*WebhookConfig
	for rows.Next() {
		var cfg WebhookConfig
		var fieldsStr string
		var downstream sql.NullString

		if err := rows.Scan(&cfg.ID, &cfg.WorkspaceID, &cfg.Secret, &fieldsStr, &downstream, &cfg.Status, &cfg.CreatedAt); err != nil {
			return nil, err
		}
		if downstream.Valid {
			cfg.DownstreamEndpoint = downstream.String
		}
		if err := json.Unmarshal([]byte(fieldsStr), &cfg.SelectedFields); err != nil {
			log.Error().Err(err).Str("webhook_id", cfg.ID).Msg("invalid selected_fields column")
		}
		configs = append(configs, &cfg)
	}
	return configs, rows.Err()
}

// Revoke is scoped by workspace so one tenant cannot revoke another's
// webhook by guessing an identifier.
func (r *Registry) Revoke(id, workspaceID string) error {
	res, err := r.db.Exec(`UPDATE webhook_configs SET status = 'revoked' WHERE id = ? AND workspace_id = ? AND status = 'active'`, id, workspaceID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.cache.Delete(id)
	return nil
}
