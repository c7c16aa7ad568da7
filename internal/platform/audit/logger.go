package audit

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Entry struct {
	ID           string                 `json:"id"`
	WorkspaceID  string                 `json:"workspace_id"`
	Actor        string                 `json:"actor"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    int64                  `json:"created_at"`
}

type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log records an administrative action. Inserts run fire-and-forget so an
// audit write never blocks or fails the request that triggered it.
func (l *Logger) Log(workspaceID, actor, action, resourceType, resourceID string, metadata map[string]interface{}) {
	entry := &Entry{
		ID:           "audit_" + uuid.New().String(),
		WorkspaceID:  workspaceID,
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		CreatedAt:    time.Now().Unix(),
	}

	metaJSON, _ := json.Marshal(entry.Metadata)

	go func() {
		query := `
			INSERT INTO audit_logs (id, workspace_id, actor, action, resource_type, resource_id, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := l.db.Exec(query, entry.ID, entry.WorkspaceID, entry.Actor, entry.Action, entry.ResourceType, entry.ResourceID, string(metaJSON), entry.CreatedAt); err != nil {
			log.Error().Err(err).Str("action", action).Msg("audit insert failed")
		}
	}()
}
