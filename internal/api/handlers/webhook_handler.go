package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	apiContext "callsight/internal/api/context"
	"callsight/internal/pkg/errors"
	"callsight/internal/platform/audit"
	"callsight/internal/platform/auth"
	"callsight/internal/platform/registry"

	"github.com/julienschmidt/httprouter"
)

type WebhookHandler struct {
	registry      *registry.Registry
	audit         *audit.Logger
	ingestBaseURL string
}

func NewWebhookHandler(reg *registry.Registry, auditLogger *audit.Logger, ingestBaseURL string) *WebhookHandler {
	return &WebhookHandler{
		registry:      reg,
		audit:         auditLogger,
		ingestBaseURL: ingestBaseURL,
	}
}

// Create registers a new inbound webhook for a workspace. The generated
// secret is returned exactly once, here.
func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkspaceID        string   `json:"workspace_id"`
		SelectedFields     []string `json:"selected_fields"`
		DownstreamEndpoint string   `json:"downstream_endpoint"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if req.WorkspaceID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "workspace_id is required", nil)
		return
	}

	cfg, err := h.registry.Register(req.WorkspaceID, req.SelectedFields, req.DownstreamEndpoint)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to register webhook", nil)
		return
	}

	h.audit.Log(req.WorkspaceID, actorFrom(r), "webhook.registered", "webhook", cfg.ID, map[string]interface{}{
		"selected_fields": req.SelectedFields,
	})

	response := struct {
		WebhookID  string `json:"webhook_id"`
		WebhookURL string `json:"webhook_url"`
		Secret     string `json:"secret"`
	}{
		WebhookID:  cfg.ID,
		WebhookURL: fmt.Sprintf("%s/webhook/%s", h.ingestBaseURL, cfg.ID),
		Secret:     cfg.Secret,
	}

	errors.WriteJSON(w, http.StatusCreated, response)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	configs, err := h.registry.ListByWorkspace(claims.WorkspaceID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list webhooks", nil)
		return
	}

	// Secrets are shown only at creation time
	type listed struct {
		ID                 string   `json:"id"`
		WorkspaceID        string   `json:"workspace_id"`
		SelectedFields     []string `json:"selected_fields"`
		DownstreamEndpoint string   `json:"downstream_endpoint,omitempty"`
		Status             string   `json:"status"`
		CreatedAt          int64    `json:"created_at"`
	}
	out := make([]listed, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, listed{
			ID:                 cfg.ID,
			WorkspaceID:        cfg.WorkspaceID,
			SelectedFields:     cfg.SelectedFields,
			DownstreamEndpoint: cfg.DownstreamEndpoint,
			Status:             cfg.Status,
			CreatedAt:          cfg.CreatedAt,
		})
	}

	errors.WriteJSON(w, http.StatusOK, out)
}

func (h *WebhookHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	webhookID := params.ByName("webhook_id")

	if err := h.registry.Revoke(webhookID, claims.WorkspaceID); err != nil {
		if err == registry.ErrNotFound {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to revoke webhook", nil)
		return
	}

	h.audit.Log(claims.WorkspaceID, claims.UserID, "webhook.revoked", "webhook", webhookID, nil)

	w.WriteHeader(http.StatusOK)
}

func actorFrom(r *http.Request) string {
	if claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims); ok {
		return claims.UserID
	}
	return "api"
}
