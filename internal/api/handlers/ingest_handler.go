package handlers

import (
	"encoding/json"
	"net/http"

	apiContext "callsight/internal/api/context"
	"callsight/internal/engine/ingest"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const secretHeader = "X-Webhook-Secret"

// IngestHandler is the public endpoint call-tracking platforms POST to.
// Response shapes follow the integration contract those platforms
// already speak: {success, call_id, campaign_id} or {success, error}.
type IngestHandler struct {
	service *ingest.Service
}

func NewIngestHandler(service *ingest.Service) *IngestHandler {
	return &IngestHandler{service: service}
}

func (h *IngestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	webhookID := params.ByName("webhook_id")

	var raw ingest.RawPayload
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeIngestError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result, err := h.service.Ingest(webhookID, r.Header.Get(secretHeader), raw)
	if err != nil {
		status, message := classifyIngestError(err)
		if status == http.StatusInternalServerError {
			// Log the real error; the platform only gets the category
			log.Error().Err(err).Str("webhook_id", webhookID).Msg("ingest failed")
		}
		writeIngestError(w, status, message)
		return
	}

	response := struct {
		Success    bool   `json:"success"`
		CallID     string `json:"call_id"`
		CampaignID string `json:"campaign_id"`
	}{
		Success:    true,
		CallID:     result.CallID,
		CampaignID: result.CampaignID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func classifyIngestError(err error) (int, string) {
	switch e := err.(type) {
	case *ingest.MissingFieldError:
		return http.StatusBadRequest, e.Error()
	case *ingest.PersistenceError:
		return http.StatusInternalServerError, e.Resource + " persistence failed"
	}

	switch err {
	case ingest.ErrWebhookNotFound:
		return http.StatusNotFound, "Webhook not found"
	case ingest.ErrInvalidSecret:
		return http.StatusUnauthorized, "invalid webhook secret"
	}

	return http.StatusInternalServerError, "internal error"
}

func writeIngestError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{Success: false, Error: message})
}
