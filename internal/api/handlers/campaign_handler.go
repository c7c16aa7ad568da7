package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	apiContext "callsight/internal/api/context"
	"callsight/internal/engine/analytics"
	"callsight/internal/engine/campaigns"
	"callsight/internal/pkg/errors"
	"callsight/internal/platform/auth"

	"github.com/julienschmidt/httprouter"
)

type CampaignHandler struct {
	repo      *campaigns.Repository
	analytics *analytics.Repository
}

func NewCampaignHandler(repo *campaigns.Repository, analyticsRepo *analytics.Repository) *CampaignHandler {
	return &CampaignHandler{repo: repo, analytics: analyticsRepo}
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	list, err := h.repo.ListByWorkspace(claims.WorkspaceID, limit, (page-1)*limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list campaigns", nil)
		return
	}
	if list == nil {
		list = []*campaigns.Campaign{}
	}

	errors.WriteJSON(w, http.StatusOK, list)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	campaignID := params.ByName("campaign_id")

	campaign, err := h.repo.GetByID(claims.WorkspaceID, campaignID)
	if err != nil {
		if err == sql.ErrNoRows {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Campaign not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load campaign", nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, campaign)
}

// Stats returns the live summary plus daily rollups for the requested
// date range (defaults to the last 30 days).
func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	campaignID := params.ByName("campaign_id")

	if _, err := h.repo.GetByID(claims.WorkspaceID, campaignID); err != nil {
		if err == sql.ErrNoRows {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Campaign not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load campaign", nil)
		return
	}

	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	if startDate == "" || endDate == "" {
		now := time.Now().UTC()
		endDate = now.Format("2006-01-02")
		startDate = now.AddDate(0, 0, -30).Format("2006-01-02")
	}

	summary, err := h.analytics.GetCampaignSummary(claims.WorkspaceID, campaignID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to compute stats", nil)
		return
	}

	daily, err := h.analytics.GetDailyStats(campaignID, startDate, endDate)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load daily stats", nil)
		return
	}
	if daily == nil {
		daily = []analytics.DailyStat{}
	}

	response := struct {
		Summary *analytics.CampaignSummary `json:"summary"`
		Daily   []analytics.DailyStat      `json:"daily"`
	}{Summary: summary, Daily: daily}

	errors.WriteJSON(w, http.StatusOK, response)
}
