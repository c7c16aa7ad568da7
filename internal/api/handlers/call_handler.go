package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	apiContext "callsight/internal/api/context"
	"callsight/internal/engine/calls"
	"callsight/internal/pkg/errors"
	"callsight/internal/platform/auth"

	"github.com/julienschmidt/httprouter"
)

type CallHandler struct {
	repo *calls.Repository
}

func NewCallHandler(repo *calls.Repository) *CallHandler {
	return &CallHandler{repo: repo}
}

func (h *CallHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	filter := calls.ListFilter{
		CampaignID: r.URL.Query().Get("campaign_id"),
		Status:     r.URL.Query().Get("status"),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	list, err := h.repo.ListByWorkspace(claims.WorkspaceID, filter)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list calls", nil)
		return
	}
	if list == nil {
		list = []*calls.Call{}
	}

	errors.WriteJSON(w, http.StatusOK, list)
}

func (h *CallHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	callID := params.ByName("call_id")

	call, err := h.repo.GetByID(claims.WorkspaceID, callID)
	if err != nil {
		if err == sql.ErrNoRows {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Call not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load call", nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, call)
}
