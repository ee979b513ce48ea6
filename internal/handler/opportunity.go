package handler

import (
	"net/http"

	"github.com/reyschwartz19/OpTracker/internal/ctxkeys"
	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/service"
)

type OpportunityHandler struct {
	opportunityService *service.OpportunityService
}

func NewOpportunityHandler(opportunityService *service.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{
		opportunityService: opportunityService,
	}
}

func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	q := r.URL.Query()

	opps, err := h.opportunityService.List(r.Context(), user.ID, service.OpportunityFilter{
		Status: model.Status(q.Get("status")),
		Type:   model.OpportunityType(q.Get("type")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, opps)
}

func (h *OpportunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var in service.CreateOpportunityInput
	if !decodeJSON(w, r, &in) {
		return
	}

	opp, err := h.opportunityService.Create(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, opp)
}

type opportunityDetailResponse struct {
	*service.OpportunityDetail
	Progress []service.StatusProgress `json:"progress"`
}

func (h *OpportunityHandler) Detail(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	detail, err := h.opportunityService.Detail(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, opportunityDetailResponse{
		OpportunityDetail: detail,
		Progress:          service.Progress(detail.Status),
	})
}

func (h *OpportunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var in service.UpdateOpportunityInput
	if !decodeJSON(w, r, &in) {
		return
	}

	opp, err := h.opportunityService.Update(r.Context(), user.ID, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, opp)
}

func (h *OpportunityHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var in struct {
		Status model.Status `json:"status"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	opp, err := h.opportunityService.UpdateStatus(r.Context(), user.ID, r.PathValue("id"), in.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, opp)
}

func (h *OpportunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.opportunityService.Delete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
