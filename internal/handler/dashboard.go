package handler

import (
	"net/http"

	"github.com/reyschwartz19/OpTracker/internal/ctxkeys"
	"github.com/reyschwartz19/OpTracker/internal/service"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	dashboard, err := h.dashboardService.Dashboard(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// Calendar accepts an optional ?month=YYYY-MM.
func (h *DashboardHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	opps, err := h.dashboardService.Calendar(r.Context(), user.ID, r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, opps)
}
