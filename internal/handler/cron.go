package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/reyschwartz19/OpTracker/internal/scheduler"
)

// ReminderRunner performs one reminder batch.
type ReminderRunner interface {
	Run(ctx context.Context) (*scheduler.Result, error)
}

type CronHandler struct {
	reminders ReminderRunner
}

func NewCronHandler(reminders ReminderRunner) *CronHandler {
	return &CronHandler{reminders: reminders}
}

func (h *CronHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	res, err := h.reminders.Run(r.Context())
	if err != nil {
		slog.Error("reminder run failed", "error", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sent":    res.Sent,
		"failed":  res.Failed,
		"skipped": res.Skipped,
	})
}
