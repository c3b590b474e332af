package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/devflowhub/engine/internal/api/types"
	"github.com/devflowhub/engine/internal/services"
)

const defaultSummaryWindow = 30 * 24 * time.Hour

type UsageHandler struct {
	usage services.UsageService
	now   func() time.Time
}

func NewUsageHandler(usage services.UsageService) *UsageHandler {
	return &UsageHandler{usage: usage, now: time.Now}
}

// Track accepts a tool action from the dashboard. Delivery is asynchronous so
// the response is 202 with the normalized event.
func (h *UsageHandler) Track(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req types.UsageEventRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.usage.Track(r.Context(), uid, &services.TrackInput{
		ProjectID:  req.ProjectID,
		Tool:       req.Tool,
		Action:     req.Action,
		DurationMs: req.DurationMs,
		Metadata:   req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: e})
}

func (h *UsageHandler) Recent(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.usage.Recent(r.Context(), uid, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items, Meta: &types.Meta{Total: int64(len(items))}})
}

// Summary aggregates events per tool and action since ?since= (RFC 3339),
// defaulting to the last 30 days.
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	since := h.now().Add(-defaultSummaryWindow)
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeErrorStr(w, r, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = t
	}
	rows, err := h.usage.Summary(r.Context(), uid, since)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: rows})
}
