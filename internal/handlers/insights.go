package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/internal/moods"
)

type MoodsResponse struct {
	Success bool               `json:"success"`
	Moods   []moods.Descriptor `json:"moods"`
}

// ListMoods handles GET /api/moods.
func ListMoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MoodsResponse{Success: true, Moods: moods.All()})
}

type ActivityResponse struct {
	Success bool              `json:"success"`
	Events  []models.Activity `json:"events"`
	HasMore bool              `json:"has_more"`
}

// ListActivity handles GET /api/activity?before=<RFC3339>&limit=<n>.
func (h *JournalHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var before *time.Time
	if raw := q.Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be an RFC3339 timestamp")
			return
		}
		before = &t
	}
	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)

	events, hasMore, err := h.svc.RecentActivity(r.Context(), before, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Success: true, Events: events, HasMore: hasMore})
}
