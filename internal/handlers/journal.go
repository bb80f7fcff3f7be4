package handlers

import (
	"net/http"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

// JournalHandler serves entries, drafts, collections and activity for the
// authenticated caller.
type JournalHandler struct {
	svc *services.JournalService
}

func NewJournalHandler(svc *services.JournalService) *JournalHandler {
	return &JournalHandler{svc: svc}
}

type EntryResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Entry   *models.Entry `json:"entry"`
}

type EntriesResponse struct {
	Success bool                 `json:"success"`
	Entries []services.EntryView `json:"entries"`
	Total   int                  `json:"total"`
}

// ListEntries handles GET /api/entries?collection=&order=.
func (h *JournalHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ParseEntryFilter(q.Get("collection"), q.Get("order"))

	entries, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Success: true, Entries: entries, Total: len(entries)})
}

// CreateEntry handles POST /api/entries.
func (h *JournalHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req services.EntryInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.svc.Publish(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, EntryResponse{Success: true, Message: "Journal entry created", Entry: entry})
}

// GetEntry handles GET /api/entries/{id}.
func (h *JournalHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Entry: entry})
}

// UpdateEntry handles PUT /api/entries/{id}.
func (h *JournalHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req services.EntryInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Message: "Journal entry updated", Entry: entry})
}

// DeleteEntry handles DELETE /api/entries/{id} and returns the removed entry.
func (h *JournalHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Message: "Journal entry deleted", Entry: entry})
}

type DraftResponse struct {
	Success bool          `json:"success"`
	Draft   *models.Draft `json:"draft"`
}

// GetDraft handles GET /api/drafts. A missing draft is {"draft": null}.
func (h *JournalHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.svc.GetDraft(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Success: true, Draft: draft})
}

// SaveDraft handles PUT /api/drafts.
func (h *JournalHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req services.DraftInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	draft, err := h.svc.SaveDraft(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Success: true, Draft: draft})
}
