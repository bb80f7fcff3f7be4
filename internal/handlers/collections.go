package handlers

import (
	"net/http"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/go-chi/chi/v5"
)

type CreateCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CollectionResponse struct {
	Success    bool               `json:"success"`
	Collection *models.Collection `json:"collection"`
}

type CollectionsResponse struct {
	Success     bool                `json:"success"`
	Collections []models.Collection `json:"collections"`
}

// ListCollections handles GET /api/collections.
func (h *JournalHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.svc.ListCollections(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CollectionsResponse{Success: true, Collections: collections})
}

// CreateCollection handles POST /api/collections.
func (h *JournalHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c, err := h.svc.CreateCollection(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CollectionResponse{Success: true, Collection: c})
}

// DeleteCollection handles DELETE /api/collections/{id}.
func (h *JournalHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCollection(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ErrorResponse{Success: true, Message: "Collection deleted"})
}
