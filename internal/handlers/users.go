package handlers

import (
	"net/http"

	"github.com/AnshRaj112/reflect-backend/internal/models"
	"github.com/AnshRaj112/reflect-backend/internal/services"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type MeResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// Me handles GET /api/me. The first call for a new identity creates its
// local user row.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Provision(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{Success: true, User: user})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
