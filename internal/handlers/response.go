package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/services"
	"github.com/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message})
}

// statusFor maps a service error kind to its HTTP status.
func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindUserNotFound:
		return http.StatusForbidden
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError converts err into the JSON envelope. Internal details
// never reach the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if svcErr.Kind == services.KindRateLimited {
		w.Header().Set("Retry-After", strconv.Itoa(int(svcErr.RetryAfter.Seconds())))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(svcErr.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(svcErr.RetryAfter).Unix(), 10))
	}
	writeError(w, statusFor(svcErr.Kind), svcErr.Message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(dest)
}
