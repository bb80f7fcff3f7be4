package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/AnshRaj112/reflect-backend/internal/services"
)

// sessionCookie is the cookie the identity provider's frontend SDK sets.
const sessionCookie = "__session"

// TokenVerifier turns a session token into an identity.
type TokenVerifier interface {
	Verify(token string) (services.Identity, error)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Success: false, Message: message})
}

// RequireIdentity verifies the caller's session token and stores the identity
// in the request context. Requests without a valid token get 401.
func RequireIdentity(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			identity, err := verifier.Verify(token)
			if err != nil {
				logger.Log.WithError(err).Debug("rejected session token")
				writeError(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(services.WithIdentity(r.Context(), identity)))
		})
	}
}

// sessionToken reads the bearer token, then the session cookie. Browsers
// cannot set headers on WebSocket upgrades, so /ws/ also accepts ?token=.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if strings.HasPrefix(r.URL.Path, "/ws/") {
		return r.URL.Query().Get("token")
	}
	return ""
}
