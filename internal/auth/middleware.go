package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"adaptive-view-backend/internal/analytics"
)

type Middleware struct {
	secret []byte
	logger *zap.Logger
}

// New returns a bearer-token middleware. With an empty secret it lets every
// request through.
func New(secret []byte, logger *zap.Logger) Middleware {
	return Middleware{secret: secret, logger: logger}
}

func (m Middleware) Enabled() bool {
	return len(m.secret) > 0
}

func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	if !m.Enabled() {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		// Preflight never carries credentials.
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			unauthorized(w, "missing token")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		userID, err := ParseToken(m.secret, tokenString)
		if err != nil {
			m.logger.Debug("Rejected bearer token", zap.Error(err))
			unauthorized(w, "invalid token")
			return
		}

		ctx := analytics.WithUserID(r.Context(), userID)
		next(w, r.WithContext(ctx))
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
