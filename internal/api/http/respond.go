package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mind-engage/tutorgrade/internal/auth"
	authmw "github.com/mind-engage/tutorgrade/internal/auth/middleware"
	"github.com/mind-engage/tutorgrade/internal/problem"
	"github.com/mind-engage/tutorgrade/internal/rbac"
	"github.com/mind-engage/tutorgrade/internal/session"
	"github.com/mind-engage/tutorgrade/internal/tutor"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// fail maps domain errors onto status codes; anything unknown is a 500.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, problem.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, "session expired, log in again", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, problem.ErrInvalid),
		errors.Is(err, tutor.ErrOutOfRange),
		errors.Is(err, tutor.ErrNoProblemSet):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error(op+" failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		http.Error(w, op+": internal error", http.StatusInternalServerError)
	}
}

// caller returns the verified token claims; JWTMiddleware guarantees them.
func caller(r *http.Request) authmw.Claims {
	c, _ := authmw.ClaimsFromContext(r.Context())
	return c
}

func can(r *http.Request, perm string) bool { return rbac.Can(r.Context(), perm) }
