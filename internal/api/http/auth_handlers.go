package http

import (
	"net/http"
	"strings"

	authmw "github.com/mind-engage/tutorgrade/internal/auth/middleware"
)

type loginReq struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type loginResp struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Grade     string `json:"grade,omitempty"`
	Role      string `json:"role"`
}

// POST /auth/login
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Password == "" {
		http.Error(w, "user_id and password required", http.StatusBadRequest)
		return
	}
	u, s, err := h.ctl.Login(r.Context(), req.UserID, req.Password)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	tok, err := h.auth.IssueJWT(authmw.Claims{
		Sub:        u.ID,
		Role:       u.Role,
		Name:       u.Name,
		GradeLevel: u.GradeLevel,
		SessionID:  s.ID,
	})
	if err != nil {
		h.fail(w, r, "issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResp{
		Token: tok, SessionID: s.ID, UserID: u.ID, Name: u.Name, Grade: u.GradeLevel, Role: u.Role,
	})
}

// POST /auth/logout
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if sid := caller(r).SessionID; sid != "" {
		if err := h.ctl.Logout(r.Context(), sid); err != nil {
			h.fail(w, r, "logout", err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
