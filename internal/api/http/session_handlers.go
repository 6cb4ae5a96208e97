package http

import (
	"errors"
	"net/http"

	"github.com/mind-engage/tutorgrade/internal/problem"
	"github.com/mind-engage/tutorgrade/internal/session"
	"github.com/mind-engage/tutorgrade/internal/tutor"
)

type browseReq struct {
	Subject string `json:"subject"`
	Grade   string `json:"grade"`
	Type    string `json:"type"`
}

type browseResp struct {
	Total   int         `json:"total"`
	Current *tutor.View `json:"current,omitempty"`
}

func (h *handlers) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid := caller(r).SessionID
	if sid == "" {
		http.Error(w, "token has no session", http.StatusUnauthorized)
		return "", false
	}
	return sid, true
}

// requireSession rejects tokens whose server-side session has ended, so a
// logged-out token stops working before the JWT itself expires.
func (h *handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, ok := h.sessionID(w, r)
		if !ok {
			return
		}
		if _, err := h.ctl.Session(r.Context(), sid); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				http.Error(w, "session ended", http.StatusUnauthorized)
				return
			}
			h.fail(w, r, "session lookup", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// POST /sessions/browse
func (h *handlers) browse(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req browseReq
	if !decodeJSON(w, r, &req) {
		return
	}
	f := problem.Filter{Subject: req.Subject, GradeLevel: req.Grade}
	if req.Type != "" {
		f.Type = problem.ParseType(req.Type)
	}
	s, err := h.ctl.Browse(r.Context(), sid, f)
	if err != nil {
		h.fail(w, r, "browse", err)
		return
	}
	resp := browseResp{Total: len(s.QuestionIDs)}
	if resp.Total > 0 {
		v, err := h.ctl.Current(r.Context(), sid)
		if err != nil && !errors.Is(err, tutor.ErrNoProblemSet) {
			h.fail(w, r, "browse", err)
			return
		}
		if err == nil {
			resp.Current = &v
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /sessions/current
func (h *handlers) current(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	v, err := h.ctl.Current(r.Context(), sid)
	if err != nil {
		h.fail(w, r, "current", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// POST /sessions/move {"index": n}
func (h *handlers) move(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		Index *int `json:"index"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		http.Error(w, "index required", http.StatusBadRequest)
		return
	}
	v, err := h.ctl.Move(r.Context(), sid, *req.Index)
	if err != nil {
		h.fail(w, r, "move", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// POST /sessions/answer {"question_id": "", "answer": "..."}
func (h *handlers) answer(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		QuestionID string `json:"question_id"`
		Answer     string `json:"answer"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.ctl.Answer(r.Context(), sid, req.QuestionID, req.Answer)
	if err != nil {
		h.fail(w, r, "answer", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
