package http

import (
	"net/http"

	"github.com/mind-engage/tutorgrade/internal/problem"
)

type gradeReq struct {
	QuestionID string   `json:"question_id,omitempty"`
	Type       string   `json:"type,omitempty"`
	Canonical  string   `json:"canonical,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Answer     string   `json:"answer"`
}

// POST /grade grades without persisting. Either question_id names a stored
// question, or type/canonical/keywords describe one inline.
func (h *handlers) gradePreview(w http.ResponseWriter, r *http.Request) {
	var req gradeReq
	if !decodeJSON(w, r, &req) {
		return
	}
	var q problem.Question
	if req.QuestionID != "" {
		// grading a stored question would reveal its answer to students
		if !can(r, "problem:view-answers") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		stored, err := h.ctl.Problem(r.Context(), req.QuestionID)
		if err != nil {
			h.fail(w, r, "grade", err)
			return
		}
		q = stored
	} else {
		q = problem.Question{
			Type:     problem.ParseType(req.Type),
			Answer:   req.Canonical,
			Keywords: req.Keywords,
		}
	}
	writeJSON(w, http.StatusOK, h.ctl.Grade(q, req.Answer))
}
