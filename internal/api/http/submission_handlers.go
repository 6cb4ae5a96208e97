package http

import (
	"net/http"
	"strconv"

	"github.com/mind-engage/tutorgrade/internal/problem"
)

func submissionFilter(w http.ResponseWriter, r *http.Request) (problem.SubmissionFilter, bool) {
	q := r.URL.Query()
	f := problem.SubmissionFilter{UserID: q.Get("user_id"), QuestionID: q.Get("question_id")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return f, false
		}
		f.Limit = n
	}
	return f, true
}

// GET /submissions?user_id=&question_id=&limit=
// Students only ever see their own history.
func (h *handlers) listSubmissions(w http.ResponseWriter, r *http.Request) {
	f, ok := submissionFilter(w, r)
	if !ok {
		return
	}
	if !can(r, "submission:view-all") {
		f.UserID = caller(r).Sub
	}
	subs, err := h.ctl.Results(r.Context(), f)
	if err != nil {
		h.fail(w, r, "list submissions", err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// GET /submissions/summary
func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	f, ok := submissionFilter(w, r)
	if !ok {
		return
	}
	sum, err := h.ctl.Summary(r.Context(), f)
	if err != nil {
		h.fail(w, r, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GET /submissions/export  (CSV download)
func (h *handlers) exportSubmissions(w http.ResponseWriter, r *http.Request) {
	f, ok := submissionFilter(w, r)
	if !ok {
		return
	}
	subs, err := h.ctl.Results(r.Context(), f)
	if err != nil {
		h.fail(w, r, "export submissions", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="submissions.csv"`)
	if err := problem.WriteSubmissionsCSV(w, subs); err != nil {
		h.fail(w, r, "export submissions", err)
	}
}
