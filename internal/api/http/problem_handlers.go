package http

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/tutorgrade/internal/problem"
	"github.com/mind-engage/tutorgrade/internal/storage"
)

func problemFilter(r *http.Request) problem.Filter {
	q := r.URL.Query()
	f := problem.Filter{Subject: q.Get("subject"), GradeLevel: q.Get("grade")}
	if t := q.Get("type"); t != "" {
		f.Type = problem.ParseType(t)
	}
	return f
}

// GET /problems?subject=&grade=&type=
func (h *handlers) listProblems(w http.ResponseWriter, r *http.Request) {
	qs, err := h.ctl.Problems(r.Context(), problemFilter(r))
	if err != nil {
		h.fail(w, r, "list problems", err)
		return
	}
	if !can(r, "problem:view-answers") {
		for i := range qs {
			qs[i] = qs[i].StudentView()
		}
	}
	writeJSON(w, http.StatusOK, qs)
}

// GET /problems/{id}
func (h *handlers) getProblem(w http.ResponseWriter, r *http.Request) {
	q, err := h.ctl.Problem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get problem", err)
		return
	}
	if !can(r, "problem:view-answers") {
		q = q.StudentView()
	}
	writeJSON(w, http.StatusOK, q)
}

// POST /problems  (JSON array of questions; upsert by id)
func (h *handlers) createProblems(w http.ResponseWriter, r *http.Request) {
	var qs []problem.Question
	if !decodeJSON(w, r, &qs) {
		return
	}
	if len(qs) == 0 {
		http.Error(w, "no questions", http.StatusBadRequest)
		return
	}
	for i := range qs {
		qs[i].Type = problem.ParseType(string(qs[i].Type))
		qs[i].Difficulty = problem.ParseDifficulty(string(qs[i].Difficulty))
	}
	if err := h.ctl.AddProblems(r.Context(), qs...); err != nil {
		h.fail(w, r, "store problems", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"stored": len(qs)})
}

// POST /problems/import  (multipart file=<csv|json|qti xml|qti zip>)
func (h *handlers) importProblems(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "read upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	var key string
	if h.blobs != nil {
		key, err = h.blobs.Put(r.Context(), storage.ImportKey(hdr.Filename, h.now()), bytes.NewReader(raw))
		if err != nil {
			h.fail(w, r, "archive upload", err)
			return
		}
	}
	n, err := h.ctl.ImportProblems(r.Context(), hdr.Filename, raw)
	if err != nil {
		h.fail(w, r, "import problems", err)
		return
	}
	h.log.Info("problems imported",
		zap.String("user_id", caller(r).Sub), zap.String("file", hdr.Filename),
		zap.String("archive_key", key), zap.Int("count", n))
	writeJSON(w, http.StatusOK, map[string]any{"imported": n, "archive_key": key})
}
