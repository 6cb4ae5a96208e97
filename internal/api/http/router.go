package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/tutorgrade/internal/auth/middleware"
	"github.com/mind-engage/tutorgrade/internal/logger"
	"github.com/mind-engage/tutorgrade/internal/metrics"
	"github.com/mind-engage/tutorgrade/internal/rbac"
	"github.com/mind-engage/tutorgrade/internal/storage"
	"github.com/mind-engage/tutorgrade/internal/tutor"
)

type Deps struct {
	Controller  *tutor.Controller
	Auth        *authmw.AuthService
	Blobs       storage.BlobStore
	Metrics     *metrics.Metrics            // optional
	Log         *zap.Logger                 // optional
	CORSOrigins []string                    // empty = no CORS handler
	Ready       func(context.Context) error // optional readiness probe
	Timeout     time.Duration
}

// NewRouter mounts every public and protected route.
func NewRouter(d Deps) chi.Router {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logger.Middleware(d.Log), middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(d.Timeout))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	h := &handlers{ctl: d.Controller, auth: d.Auth, blobs: d.Blobs, log: d.Log, now: time.Now}

	r.Post("/auth/login", h.login)

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth), h.requireSession)

		pr.Post("/auth/logout", h.logout)

		pr.With(rbac.Require("problem:view")).Get("/problems", h.listProblems)
		pr.With(rbac.Require("problem:view")).Get("/problems/{id}", h.getProblem)
		pr.With(rbac.Require("problem:create")).Post("/problems", h.createProblems)
		pr.With(rbac.Require("problem:create")).Post("/problems/import", h.importProblems)

		pr.With(rbac.Require("session:browse")).Post("/sessions/browse", h.browse)
		pr.With(rbac.Require("session:browse")).Get("/sessions/current", h.current)
		pr.With(rbac.Require("session:browse")).Post("/sessions/move", h.move)
		pr.With(rbac.Require("session:answer")).Post("/sessions/answer", h.answer)

		pr.With(rbac.Require("grade:preview")).Post("/grade", h.gradePreview)

		pr.With(rbac.RequireAny("submission:view-own", "submission:view-all")).
			Get("/submissions", h.listSubmissions)
		pr.With(rbac.Require("submission:view-all")).Get("/submissions/summary", h.summary)
		pr.With(rbac.Require("submission:export")).Get("/submissions/export", h.exportSubmissions)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				d.Log.Warn("not ready", zap.Error(err))
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	return r
}

type handlers struct {
	ctl   *tutor.Controller
	auth  *authmw.AuthService
	blobs storage.BlobStore
	log   *zap.Logger
	now   func() time.Time
}
