package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	apihandler "github.com/maraichr/notebook/internal/api/handler"
	apimw "github.com/maraichr/notebook/internal/api/middleware"
	"github.com/maraichr/notebook/internal/auth"
	"github.com/maraichr/notebook/internal/question"
)

// RouterDeps holds optional dependencies for the router.
type RouterDeps struct {
	// DB backs the readiness probe. Nil reports ready.
	DB       apihandler.Pinger
	Sessions apihandler.SessionStore
	// Exports enables ?async=true on snapshot export.
	Exports  apihandler.ExportQueue
	Verifier *auth.Verifier
}

func NewRouter(logger *slog.Logger, questions *question.Service, deps *RouterDeps) *chi.Mux {
	if deps == nil {
		deps = &RouterDeps{}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.Logger(logger))
	r.Use(apimw.CORS)
	r.Use(chimw.Recoverer)

	// Health checks
	health := apihandler.NewHealthHandler(deps.DB)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	var authn func(http.Handler) http.Handler
	if deps.Verifier != nil {
		authn = auth.RequireAuth(deps.Verifier, logger)
	} else {
		authn = auth.DevModeMiddleware(logger)
	}

	notebook := apihandler.NewNotebookHandler(logger, questions, deps.Sessions)
	questionsH := apihandler.NewQuestionHandler(logger, questions, notebook)
	if deps.Exports != nil {
		questionsH.WithExports(deps.Exports)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn)
		r.Use(auth.RequireScope(auth.ScopeRead, auth.ScopeWrite))

		r.Route("/notebook", func(r chi.Router) {
			r.Post("/steps", notebook.Steps)
			r.Route("/steps/{stepID}", func(r chi.Router) {
				r.Post("/revert", notebook.Revert)
				r.Post("/update", notebook.Update)
				r.Post("/open", notebook.Open)
				r.Post("/close", notebook.Close)
			})
			r.Post("/clauses", notebook.Clauses)
		})

		r.Route("/questions", func(r chi.Router) {
			r.Get("/", questionsH.List)
			r.With(auth.RequireScope(auth.ScopeWrite)).Post("/", questionsH.Create)
			r.With(auth.RequireScope(auth.ScopeWrite)).Post("/import", questionsH.Import)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", questionsH.Get)
				r.Get("/steps", questionsH.Steps)
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireScope(auth.ScopeWrite))
					r.Put("/", questionsH.Update)
					r.Delete("/", questionsH.Delete)
					r.Post("/export", questionsH.Export)
				})
			})
		})
	})

	return r
}
