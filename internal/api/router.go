package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/devflowhub/engine/internal/api/handlers"
	mw "github.com/devflowhub/engine/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret  []byte
	CORSOrigins []string
	RateLimiter *mw.IPRateLimiter

	HealthHandler     *handlers.HealthHandler
	AuthHandler       *handlers.AuthHandler
	ToolsHandler      *handlers.ToolsHandler
	ProjectsHandler   *handlers.ProjectsHandler
	OnboardingHandler *handlers.OnboardingHandler
	UsageHandler      *handlers.UsageHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.CORSOrigins))
	if dep.RateLimiter != nil {
		r.Use(mw.RateLimit(dep.RateLimiter))
	}
	r.Use(chimid.Compress(5))

	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", dep.AuthHandler.Register)
			ar.Post("/login", dep.AuthHandler.Login)
			ar.Post("/logout", dep.AuthHandler.Logout)
		})

		api.Route("/tools", func(tr chi.Router) {
			tr.Get("/", dep.ToolsHandler.List)
			tr.Get("/resolve", dep.ToolsHandler.Resolve)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			protected.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.ProjectsHandler.List)
				pr.Post("/", dep.ProjectsHandler.Create)
				pr.Get("/{id}", dep.ProjectsHandler.Get)
				pr.Put("/{id}", dep.ProjectsHandler.Update)
				pr.Delete("/{id}", dep.ProjectsHandler.Delete)
				pr.Put("/{id}/tool", dep.ProjectsHandler.SetTool)
			})

			protected.Route("/onboarding", func(or chi.Router) {
				or.Get("/", dep.OnboardingHandler.Get)
				or.Post("/steps/{step}", dep.OnboardingHandler.CompleteStep)
			})

			protected.Route("/usage", func(ur chi.Router) {
				ur.Post("/", dep.UsageHandler.Track)
				ur.Get("/", dep.UsageHandler.Recent)
				ur.Get("/summary", dep.UsageHandler.Summary)
			})
		})
	})

	return r
}
