package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/caseboard/suspect-search/internal/database"
	"github.com/caseboard/suspect-search/internal/pipeline"
	"github.com/caseboard/suspect-search/internal/web/handlers"
	"github.com/caseboard/suspect-search/internal/web/middleware"
)

func (s *Server) setupRoutes(p *pipeline.Pipeline, repo database.Repository) {
	searchHandler := handlers.NewSearchHandler(p, s.log)
	subjectsHandler := handlers.NewSubjectsHandler(repo, p, s.log)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.AuthToken))

		r.Post("/search", searchHandler.Search)

		r.Get("/subjects", subjectsHandler.List)
		r.Post("/subjects", subjectsHandler.Enroll)
		r.Get("/subjects/{id}", subjectsHandler.Get)
		r.Put("/subjects/{id}", subjectsHandler.Update)
		r.Delete("/subjects/{id}", subjectsHandler.Delete)
		r.Post("/subjects/{id}/encodings", subjectsHandler.AddEncoding)

		r.Get("/stats", subjectsHandler.Stats)
	})
}
