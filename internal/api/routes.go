package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router. allowedOrigins comes from config so
// deployments can pin their dashboard origin explicitly.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts/{accountID}/leads", func(r chi.Router) {
			r.Get("/", h.ListLeads)
			r.Post("/", h.CreateLead)
			r.Post("/import", h.ImportLeads)
			r.Get("/{leadID}", h.GetLead)
			r.Put("/{leadID}", h.UpdateLead)
			r.Delete("/{leadID}", h.DeleteLead)
		})

		r.Get("/accounts/{accountID}/imports/{runID}", h.GetImportJob)
		r.Get("/imports/{runID}/progress", h.GetImportProgress)
		r.Post("/dropfolder/run", h.TriggerDropFolder)
	})

	return r
}
