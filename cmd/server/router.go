package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/tasktracker-api/internal/api"
	apiMiddleware "github.com/phrazzld/tasktracker-api/internal/api/middleware"
	"github.com/phrazzld/tasktracker-api/internal/api/shared"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)
	r.Use(app.metrics.Middleware)
	// CORS answers preflight requests, so it runs before authentication.
	r.Use(apiMiddleware.CORS(apiMiddleware.DefaultCORSConfig(app.config.Server.AllowedOrigins...)))

	r.NotFound(endpointNotFound)
	r.MethodNotAllowed(endpointNotFound)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Post("/tasks", taskHandler.CreateTask)
		r.Put("/tasks", taskHandler.UpdateTask)
		r.Delete("/tasks", taskHandler.DeleteTask)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return r
}

// endpointNotFound answers unknown paths and unsupported methods alike.
func endpointNotFound(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithError(w, r, http.StatusNotFound, "Endpoint not found")
}
