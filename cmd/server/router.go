package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inkpress/storybook-api/internal/api"
	apiMiddleware "github.com/inkpress/storybook-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	projectHandler := api.NewProjectHandler(app.projectStore)
	photoHandler := api.NewPhotoHandler(app.uploadQueue, app.photoStore, app.objectStore)
	generationHandler := api.NewGenerationHandler(
		app.manager,
		app.pageStore,
		app.illustrationStore,
		app.objectStore,
	)

	r.Route("/api/projects", func(r chi.Router) {
		r.Post("/", projectHandler.CreateProject)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", projectHandler.GetProject)
			r.Put("/transcript", projectHandler.UpdateTranscript)

			// Photo upload and listing
			r.Post("/photos", photoHandler.UploadPhotos)
			r.Get("/photos", photoHandler.ListPhotos)
			r.Get("/photos/progress", photoHandler.UploadProgress)

			// Generation lifecycle
			r.Post("/generation", generationHandler.StartGeneration)
			r.Get("/generation", generationHandler.GenerationStatus)
			r.Post("/generation/stop", generationHandler.StopGeneration)
			r.Post("/generation/skip", generationHandler.SkipGeneration)
			r.Post("/generation/retry", generationHandler.RetryGeneration)

			// Page review
			r.Get("/pages", generationHandler.ListPages)
			r.Put("/pages/{pageID}/illustrations/{illustrationID}/select",
				generationHandler.SelectIllustration)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
