package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dwatkins/billtrack/internal/api"
	apiMiddleware "github.com/dwatkins/billtrack/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	billHandler := api.NewBillHandler(app.assignments, app.billStore, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokens)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Bill endpoints
			r.Post("/bills", billHandler.CreateBill)
			r.Get("/bills", billHandler.ListMyBills)
			r.Get("/bills/{id}", billHandler.GetBill)
			r.Post("/bills/{id}/assign", billHandler.AssignBill)

			// Capacity pre-flight endpoint
			r.Get("/capacity", billHandler.CheckCapacity)
		})
	})

	// Operational endpoints (unauthenticated)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	return r
}
