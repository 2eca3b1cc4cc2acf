package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health and metrics
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// Inventory surface, path layout carried over from the original system
	r.Route("/light", func(r chi.Router) {
		// Transient light commands
		r.Post("/turnOn", s.handleTurnOn)
		r.Post("/turnOff", s.handleTurnOff)
		r.Post("/turnOnAll", s.handleTurnOnAll)
		r.Post("/turnOffAll", s.handleTurnOffAll)
		r.Post("/setLEDs", s.handleSetLEDs)
		r.Post("/unsetLEDs", s.handleUnsetLEDs)

		// Shelf and position provisioning
		r.Put("/createShelf", s.handleCreateShelf)
		r.Put("/createPosition", s.handleCreatePosition)
		r.Put("/updatePosition", s.handleUpdatePosition)
		r.Delete("/deletePosition", s.handleDeletePosition)
		r.Delete("/deleteShelf", s.handleDeleteShelf)

		// Queries
		r.Get("/getShelves", s.handleGetShelves)
		r.Get("/getPositions/{shelfNumber}", s.handleGetPositions)
		r.Get("/getMACAddresses", s.handleGetMACAddresses)

		// Controller reconciliation
		r.Get("/getESP32", s.handlePullFromDevice)
		r.Post("/loadESP32", s.handlePushToDevice)
		r.Post("/resetESP32", s.handleResetDevice)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
