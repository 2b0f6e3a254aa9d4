package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio optimization routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/frontier", func(r chi.Router) {
		r.Get("/defaults", h.HandleGetDefaults)
		r.Post("/analyze", h.HandleAnalyze)
		r.Post("/describe", h.HandleDescribe)
	})
}
