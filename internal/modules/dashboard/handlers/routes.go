package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all dashboard routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.HandleGetState)
	r.Get("/charts", h.HandleGetCharts)

	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.HandleGetAssets)
		r.Post("/refresh", h.HandleRefresh)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetAsset(w, r, chi.URLParam(r, "id"))
			})
			r.Delete("/detail", h.HandleCloseDetail)
			r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetHistory(w, r, chi.URLParam(r, "id"))
			})
			r.Get("/score", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetScore(w, r, chi.URLParam(r, "id"))
			})
			r.Get("/share", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetShareLink(w, r, chi.URLParam(r, "id"))
			})
		})
	})

	r.Delete("/cache/{prefix}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleClearCache(w, r, chi.URLParam(r, "prefix"))
	})
}
