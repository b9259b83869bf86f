package handler

import (
	"net/http"
)

// SearchProducts serves GET /api/products?q=. An empty query returns the
// whole catalog.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponses(products))
}

// LowStockProducts serves GET /api/products/low-stock: products at or below
// their restock threshold.
func (h *Handler) LowStockProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.LowStock(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponses(products))
}
