package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/saletrack/pos-checkout/internal/domain/customer"
)

// GetSale serves GET /api/sales/{id}: a committed sale with its items.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	s, err := h.sales.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toSaleResponse(s))
}

// GetReceipt serves GET /api/sales/{id}/receipt as text/plain. The receipt is
// rendered from the committed record, so it can be reprinted at any time.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.sales.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	c, err := h.customers.GetByID(ctx, s.CustomerID)
	if err != nil {
		if !errors.Is(err, customer.ErrNotFound) {
			respondDomainError(w, r, err)
			return
		}
		// A later customer deletion must not make the receipt unprintable.
		c = nil
	}

	ids := make([]string, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.ProductID
	}
	names := make(map[string]string, len(ids))
	products, err := h.products.GetByIDs(ctx, ids)
	if err != nil {
		zctx.From(ctx).Warn("resolve product names for receipt",
			zap.String("sale_id", s.ID), zap.Error(err))
	} else {
		for _, p := range products {
			names[p.ID] = p.Name
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := h.receipts.Render(w, s, c, names); err != nil {
		zctx.From(ctx).Error("render receipt", zap.String("sale_id", s.ID), zap.Error(err))
	}
}
