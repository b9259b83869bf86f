package handler

import (
	"net/http"

	"github.com/saletrack/pos-checkout/internal/checkout"
	"github.com/saletrack/pos-checkout/internal/domain/payment"
)

// session resolves the checkout session named in the request path.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	id := r.PathValue("session")
	if id == "" {
		respondError(w, http.StatusUnprocessableEntity, "validation_failed", "session identifier is required")
		return nil, false
	}
	s, err := h.checkout.Session(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return nil, false
	}
	return s, true
}

// GetDraft serves GET /api/checkout/{session}: the current draft, resumed
// from the session cache when the register reconnects.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toDraftResponse(s.Snapshot()))
}

type selectCustomerRequest struct {
	CustomerID string `json:"customerId" validate:"required"`
}

// SelectCustomer serves PUT /api/checkout/{session}/customer.
func (h *Handler) SelectCustomer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectCustomerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	c, err := h.customers.GetByID(r.Context(), req.CustomerID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := s.SelectCustomer(r.Context(), *c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDraftResponse(s.Snapshot()))
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// AddItem serves POST /api/checkout/{session}/items. Adding a product that is
// already in the cart merges into the existing line.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := s.AddItem(r.Context(), *p, req.Quantity); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDraftResponse(s.Snapshot()))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// SetQuantity serves PUT /api/checkout/{session}/items/{productID}.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req setQuantityRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := s.SetQuantity(r.Context(), r.PathValue("productID"), req.Quantity); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDraftResponse(s.Snapshot()))
}

// RemoveItem serves DELETE /api/checkout/{session}/items/{productID}.
// Removing an absent line is a no-op.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveItem(r.Context(), r.PathValue("productID")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDraftResponse(s.Snapshot()))
}

type selectMethodRequest struct {
	Method string `json:"method" validate:"required"`
}

// SelectMethod serves PUT /api/checkout/{session}/payment. Switching the
// method discards any details entered for the previous one.
func (h *Handler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectMethodRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	m, err := payment.ParseMethod(req.Method)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := s.SelectMethod(r.Context(), m); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDraftResponse(s.Snapshot()))
}

type setDetailRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// SetDetail serves PATCH /api/checkout/{session}/payment: merge one payment
// detail field into the draft.
func (h *Handler) SetDetail(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req setDetailRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := s.SetDetail(r.Context(), req.Field, req.Value); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toDraftResponse(s.Snapshot()))
}

type submitRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// Submit serves POST /api/checkout/{session}/submit: run finalization exactly
// once for the current draft. Duplicate submissions while one is in flight
// are rejected, not queued.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	committed, err := s.Submit(r.Context(), req.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toSaleResponse(committed))
}

// CancelDraft serves DELETE /api/checkout/{session}: discard the draft and
// its cache entry without committing.
func (h *Handler) CancelDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Cancel(r.Context()); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
