package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/saletrack/pos-checkout/internal/domain/customer"
)

// FindCustomer serves GET /api/customers?idType=&idNumber=, looking a
// customer up by identification document.
func (h *Handler) FindCustomer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	idType, err := customer.ParseIDType(q.Get("idType"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	idNumber := q.Get("idNumber")
	if idNumber == "" {
		respondError(w, http.StatusUnprocessableEntity, "validation_failed", "idNumber query parameter is required")
		return
	}

	c, err := h.customers.FindByIdentification(r.Context(), idType, idNumber)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCustomerResponse(c))
}

type createCustomerRequest struct {
	Name     string `json:"name" validate:"required"`
	IDType   string `json:"idType" validate:"required"`
	IDNumber string `json:"idNumber" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

// CreateCustomer serves POST /api/customers.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	idType, err := customer.ParseIDType(req.IDType)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	c := customer.Customer{
		ID:       uuid.New().String(),
		Name:     req.Name,
		IDType:   idType,
		IDNumber: req.IDNumber,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if err := h.customers.Create(r.Context(), &c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCustomerResponse(&c))
}
