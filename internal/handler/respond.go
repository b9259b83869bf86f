package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saletrack/pos-checkout/internal/checkout"
	"github.com/saletrack/pos-checkout/internal/domain/cart"
	"github.com/saletrack/pos-checkout/internal/domain/customer"
	"github.com/saletrack/pos-checkout/internal/domain/draft"
	"github.com/saletrack/pos-checkout/internal/domain/payment"
	"github.com/saletrack/pos-checkout/internal/domain/product"
	"github.com/saletrack/pos-checkout/internal/domain/sale"
)

// errorResponse is the JSON body on every non-2xx response. Code is a stable
// machine-readable string; Message is human-readable and may change.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already written; an encode failure here means the
	// client went away.
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Code: code, Message: message})
}

// decodeJSON decodes the request body into dst and runs struct validation.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "malformed_body", "request body is not valid JSON: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fe.Field()
			}
			respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Code:    "validation_failed",
				Message: err.Error(),
				Details: fields,
			})
			return false
		}
		respondError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return false
	}
	return true
}

// respondDomainError maps domain errors to HTTP status codes and stable error
// codes. Unrecognized errors are logged and reported as a generic failure.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cartQty     *cart.InvalidQuantityError
		cartStock   *cart.StockExceededError
		saleQty     *sale.InvalidQuantityError
		saleStock   *sale.InsufficientStockError
		prodMissing *sale.ProductNotFoundError
		payDetails  *payment.IncompleteDetailsError
	)

	switch {
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, customer.ErrNotFound):
		respondError(w, http.StatusNotFound, "customer_not_found", err.Error())
	case errors.Is(err, sale.ErrNotFound):
		respondError(w, http.StatusNotFound, "sale_not_found", err.Error())
	case errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "line_not_found", err.Error())

	case errors.As(err, &cartQty), errors.As(err, &saleQty):
		respondError(w, http.StatusUnprocessableEntity, "invalid_quantity", err.Error())
	case errors.As(err, &cartStock):
		respondError(w, http.StatusConflict, "stock_exceeded", err.Error())
	case errors.As(err, &payDetails):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "payment_details_incomplete",
			Message: err.Error(),
			Details: payDetails.Missing,
		})
	case errors.Is(err, payment.ErrUnknownMethod):
		respondError(w, http.StatusUnprocessableEntity, "unknown_payment_method", err.Error())
	case errors.Is(err, customer.ErrUnknownIDType):
		respondError(w, http.StatusUnprocessableEntity, "unknown_id_type", err.Error())
	case errors.Is(err, sale.ErrEmptyLines):
		respondError(w, http.StatusUnprocessableEntity, "empty_sale", err.Error())
	case errors.Is(err, checkout.ErrNotSubmittable):
		respondError(w, http.StatusUnprocessableEntity, "not_submittable", err.Error())

	case errors.As(err, &saleStock):
		respondJSON(w, http.StatusConflict, errorResponse{
			Code:    "insufficient_stock",
			Message: err.Error(),
			Details: map[string]any{
				"productId": saleStock.ProductID,
				"name":      saleStock.Name,
				"requested": saleStock.Requested,
				"available": saleStock.Available,
			},
		})
	case errors.As(err, &prodMissing):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, sale.ErrCustomerNotFound):
		respondError(w, http.StatusNotFound, "customer_not_found", err.Error())

	case errors.Is(err, checkout.ErrSubmissionInFlight), errors.Is(err, draft.ErrSubmitting):
		respondError(w, http.StatusConflict, "submission_in_flight", err.Error())
	case errors.Is(err, checkout.ErrSubmitCooldown):
		respondError(w, http.StatusConflict, "submit_cooldown", err.Error())

	default:
		zctx.From(r.Context()).Error("unhandled error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
