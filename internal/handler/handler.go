// Package handler exposes the checkout engine over HTTP. Handlers decode and
// validate request bodies, delegate to the domain, and map domain errors to
// machine-readable response codes.
package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/saletrack/pos-checkout/internal/checkout"
	"github.com/saletrack/pos-checkout/internal/domain/customer"
	"github.com/saletrack/pos-checkout/internal/domain/product"
	"github.com/saletrack/pos-checkout/internal/domain/sale"
	"github.com/saletrack/pos-checkout/internal/receipt"
)

// Handler serves the checkout API, delegating business logic to the checkout
// manager and the domain repositories.
type Handler struct {
	products  product.Repository
	customers customer.Repository
	sales     sale.Repository
	checkout  *checkout.Manager
	receipts  *receipt.Receipt
	validate  *validator.Validate
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	customers customer.Repository,
	sales sale.Repository,
	manager *checkout.Manager,
	receipts *receipt.Receipt,
) *Handler {
	return &Handler{
		products:  products,
		customers: customers,
		sales:     sales,
		checkout:  manager,
		receipts:  receipts,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers all API routes on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.SearchProducts)
	mux.HandleFunc("GET /api/products/low-stock", h.LowStockProducts)

	mux.HandleFunc("GET /api/customers", h.FindCustomer)
	mux.HandleFunc("POST /api/customers", h.CreateCustomer)

	mux.HandleFunc("GET /api/checkout/{session}", h.GetDraft)
	mux.HandleFunc("DELETE /api/checkout/{session}", h.CancelDraft)
	mux.HandleFunc("PUT /api/checkout/{session}/customer", h.SelectCustomer)
	mux.HandleFunc("POST /api/checkout/{session}/items", h.AddItem)
	mux.HandleFunc("PUT /api/checkout/{session}/items/{productID}", h.SetQuantity)
	mux.HandleFunc("DELETE /api/checkout/{session}/items/{productID}", h.RemoveItem)
	mux.HandleFunc("PUT /api/checkout/{session}/payment", h.SelectMethod)
	mux.HandleFunc("PATCH /api/checkout/{session}/payment", h.SetDetail)
	mux.HandleFunc("POST /api/checkout/{session}/submit", h.Submit)

	mux.HandleFunc("GET /api/sales/{id}", h.GetSale)
	mux.HandleFunc("GET /api/sales/{id}/receipt", h.GetReceipt)
}
