package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/saletrack/pos-checkout/internal/checkout"
	"github.com/saletrack/pos-checkout/internal/domain/customer"
	"github.com/saletrack/pos-checkout/internal/domain/payment"
	"github.com/saletrack/pos-checkout/internal/domain/product"
	"github.com/saletrack/pos-checkout/internal/domain/sale"
)

// Decimal amounts marshal as quoted strings so clients are not exposed to
// binary float rounding.

type productResponse struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	MinStock     int             `json:"minStock"`
	BelowMinimum bool            `json:"belowMinimum"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Stock:        p.Stock,
		MinStock:     p.MinStock,
		BelowMinimum: p.BelowMinimum(),
	}
}

func toProductResponses(products []product.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	return out
}

type customerResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IDType   string `json:"idType"`
	IDNumber string `json:"idNumber"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func toCustomerResponse(c *customer.Customer) *customerResponse {
	if c == nil {
		return nil
	}
	return &customerResponse{
		ID:       c.ID,
		Name:     c.Name,
		IDType:   string(c.IDType),
		IDNumber: c.IDNumber,
		Email:    c.Email,
		Phone:    c.Phone,
	}
}

type lineResponse struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type draftResponse struct {
	SessionID      string            `json:"sessionId"`
	State          string            `json:"state"`
	Customer       *customerResponse `json:"customer,omitempty"`
	Lines          []lineResponse    `json:"lines"`
	Method         string            `json:"paymentMethod"`
	Details        map[string]string `json:"paymentDetails,omitempty"`
	RequiredFields []string          `json:"requiredFields"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	Tax            decimal.Decimal   `json:"tax"`
	Total          decimal.Decimal   `json:"total"`
	CanSubmit      bool              `json:"canSubmit"`
}

func toDraftResponse(snap checkout.Snapshot) draftResponse {
	lines := make([]lineResponse, len(snap.Lines))
	for i, l := range snap.Lines {
		lines[i] = lineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
		}
	}
	return draftResponse{
		SessionID:      snap.SessionID,
		State:          snap.State.String(),
		Customer:       toCustomerResponse(snap.Customer),
		Lines:          lines,
		Method:         string(snap.Method),
		Details:        snap.Details,
		RequiredFields: payment.RequiredFields(snap.Method),
		Subtotal:       snap.Subtotal,
		Tax:            snap.Tax,
		Total:          snap.Total,
		CanSubmit:      snap.CanSubmit,
	}
}

type saleItemResponse struct {
	ProductID string          `json:"productId"`
	Position  int             `json:"position"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type saleResponse struct {
	ID         string             `json:"id"`
	CustomerID string             `json:"customerId"`
	UserID     string             `json:"userId"`
	SaleDate   time.Time          `json:"saleDate"`
	Method     string             `json:"paymentMethod"`
	Details    map[string]string  `json:"paymentDetails,omitempty"`
	Total      decimal.Decimal    `json:"total"`
	Status     string             `json:"status"`
	Items      []saleItemResponse `json:"items"`
}

func toSaleResponse(s *sale.Sale) saleResponse {
	items := make([]saleItemResponse, len(s.Items))
	for i, item := range s.Items {
		items[i] = saleItemResponse{
			ProductID: item.ProductID,
			Position:  item.Position,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		}
	}
	return saleResponse{
		ID:         s.ID,
		CustomerID: s.CustomerID,
		UserID:     s.UserID,
		SaleDate:   s.SaleDate,
		Method:     string(s.Method),
		Details:    s.Details,
		Total:      s.TotalAmount,
		Status:     string(s.Status),
		Items:      items,
	}
}
