package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a supplier-managed marketplace listing.
type Product struct {
	ID          string          `json:"id" db:"id"`
	SupplierID  string          `json:"supplierId" db:"supplier_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description,omitempty" db:"description"`
	Category    string          `json:"category" db:"category"`
	Price       decimal.Decimal `json:"price" db:"price"`
	OnHand      int             `json:"onHand" db:"on_hand"`
	ImageURL    *string         `json:"imageUrl,omitempty" db:"image_url"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// ProductRequest represents the payload for creating or updating a product.
// OnHand is honoured only at creation; stock moves exclusively through
// order reservation afterwards.
type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	OnHand      int             `json:"onHand"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
}

// ProductPage is a paginated product listing.
type ProductPage struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}
