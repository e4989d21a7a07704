package service

import (
	"context"

	"agora/internal/model"

	"github.com/google/uuid"
)

// ProductService defines operations for catalogue management.
type ProductService interface {
	// List retrieves products with pagination.
	List(ctx context.Context, page, limit int) (*model.ProductPage, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// Create adds a new listing owned by the given supplier.
	Create(ctx context.Context, supplierID string, req *model.ProductRequest) (*model.Product, error)

	// Update modifies a listing. Only the owning supplier may update it
	// unless asAdmin is set.
	Update(ctx context.Context, supplierID string, asAdmin bool, id string, req *model.ProductRequest) (*model.Product, error)
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder validates a cart submission, atomically reserves stock
	// for each line item and persists a pending order with unit prices
	// snapshotted at reservation time.
	CreateOrder(ctx context.Context, userID string, req *model.OrderRequest) (*model.Order, error)

	// GetByID retrieves an order by its ID, or nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ContainsSupplierProduct reports whether any line of the order is
	// one of the supplier's products.
	ContainsSupplierProduct(ctx context.Context, order *model.Order, supplierID string) (bool, error)

	// UpdateStatus moves an order through its lifecycle. Transitions out
	// of delivered or cancelled are rejected.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (*model.Order, error)

	// GetByUser lists a customer's orders, newest first.
	GetByUser(ctx context.Context, userID string, status *model.Status, page, limit int) (*model.OrderPage, error)

	// GetBySupplier lists orders containing at least one of the
	// supplier's products.
	GetBySupplier(ctx context.Context, supplierID string, status *model.Status, page, limit int) (*model.OrderPage, error)

	// GetAll lists every order.
	GetAll(ctx context.Context, status *model.Status, page, limit int) (*model.OrderPage, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// clampPaging normalises pagination inputs: page floors at 1 and limit is
// clamped to [1, maxPageSize], with 0 meaning the default page size.
func clampPaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// totalPages computes the page count for an envelope.
func totalPages(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
