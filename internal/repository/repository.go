package repository

import (
	"context"

	"agora/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves products with pagination, returning the page and the
	// total catalogue count.
	List(ctx context.Context, limit, offset int) ([]model.Product, int, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// ValidateProductsExist checks if all provided product IDs exist in the
	// database. Returns error if any product ID does not exist.
	ValidateProductsExist(ctx context.Context, ids []string) error

	// Create inserts a new product.
	Create(ctx context.Context, p *model.Product) error

	// Update overwrites the mutable listing fields of a product. Stock is
	// not touched; it moves only through ReserveStock.
	Update(ctx context.Context, p *model.Product) error

	// ReserveStock atomically decrements a product's on-hand count by
	// quantity, guarded by on_hand >= quantity, within the provided
	// transaction. It returns the current selling price so callers can
	// snapshot it in the same atomic step. A product with too little
	// stock, or no product at all, yields *model.InsufficientStockError.
	ReserveStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) (decimal.Decimal, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID with its items, or nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// List retrieves orders matching the filter with pagination, newest
	// first, returning the page and the total match count.
	List(ctx context.Context, filter model.OrderFilter, limit, offset int) ([]model.Order, int, error)

	// UpdateStatus sets the status of a non-terminal order. It reports
	// false when the order was missing or already terminal.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (bool, error)
}
