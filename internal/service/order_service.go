package service

import (
	"context"
	"fmt"
	"time"

	"agora/internal/model"
	"agora/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder reserves stock for every line item and persists the order
// in one transaction. Each reservation is a single conditional decrement
// at the storage layer, so concurrent orders against the same product
// serialise there; a failed line rolls the whole transaction back and no
// earlier decrement survives.
func (s *orderService) CreateOrder(ctx context.Context, userID string, req *model.OrderRequest) (*model.Order, error) {
	if err := s.validateOrderRequest(userID, req); err != nil {
		return nil, err
	}

	// Validate the products exist before touching stock, so an unknown
	// id surfaces as not-found rather than as a reservation failure.
	productIDs := make([]string, len(req.Items))
	for i, item := range req.Items {
		productIDs[i] = item.ProductID
	}

	if err := s.productRepo.ValidateProductsExist(ctx, productIDs); err != nil {
		s.logger.Warn().
			Int("product_count", len(productIDs)).
			Err(err).
			Msg("product validation failed")
		return nil, err
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Roll back on any error, undoing every decrement applied so far.
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	now := time.Now()
	order := &model.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          model.StatusPending,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	total := decimal.Zero
	items := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		var price decimal.Decimal
		price, err = s.productRepo.ReserveStock(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("stock reservation failed")
			return nil, err
		}

		items[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: price,
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	order.Total = total
	order.Items = items

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", userID).
		Int("item_count", len(items)).
		Str("total", total.String()).
		Msg("order created")

	return order, nil
}

// GetByID retrieves an order by its ID, or nil when absent.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ContainsSupplierProduct reports whether any line of the order is one
// of the supplier's products.
func (s *orderService) ContainsSupplierProduct(ctx context.Context, order *model.Order, supplierID string) (bool, error) {
	if order == nil || supplierID == "" || len(order.Items) == 0 {
		return false, nil
	}

	ids := make([]string, len(order.Items))
	for i, item := range order.Items {
		ids[i] = item.ProductID
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to load order products")
		return false, fmt.Errorf("failed to load order products: %w", err)
	}

	for _, p := range products {
		if p.SupplierID == supplierID {
			return true, nil
		}
	}
	return false, nil
}

// UpdateStatus moves an order through its lifecycle, refusing any
// transition out of a terminal state.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (*model.Order, error) {
	if _, ok := model.ParseStatus(string(status)); !ok {
		return nil, model.NewValidationError(fmt.Sprintf("unknown order status %q", status))
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if !order.Status.CanTransition(status) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("from", string(order.Status)).
			Str("to", string(status)).
			Msg("rejected status transition")
		return nil, &model.InvalidTransitionError{From: order.Status, To: status}
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !updated {
		// The order reached a terminal state between the read and the
		// guarded update.
		return nil, &model.InvalidTransitionError{From: order.Status, To: status}
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Str("from", string(order.Status)).
		Str("to", string(status)).
		Msg("order status updated")

	order.Status = status
	order.UpdatedAt = time.Now()
	return order, nil
}

// GetByUser lists a customer's orders.
func (s *orderService) GetByUser(ctx context.Context, userID string, status *model.Status, page, limit int) (*model.OrderPage, error) {
	if userID == "" {
		return nil, model.NewValidationError("user id is required")
	}
	return s.list(ctx, model.OrderFilter{UserID: userID, Status: status}, page, limit)
}

// GetBySupplier lists orders containing at least one of the supplier's products.
func (s *orderService) GetBySupplier(ctx context.Context, supplierID string, status *model.Status, page, limit int) (*model.OrderPage, error) {
	if supplierID == "" {
		return nil, model.NewValidationError("supplier id is required")
	}
	return s.list(ctx, model.OrderFilter{SupplierID: supplierID, Status: status}, page, limit)
}

// GetAll lists every order.
func (s *orderService) GetAll(ctx context.Context, status *model.Status, page, limit int) (*model.OrderPage, error) {
	return s.list(ctx, model.OrderFilter{Status: status}, page, limit)
}

func (s *orderService) list(ctx context.Context, filter model.OrderFilter, page, limit int) (*model.OrderPage, error) {
	page, limit = clampPaging(page, limit)

	orders, total, err := s.orderRepo.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}

	return &model.OrderPage{
		Orders:     orders,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// validateOrderRequest validates the cart submission.
func (s *orderService) validateOrderRequest(userID string, req *model.OrderRequest) error {
	if userID == "" {
		return model.NewValidationError("user id is required")
	}

	if req == nil {
		return model.NewValidationError("order request is required")
	}

	if len(req.Items) == 0 {
		return model.NewValidationError("order must contain at least one item")
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return model.NewValidationError(fmt.Sprintf("item %d: product ID is required", i))
		}

		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
	}

	return req.ShippingAddress.Validate()
}
