package service

import (
	"context"
	"errors"
	"testing"

	"agora/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter model.OrderFilter, limit, offset int) ([]model.Order, int, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

func testAddress() model.ShippingAddress {
	return model.ShippingAddress{
		Line1:      "12 Harbour Road",
		City:       "Wellington",
		PostalCode: "6011",
		Country:    "NZ",
	}
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	req := &model.OrderRequest{
		Items: []model.OrderItemRequest{
			{ProductID: "P001", Quantity: 2},
			{ProductID: "P002", Quantity: 1},
		},
		ShippingAddress: testAddress(),
	}

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	mockProductRepo.On("ValidateProductsExist", ctx, []string{"P001", "P002"}).Return(nil)
	mockOrderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockProductRepo.On("ReserveStock", ctx, mockTx, "P001", 2).
		Return(decimal.RequireFromString("10.50"), nil)
	mockProductRepo.On("ReserveStock", ctx, mockTx, "P002", 1).
		Return(decimal.RequireFromString("4.00"), nil)
	mockOrderRepo.On("CreateOrder", ctx, mockTx, mock.AnythingOfType("*model.Order")).Return(nil)
	mockOrderRepo.On("CreateOrderItems", ctx, mockTx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	order, err := service.CreateOrder(ctx, "u-1", req)

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, "u-1", order.UserID)
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, testAddress(), order.ShippingAddress)

	// Unit prices are snapshotted from the reservation step.
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.50")))
	assert.True(t, order.Items[1].UnitPrice.Equal(decimal.RequireFromString("4.00")))

	// 2 * 10.50 + 1 * 4.00
	assert.True(t, order.Total.Equal(decimal.RequireFromString("25.00")),
		"total was %s", order.Total)

	mockProductRepo.AssertExpectations(t)
	mockOrderRepo.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestOrderService_CreateOrder_InsufficientStock(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	req := &model.OrderRequest{
		Items: []model.OrderItemRequest{
			{ProductID: "P001", Quantity: 1},
			{ProductID: "P002", Quantity: 5},
		},
		ShippingAddress: testAddress(),
	}

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	// The first line reserves, the second fails; the transaction rolls
	// back so the first decrement never survives.
	mockProductRepo.On("ValidateProductsExist", ctx, []string{"P001", "P002"}).Return(nil)
	mockOrderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockProductRepo.On("ReserveStock", ctx, mockTx, "P001", 1).
		Return(decimal.RequireFromString("10.00"), nil)
	mockProductRepo.On("ReserveStock", ctx, mockTx, "P002", 5).
		Return(decimal.Decimal{}, &model.InsufficientStockError{ProductID: "P002"})
	mockTx.On("Rollback", ctx).Return(nil)

	order, err := service.CreateOrder(ctx, "u-1", req)

	require.Error(t, err)
	assert.Nil(t, order)

	var stockErr *model.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "P002", stockErr.ProductID)

	mockOrderRepo.AssertNotCalled(t, "CreateOrder")
	mockOrderRepo.AssertNotCalled(t, "CreateOrderItems")
	mockTx.AssertNotCalled(t, "Commit")
	mockProductRepo.AssertExpectations(t)
	mockOrderRepo.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestOrderService_CreateOrder_ProductNotFound(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	req := &model.OrderRequest{
		Items: []model.OrderItemRequest{
			{ProductID: "P999", Quantity: 1},
		},
		ShippingAddress: testAddress(),
	}

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	mockProductRepo.On("ValidateProductsExist", ctx, []string{"P999"}).Return(model.ErrProductNotFound)

	order, err := service.CreateOrder(ctx, "u-1", req)

	require.Error(t, err)
	assert.Equal(t, model.ErrProductNotFound, err)
	assert.Nil(t, order)

	mockProductRepo.AssertExpectations(t)
	mockOrderRepo.AssertNotCalled(t, "BeginTx")
}

func TestOrderService_CreateOrder_ValidationErrors(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	validItems := []model.OrderItemRequest{{ProductID: "P001", Quantity: 1}}

	tests := []struct {
		name   string
		userID string
		req    *model.OrderRequest
	}{
		{
			name:   "Empty user ID",
			userID: "",
			req:    &model.OrderRequest{Items: validItems, ShippingAddress: testAddress()},
		},
		{
			name:   "Nil request",
			userID: "u-1",
			req:    nil,
		},
		{
			name:   "Empty items",
			userID: "u-1",
			req:    &model.OrderRequest{Items: []model.OrderItemRequest{}, ShippingAddress: testAddress()},
		},
		{
			name:   "Empty product ID",
			userID: "u-1",
			req: &model.OrderRequest{
				Items:           []model.OrderItemRequest{{ProductID: "", Quantity: 1}},
				ShippingAddress: testAddress(),
			},
		},
		{
			name:   "Zero quantity",
			userID: "u-1",
			req: &model.OrderRequest{
				Items:           []model.OrderItemRequest{{ProductID: "P001", Quantity: 0}},
				ShippingAddress: testAddress(),
			},
		},
		{
			name:   "Negative quantity",
			userID: "u-1",
			req: &model.OrderRequest{
				Items:           []model.OrderItemRequest{{ProductID: "P001", Quantity: -5}},
				ShippingAddress: testAddress(),
			},
		},
		{
			name:   "Missing shipping address",
			userID: "u-1",
			req:    &model.OrderRequest{Items: validItems},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := service.CreateOrder(ctx, tt.userID, tt.req)

			require.Error(t, err)
			assert.Nil(t, order)

			var domainErr *model.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, model.ErrCodeValidation, domainErr.Code)
		})
	}

	// No validation failure ever reaches the database.
	mockProductRepo.AssertNotCalled(t, "ValidateProductsExist")
	mockOrderRepo.AssertNotCalled(t, "BeginTx")
}

func TestOrderService_CreateOrder_TransactionRollbackOnPersistFailure(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	req := &model.OrderRequest{
		Items:           []model.OrderItemRequest{{ProductID: "P001", Quantity: 1}},
		ShippingAddress: testAddress(),
	}

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)
	mockTx := new(MockTx)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	mockProductRepo.On("ValidateProductsExist", ctx, []string{"P001"}).Return(nil)
	mockOrderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	mockProductRepo.On("ReserveStock", ctx, mockTx, "P001", 1).
		Return(decimal.RequireFromString("10.00"), nil)
	mockOrderRepo.On("CreateOrder", ctx, mockTx, mock.AnythingOfType("*model.Order")).
		Return(errors.New("database error"))
	mockTx.On("Rollback", ctx).Return(nil)

	order, err := service.CreateOrder(ctx, "u-1", req)

	require.Error(t, err)
	assert.Nil(t, order)

	mockProductRepo.AssertExpectations(t)
	mockOrderRepo.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	orderID := uuid.New()

	tests := []struct {
		name          string
		current       model.Status
		target        model.Status
		expectUpdate  bool
		expectedError bool
	}{
		{"pending to confirmed", model.StatusPending, model.StatusConfirmed, true, false},
		{"pending to shipped skips confirmed", model.StatusPending, model.StatusShipped, true, false},
		{"pending to delivered skips everything", model.StatusPending, model.StatusDelivered, true, false},
		{"shipped to cancelled", model.StatusShipped, model.StatusCancelled, true, false},
		{"delivered is terminal", model.StatusDelivered, model.StatusPending, false, true},
		{"cancelled is terminal", model.StatusCancelled, model.StatusConfirmed, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOrderRepo := new(MockOrderRepository)
			mockProductRepo := new(MockProductRepository)

			service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

			existing := &model.Order{ID: orderID, UserID: "u-1", Status: tt.current}
			mockOrderRepo.On("GetByID", ctx, orderID).Return(existing, nil)
			if tt.expectUpdate {
				mockOrderRepo.On("UpdateStatus", ctx, orderID, tt.target).Return(true, nil)
			}

			order, err := service.UpdateStatus(ctx, orderID, tt.target)

			if tt.expectedError {
				require.Error(t, err)
				var transitionErr *model.InvalidTransitionError
				require.ErrorAs(t, err, &transitionErr)
				assert.Equal(t, tt.current, transitionErr.From)
				assert.Equal(t, tt.target, transitionErr.To)
				assert.Nil(t, order)
				mockOrderRepo.AssertNotCalled(t, "UpdateStatus")
			} else {
				require.NoError(t, err)
				require.NotNil(t, order)
				assert.Equal(t, tt.target, order.Status)
			}

			mockOrderRepo.AssertExpectations(t)
		})
	}
}

func TestOrderService_UpdateStatus_UnknownOrder(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	orderID := uuid.New()

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	mockOrderRepo.On("GetByID", ctx, orderID).Return(nil, nil)

	order, err := service.UpdateStatus(ctx, orderID, model.StatusConfirmed)

	require.Error(t, err)
	assert.Equal(t, model.ErrOrderNotFound, err)
	assert.Nil(t, order)
}

func TestOrderService_UpdateStatus_UnknownStatus(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	order, err := service.UpdateStatus(ctx, uuid.New(), model.Status("refunded"))

	require.Error(t, err)
	assert.Nil(t, order)

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeValidation, domainErr.Code)

	mockOrderRepo.AssertNotCalled(t, "GetByID")
}

func TestOrderService_UpdateStatus_LostRace(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	orderID := uuid.New()

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	// The order reads as pending but reaches a terminal state before the
	// guarded update lands.
	existing := &model.Order{ID: orderID, UserID: "u-1", Status: model.StatusPending}
	mockOrderRepo.On("GetByID", ctx, orderID).Return(existing, nil)
	mockOrderRepo.On("UpdateStatus", ctx, orderID, model.StatusConfirmed).Return(false, nil)

	order, err := service.UpdateStatus(ctx, orderID, model.StatusConfirmed)

	require.Error(t, err)
	assert.Nil(t, order)

	var transitionErr *model.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)

	mockOrderRepo.AssertExpectations(t)
}

func TestOrderService_GetByID(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	orderID := uuid.New()
	existing := &model.Order{ID: orderID, UserID: "u-1", Status: model.StatusPending}

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	mockOrderRepo.On("GetByID", ctx, orderID).Return(existing, nil)

	order, err := service.GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, existing, order)

	missing := uuid.New()
	mockOrderRepo.On("GetByID", ctx, missing).Return(nil, nil)

	order, err = service.GetByID(ctx, missing)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestOrderService_ContainsSupplierProduct(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	order := &model.Order{
		ID: uuid.New(),
		Items: []model.OrderItem{
			{ProductID: "P001", Quantity: 1},
			{ProductID: "P003", Quantity: 2},
		},
	}
	products := []model.Product{
		{ID: "P001", SupplierID: "sup-1"},
		{ID: "P003", SupplierID: "sup-2"},
	}

	t.Run("supplier owns a line", func(t *testing.T) {
		mockOrderRepo := new(MockOrderRepository)
		mockProductRepo := new(MockProductRepository)
		service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

		mockProductRepo.On("GetByIDs", ctx, []string{"P001", "P003"}).Return(products, nil)

		ok, err := service.ContainsSupplierProduct(ctx, order, "sup-2")
		require.NoError(t, err)
		assert.True(t, ok)

		mockProductRepo.AssertExpectations(t)
	})

	t.Run("supplier owns no line", func(t *testing.T) {
		mockOrderRepo := new(MockOrderRepository)
		mockProductRepo := new(MockProductRepository)
		service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

		mockProductRepo.On("GetByIDs", ctx, []string{"P001", "P003"}).Return(products, nil)

		ok, err := service.ContainsSupplierProduct(ctx, order, "sup-3")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nil order and empty supplier short-circuit", func(t *testing.T) {
		mockOrderRepo := new(MockOrderRepository)
		mockProductRepo := new(MockProductRepository)
		service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

		ok, err := service.ContainsSupplierProduct(ctx, nil, "sup-1")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = service.ContainsSupplierProduct(ctx, order, "")
		require.NoError(t, err)
		assert.False(t, ok)

		mockProductRepo.AssertNotCalled(t, "GetByIDs")
	})
}

func TestOrderService_Listing_PaginationClamping(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	// Requested page 0 with limit 500 must reach the repository as page 1
	// with limit 100.
	mockOrderRepo.On("List", ctx, model.OrderFilter{UserID: "u-1"}, 100, 0).
		Return([]model.Order{}, 250, nil)

	page, err := service.GetByUser(ctx, "u-1", nil, 0, 500)

	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.Limit)
	assert.Equal(t, 250, page.Total)
	assert.Equal(t, 3, page.TotalPages)

	mockOrderRepo.AssertExpectations(t)
}

func TestOrderService_Listing_Scopes(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	confirmed := model.StatusConfirmed

	tests := []struct {
		name     string
		call     func(s OrderService) (*model.OrderPage, error)
		expected model.OrderFilter
	}{
		{
			name: "by user with status",
			call: func(s OrderService) (*model.OrderPage, error) {
				return s.GetByUser(ctx, "u-1", &confirmed, 2, 10)
			},
			expected: model.OrderFilter{UserID: "u-1", Status: &confirmed},
		},
		{
			name: "by supplier",
			call: func(s OrderService) (*model.OrderPage, error) {
				return s.GetBySupplier(ctx, "sup-1", nil, 2, 10)
			},
			expected: model.OrderFilter{SupplierID: "sup-1"},
		},
		{
			name: "all",
			call: func(s OrderService) (*model.OrderPage, error) {
				return s.GetAll(ctx, nil, 2, 10)
			},
			expected: model.OrderFilter{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOrderRepo := new(MockOrderRepository)
			mockProductRepo := new(MockProductRepository)

			service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

			orders := []model.Order{{ID: uuid.New(), Status: model.StatusConfirmed}}
			mockOrderRepo.On("List", ctx, tt.expected, 10, 10).Return(orders, 11, nil)

			page, err := tt.call(service)

			require.NoError(t, err)
			require.NotNil(t, page)
			assert.Equal(t, 2, page.Page)
			assert.Equal(t, 10, page.Limit)
			assert.Equal(t, 11, page.Total)
			assert.Equal(t, 2, page.TotalPages)
			assert.Len(t, page.Orders, 1)

			mockOrderRepo.AssertExpectations(t)
		})
	}
}

func TestOrderService_Listing_EmptyScopeID(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockOrderRepo := new(MockOrderRepository)
	mockProductRepo := new(MockProductRepository)

	service := NewOrderService(mockOrderRepo, mockProductRepo, logger)

	_, err := service.GetByUser(ctx, "", nil, 1, 10)
	require.Error(t, err)

	_, err = service.GetBySupplier(ctx, "", nil, 1, 10)
	require.Error(t, err)

	mockOrderRepo.AssertNotCalled(t, "List")
}
