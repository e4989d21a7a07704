package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agora/internal/model"
	"agora/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List retrieves products with pagination.
func (s *productService) List(ctx context.Context, page, limit int) (*model.ProductPage, error) {
	page, limit = clampPaging(page, limit)

	products, total, err := s.productRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error().Err(err).
			Int("page", page).
			Int("limit", limit).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []model.Product{}
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("page", page).
		Int("limit", limit).
		Msg("retrieved products")

	return &model.ProductPage{
		Products:   products,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		s.logger.Warn().Msg("product ID is empty")
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// Create adds a new listing owned by the given supplier.
func (s *productService) Create(ctx context.Context, supplierID string, req *model.ProductRequest) (*model.Product, error) {
	if supplierID == "" {
		return nil, model.NewValidationError("supplier id is required")
	}
	if err := validateProductRequest(req); err != nil {
		return nil, err
	}
	if req.OnHand < 0 {
		return nil, model.NewValidationError("onHand must not be negative")
	}

	now := time.Now()
	product := &model.Product{
		ID:          uuid.NewString(),
		SupplierID:  supplierID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		OnHand:      req.OnHand,
		ImageURL:    req.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("supplier_id", supplierID).Msg("failed to create product")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().
		Str("product_id", product.ID).
		Str("supplier_id", supplierID).
		Msg("product created")

	return product, nil
}

// Update modifies a listing. Stock is never changed here; it moves only
// through order reservation.
func (s *productService) Update(ctx context.Context, supplierID string, asAdmin bool, id string, req *model.ProductRequest) (*model.Product, error) {
	if err := validateProductRequest(req); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	if !asAdmin && product.SupplierID != supplierID {
		s.logger.Warn().
			Str("product_id", id).
			Str("owner", product.SupplierID).
			Str("caller", supplierID).
			Msg("supplier attempted to update another supplier's product")
		return nil, model.ErrForbidden
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Category = req.Category
	product.Price = req.Price
	product.ImageURL = req.ImageURL
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to update product")
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info().Str("product_id", id).Msg("product updated")
	return product, nil
}

func validateProductRequest(req *model.ProductRequest) error {
	if req == nil {
		return model.NewValidationError("product request is required")
	}
	if req.Name == "" {
		return model.NewValidationError("name is required")
	}
	if req.Category == "" {
		return model.NewValidationError("category is required")
	}
	if req.Price.IsNegative() {
		return model.NewValidationError("price must not be negative")
	}
	return nil
}
