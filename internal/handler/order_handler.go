package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"agora/internal/auth"
	"agora/internal/middleware"
	"agora/internal/model"
	"agora/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests. The buyer is taken from the
// session claims, never from the request body.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", h.logger)
		return
	}

	var req model.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), claims.UserID, &req)
	if err != nil {
		middleware.RecordOrderOperation("create", false)
		writeServiceError(w, err, h.logger)
		return
	}

	middleware.RecordOrderOperation("create", true)
	writeJSON(w, http.StatusCreated, order)
}

// GetByID handles GET /api/orders/{id} requests. An order is visible to
// its owner, to suppliers with a product among its lines and to admins.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", h.logger)
		return
	}

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if order == nil {
		writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, "order not found", h.logger)
		return
	}

	allowed := claims.Role == auth.RoleAdmin || order.UserID == claims.UserID
	if !allowed && claims.Role == auth.RoleSupplier {
		allowed, err = h.service.ContainsSupplierProduct(r.Context(), order, claims.UserID)
		if err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
	}
	if !allowed {
		writeError(w, http.StatusForbidden, model.ErrCodeForbidden, "not your order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	status, ok := model.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "unknown order status", h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, status)
	if err != nil {
		middleware.RecordOrderOperation("update_status", false)
		writeServiceError(w, err, h.logger)
		return
	}

	middleware.RecordOrderOperation("update_status", true)
	writeJSON(w, http.StatusOK, order)
}

// List handles GET /api/orders requests. The listing scope follows the
// caller's role: customers see their own orders, suppliers see orders
// containing their products and admins see everything.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", h.logger)
		return
	}

	page, limit, ok := parsePaging(w, r, h.logger)
	if !ok {
		return
	}

	var status *model.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := model.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "unknown order status", h.logger)
			return
		}
		status = &parsed
	}

	var (
		result *model.OrderPage
		err    error
	)
	switch claims.Role {
	case auth.RoleAdmin:
		result, err = h.service.GetAll(r.Context(), status, page, limit)
	case auth.RoleSupplier:
		result, err = h.service.GetBySupplier(r.Context(), claims.UserID, status, page, limit)
	default:
		result, err = h.service.GetByUser(r.Context(), claims.UserID, status, page, limit)
	}
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// parsePaging reads page and limit query parameters. Out-of-range values
// are clamped downstream; non-numeric values are rejected here.
func parsePaging(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (page, limit int, ok bool) {
	if raw := r.URL.Query().Get("page"); raw != "" {
		var err error
		page, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid page parameter", logger)
			return 0, 0, false
		}
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid limit parameter", logger)
			return 0, 0, false
		}
	}

	return page, limit, true
}
