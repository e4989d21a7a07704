package router

import (
	"net/http"

	"agora/internal/auth"
	"agora/internal/handler"
	"agora/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// New creates the HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	tokens *auth.Manager,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Liveness and metrics sit outside authentication.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	supplierOrAdmin := middleware.RequireRole(logger, auth.RoleSupplier, auth.RoleAdmin)

	// Catalogue: reads are public, writes belong to suppliers and admins.
	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("GET /api/products/{id}", productHandler.GetByID)
	mux.Handle("POST /api/products", supplierOrAdmin(productHandler.Create))
	mux.Handle("PUT /api/products/{id}", supplierOrAdmin(productHandler.Update))

	// Orders: any authenticated account may buy; fulfilment status moves
	// only through suppliers and admins.
	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders", orderHandler.List)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.GetByID)
	mux.Handle("PATCH /api/orders/{id}/status", supplierOrAdmin(orderHandler.UpdateStatus))

	// Apply middleware in order: Recovery -> Logging -> Metrics -> CORS -> JWTAuth
	var h http.Handler = mux
	h = middleware.JWTAuth(tokens, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Metrics(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
