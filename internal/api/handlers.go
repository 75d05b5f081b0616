package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/cryptomart/storefront/internal/db"
	"github.com/cryptomart/storefront/internal/identity"
	"github.com/cryptomart/storefront/internal/metrics"
	"github.com/cryptomart/storefront/internal/middleware"
	"github.com/cryptomart/storefront/internal/models"
	"github.com/cryptomart/storefront/internal/services"
	"github.com/cryptomart/storefront/pkg/config"
	"github.com/gorilla/mux"
)

// App holds application dependencies
type App struct {
	config         *config.Config
	db             *db.DB
	metrics        *metrics.AppMetrics
	catalogService *services.CatalogService
	cartService    *services.CartService
	orderService   *services.OrderService
	userService    *services.UserService
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	database *db.DB,
	m *metrics.AppMetrics,
	cs *services.CatalogService,
	carts *services.CartService,
	os *services.OrderService,
	us *services.UserService,
) *App {
	return &App{
		config:         cfg,
		db:             database,
		metrics:        m,
		catalogService: cs,
		cartService:    carts,
		orderService:   os,
		userService:    us,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	api := r.PathPrefix("/api").Subrouter()

	// Products
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")

	// Cart
	api.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	api.HandleFunc("/cart/totals", a.GetCartTotalsHandler).Methods("GET")
	api.HandleFunc("/cart", a.AddToCartHandler).Methods("POST")
	api.HandleFunc("/cart", a.ClearCartHandler).Methods("DELETE")
	api.HandleFunc("/cart/{id}", a.UpdateCartItemHandler).Methods("PUT")
	api.HandleFunc("/cart/{id}", a.RemoveCartItemHandler).Methods("DELETE")

	// Orders
	api.HandleFunc("/orders", a.CreateOrderHandler).Methods("POST")
	api.HandleFunc("/orders", a.ListOrdersHandler).Methods("GET")
	api.HandleFunc("/orders/{id}", a.GetOrderHandler).Methods("GET")
	api.HandleFunc("/orders/{id}/status", a.UpdateOrderStatusHandler).Methods("PUT")

	// Users
	api.HandleFunc("/users", a.RegisterUserHandler).Methods("POST")
	api.HandleFunc("/users/{id}", a.GetUserHandler).Methods("GET")
	api.HandleFunc("/users/{id}/wallet", a.UpdateWalletHandler).Methods("PUT")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondServiceError maps service errors onto the fault taxonomy. Store
// failures become a generic 500 with the detail kept in the server log.
func respondServiceError(w http.ResponseWriter, err error, logContext string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondMessage(w, http.StatusNotFound, logContext+" not found")
	case errors.Is(err, services.ErrNoIdentity),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidStock),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrEmptyOrder):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrUsernameTaken):
		respondMessage(w, http.StatusConflict, err.Error())
	default:
		log.Printf("Error handling %s: %v", logContext, err)
		respondMessage(w, http.StatusInternalServerError, "Failed to process "+logContext)
	}
}

// identityFromQuery resolves the scoping key from the userId/sessionId
// query parameters
func identityFromQuery(r *http.Request) identity.Key {
	var userID *int64
	if uid := r.URL.Query().Get("userId"); uid != "" {
		if parsed, err := strconv.ParseInt(uid, 10, 64); err == nil {
			userID = &parsed
		}
	}
	var sessionID *string
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		sessionID = &sid
	}
	return identity.Resolve(userID, sessionID)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListProductsHandler handles GET /api/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	var products []models.Product
	var err error

	if category := r.URL.Query().Get("category"); category != "" {
		products, err = a.catalogService.ListActiveByCategory(r.Context(), category)
	} else {
		products, err = a.catalogService.ListActive(r.Context())
	}
	if err != nil {
		respondServiceError(w, err, "products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	respondJSON(w, http.StatusOK, products)
}

// GetProductHandler handles GET /api/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := a.catalogService.GetActive(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "product")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// GetCartHandler handles GET /api/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	items, err := a.cartService.List(r.Context(), identityFromQuery(r))
	if err != nil {
		respondServiceError(w, err, "cart")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// GetCartTotalsHandler handles GET /api/cart/totals
func (a *App) GetCartTotalsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := a.cartService.List(r.Context(), identityFromQuery(r))
	if err != nil {
		respondServiceError(w, err, "cart")
		return
	}

	respondJSON(w, http.StatusOK, services.ComputeTotals(items))
}

// AddToCartHandler handles POST /api/cart
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProductID == 0 {
		respondMessage(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	key := identity.Resolve(req.UserID, req.SessionID)
	item, err := a.cartService.Add(r.Context(), key, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(w, err, "cart item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// UpdateCartItemHandler handles PUT /api/cart/{id}
func (a *App) UpdateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid cart item ID")
		return
	}

	var req models.UpdateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		respondMessage(w, http.StatusBadRequest, "Invalid quantity")
		return
	}

	item, err := a.cartService.SetQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		respondServiceError(w, err, "cart item")
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// RemoveCartItemHandler handles DELETE /api/cart/{id}
func (a *App) RemoveCartItemHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid cart item ID")
		return
	}

	if err := a.cartService.Remove(r.Context(), id); err != nil {
		respondServiceError(w, err, "cart item")
		return
	}

	respondMessage(w, http.StatusOK, "Item removed from cart")
}

// ClearCartHandler handles DELETE /api/cart
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.cartService.Clear(r.Context(), identityFromQuery(r)); err != nil {
		respondServiceError(w, err, "cart")
		return
	}

	respondMessage(w, http.StatusOK, "Cart cleared")
}

// CreateOrderHandler handles POST /api/orders
func (a *App) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Order.WalletAddress == "" || req.Order.ShippingAddress == "" {
		respondMessage(w, http.StatusBadRequest, "wallet_address and shipping_address are required")
		return
	}

	order, err := a.orderService.Create(r.Context(), req.Order, req.OrderItems)
	if err != nil {
		respondServiceError(w, err, "order")
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// GetOrderHandler handles GET /api/orders/{id}
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := a.orderService.GetWithItems(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "order")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// ListOrdersHandler handles GET /api/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "userId is required")
		return
	}

	orders, err := a.orderService.ListByUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, "orders")
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	respondJSON(w, http.StatusOK, orders)
}

// UpdateOrderStatusHandler handles PUT /api/orders/{id}/status
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := a.orderService.UpdateStatus(r.Context(), id, req.Status, req.TransactionHash)
	if err != nil {
		respondServiceError(w, err, "order status")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// RegisterUserHandler handles POST /api/users
func (a *App) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := a.userService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, err, "user")
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// GetUserHandler handles GET /api/users/{id}
func (a *App) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := a.userService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateWalletHandler handles PUT /api/users/{id}/wallet
func (a *App) UpdateWalletHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req models.UpdateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.WalletAddress == "" {
		respondMessage(w, http.StatusBadRequest, "wallet_address is required")
		return
	}

	user, err := a.userService.UpdateWallet(r.Context(), id, req.WalletAddress)
	if err != nil {
		respondServiceError(w, err, "user wallet")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
