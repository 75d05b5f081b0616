package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order states.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
)

// statusRank orders the fulfillment pipeline for transition checks.
var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusShipped:   2,
	StatusDelivered: 3,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Transitions are forward-only; re-writing the current status is allowed
// so a transaction hash can be attached after the fact.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// Product represents a catalog product priced in both currencies
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	CryptoPrice decimal.Decimal `json:"crypto_price" db:"crypto_price"`
	FiatPrice   decimal.Decimal `json:"fiat_price" db:"fiat_price"`
	Category    string          `json:"category" db:"category"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	Stock       int             `json:"stock" db:"stock"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// User represents a shopper account
type User struct {
	ID            int64     `json:"id" db:"id"`
	Username      string    `json:"username" db:"username"`
	Password      string    `json:"-" db:"password"`
	WalletAddress *string   `json:"wallet_address" db:"wallet_address"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// CartItem represents one cart row. Exactly one of UserID and SessionID
// identifies the owner.
type CartItem struct {
	ID        int64     `json:"id" db:"id"`
	UserID    *int64    `json:"user_id" db:"user_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	SessionID *string   `json:"session_id" db:"session_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CartItemWithProduct is a cart row joined to its product
type CartItemWithProduct struct {
	CartItem
	Product Product `json:"product"`
}

// CartTotals holds per-currency cart totals, formatted for display
type CartTotals struct {
	TotalCrypto string `json:"total_crypto"`
	TotalFiat   string `json:"total_fiat"`
}

// Order represents an order header
type Order struct {
	ID               int64           `json:"id" db:"id"`
	UserID           *int64          `json:"user_id" db:"user_id"`
	TotalCryptoPrice decimal.Decimal `json:"total_crypto_price" db:"total_crypto_price"`
	TotalFiatPrice   decimal.Decimal `json:"total_fiat_price" db:"total_fiat_price"`
	Status           OrderStatus     `json:"status" db:"status"`
	WalletAddress    string          `json:"wallet_address" db:"wallet_address"`
	TransactionHash  *string         `json:"transaction_hash" db:"transaction_hash"`
	ShippingAddress  string          `json:"shipping_address" db:"shipping_address"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// OrderItem is an immutable order line item with prices captured at order
// time, independent of later catalog price changes.
type OrderItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"order_id" db:"order_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	Quantity    int             `json:"quantity" db:"quantity"`
	CryptoPrice decimal.Decimal `json:"crypto_price" db:"crypto_price"`
	FiatPrice   decimal.Decimal `json:"fiat_price" db:"fiat_price"`
}

// OrderItemWithProduct is an order line item joined to its product
type OrderItemWithProduct struct {
	OrderItem
	Product Product `json:"product"`
}

// OrderWithItems is an order header with all its line items
type OrderWithItems struct {
	Order
	OrderItems []OrderItemWithProduct `json:"order_items"`
}

// NewProduct carries the fields needed to create a product
type NewProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CryptoPrice decimal.Decimal `json:"crypto_price"`
	FiatPrice   decimal.Decimal `json:"fiat_price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `json:"stock"`
}

// OrderDraft carries the caller-supplied order header for creation.
// Totals and addresses come from the caller and are not recomputed.
type OrderDraft struct {
	UserID           *int64          `json:"user_id"`
	TotalCryptoPrice decimal.Decimal `json:"total_crypto_price"`
	TotalFiatPrice   decimal.Decimal `json:"total_fiat_price"`
	Status           OrderStatus     `json:"status"`
	WalletAddress    string          `json:"wallet_address"`
	ShippingAddress  string          `json:"shipping_address"`
}

// OrderItemDraft carries one caller-supplied line item
type OrderItemDraft struct {
	ProductID   int64           `json:"product_id"`
	Quantity    int             `json:"quantity"`
	CryptoPrice decimal.Decimal `json:"crypto_price"`
	FiatPrice   decimal.Decimal `json:"fiat_price"`
}

// AddToCartRequest represents a request to add or merge a cart item
type AddToCartRequest struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UserID    *int64  `json:"user_id"`
	SessionID *string `json:"session_id"`
}

// UpdateCartItemRequest represents a quantity overwrite for one cart row
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CreateOrderRequest represents a request to place an order with its items
type CreateOrderRequest struct {
	Order      OrderDraft       `json:"order"`
	OrderItems []OrderItemDraft `json:"order_items"`
}

// UpdateOrderStatusRequest represents a status change, optionally attaching
// a transaction hash
type UpdateOrderStatusRequest struct {
	Status          OrderStatus `json:"status"`
	TransactionHash *string     `json:"transaction_hash"`
}

// RegisterUserRequest represents a registration request
type RegisterUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateWalletRequest represents a wallet address change
type UpdateWalletRequest struct {
	WalletAddress string `json:"wallet_address"`
}
