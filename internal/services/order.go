package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/cryptomart/storefront/internal/db"
	"github.com/cryptomart/storefront/internal/metrics"
	"github.com/cryptomart/storefront/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const orderColumns = "id, user_id, total_crypto_price, total_fiat_price, status, wallet_address, transaction_hash, shipping_address, created_at"

// OrderService handles order placement and status tracking
type OrderService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewOrderService creates a new order service
func NewOrderService(db *db.DB, metrics *metrics.AppMetrics) *OrderService {
	return &OrderService{
		db:      db,
		metrics: metrics,
	}
}

func scanOrder(row interface{ Scan(...any) error }) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.TotalCryptoPrice, &o.TotalFiatPrice,
		&o.Status, &o.WalletAddress, &o.TransactionHash, &o.ShippingAddress, &o.CreatedAt)
	return o, err
}

// Create persists an order header together with all its line items in one
// transaction: either everything lands or nothing does. Totals, prices and
// addresses come from the caller; line item prices are the snapshot that
// later catalog changes cannot touch.
func (s *OrderService) Create(ctx context.Context, draft models.OrderDraft, items []models.OrderItemDraft) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	status := draft.Status
	if status == "" {
		status = models.StatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	start := time.Now()
	orderQuery := "INSERT INTO orders (user_id, total_crypto_price, total_fiat_price, status, wallet_address, shipping_address) VALUES (?, ?, ?, ?, ?, ?)"
	result, err := tx.ExecContext(ctx, orderQuery,
		draft.UserID, draft.TotalCryptoPrice, draft.TotalFiatPrice, status, draft.WalletAddress, draft.ShippingAddress)
	s.metrics.RecordDBQuery(ctx, "INSERT", "orders", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get order ID: %w", err)
	}

	itemQuery := "INSERT INTO order_items (order_id, product_id, quantity, crypto_price, fiat_price) VALUES (?, ?, ?, ?, ?)"
	for _, item := range items {
		start = time.Now()
		_, err = tx.ExecContext(ctx, itemQuery, orderID, item.ProductID, item.Quantity, item.CryptoPrice, item.FiatPrice)
		s.metrics.RecordDBQuery(ctx, "INSERT", "order_items", start, err == nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	order := &models.Order{
		ID:               orderID,
		UserID:           draft.UserID,
		TotalCryptoPrice: draft.TotalCryptoPrice,
		TotalFiatPrice:   draft.TotalFiatPrice,
		Status:           status,
		WalletAddress:    draft.WalletAddress,
		ShippingAddress:  draft.ShippingAddress,
		CreatedAt:        time.Now(),
	}

	orderAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("order_status", string(status)),
	})
	s.metrics.OrdersCreated.Add(ctx, 1, metric.WithAttributes(orderAttrs...))
	s.metrics.RevenueCrypto.Add(ctx, draft.TotalCryptoPrice.InexactFloat64(), metric.WithAttributes(orderAttrs...))
	s.metrics.RevenueFiat.Add(ctx, draft.TotalFiatPrice.InexactFloat64(), metric.WithAttributes(orderAttrs...))

	log.Printf("[ORDER] Order created: order_id=%d, items=%d, status=%s", orderID, len(items), status)

	return order, nil
}

// GetWithItems returns an order header with all line items joined to their
// products
func (s *OrderService) GetWithItems(ctx context.Context, id int64) (*models.OrderWithItems, error) {
	start := time.Now()
	query := "SELECT " + orderColumns + " FROM orders WHERE id = ?"
	order, err := scanOrder(s.db.QueryRowContext(ctx, query, id))
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	start = time.Now()
	itemQuery := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.crypto_price, oi.fiat_price,
		       p.id, p.name, p.description, p.crypto_price, p.fiat_price, p.category, p.image_url, p.stock, p.is_active, p.created_at
		FROM order_items oi
		INNER JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?`
	rows, err := s.db.QueryContext(ctx, itemQuery, id)
	s.metrics.RecordDBQuery(ctx, "SELECT", "order_items", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItemWithProduct{}
	for rows.Next() {
		var item models.OrderItemWithProduct
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.CryptoPrice, &item.FiatPrice,
			&item.Product.ID, &item.Product.Name, &item.Product.Description, &item.Product.CryptoPrice,
			&item.Product.FiatPrice, &item.Product.Category, &item.Product.ImageURL, &item.Product.Stock,
			&item.Product.IsActive, &item.Product.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return &models.OrderWithItems{Order: order, OrderItems: items}, nil
}

// ListByUser returns a user's orders, newest first
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	start := time.Now()
	query := "SELECT " + orderColumns + " FROM orders WHERE user_id = ? ORDER BY created_at DESC"
	rows, err := s.db.QueryContext(ctx, query, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// UpdateStatus moves an order forward through the fulfillment pipeline.
// A transaction hash is only written when one is supplied; an existing hash
// is left untouched otherwise.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus, transactionHash *string) (*models.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	start := time.Now()
	var current models.OrderStatus
	statusQuery := "SELECT status FROM orders WHERE id = ?"
	err := s.db.QueryRowContext(ctx, statusQuery, id).Scan(&current)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order status: %w", err)
	}

	if !current.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	start = time.Now()
	query := "UPDATE orders SET status = ?, transaction_hash = COALESCE(?, transaction_hash) WHERE id = ?"
	_, err = s.db.ExecContext(ctx, query, status, transactionHash, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	start = time.Now()
	selectQuery := "SELECT " + orderColumns + " FROM orders WHERE id = ?"
	order, err := scanOrder(s.db.QueryRowContext(ctx, selectQuery, id))
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	log.Printf("[ORDER] Status updated: order_id=%d, status=%s", id, status)

	return &order, nil
}
