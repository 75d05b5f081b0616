package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cryptomart/storefront/internal/db"
	"github.com/cryptomart/storefront/internal/identity"
	"github.com/cryptomart/storefront/internal/metrics"
	"github.com/cryptomart/storefront/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const cartItemColumns = "id, user_id, product_id, quantity, session_id, created_at"

// CartService handles cart operations, scoped per identity key
type CartService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCartService creates a new cart service
func NewCartService(db *db.DB, metrics *metrics.AppMetrics) *CartService {
	cs := &CartService{
		db:      db,
		metrics: metrics,
	}
	go cs.monitorActiveCarts()
	return cs
}

// monitorActiveCarts periodically updates the active carts gauge. An active
// cart is a distinct owner key with at least one item.
func (s *CartService) monitorActiveCarts() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		query := "SELECT COUNT(DISTINCT COALESCE(CAST(user_id AS CHAR), session_id)) FROM cart_items"
		start := time.Now()
		var count int
		err := s.db.QueryRowContext(ctx, query).Scan(&count)
		s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", start, err == nil)
		if err == nil {
			s.metrics.ActiveCartsCount.Record(ctx, int64(count), metric.WithAttributes(s.metrics.WithServiceName(nil)...))
		}
	}
}

// ownerPredicate returns the WHERE fragment and argument for the scoping key.
// The bool is false for KindNone.
func ownerPredicate(key identity.Key) (string, any, bool) {
	if uid, ok := key.UserID(); ok {
		return "user_id = ?", uid, true
	}
	if sid, ok := key.SessionID(); ok {
		return "session_id = ?", sid, true
	}
	return "", nil, false
}

// List returns the cart rows for an identity, each joined to its product.
// Rows whose product was deleted or deactivated are silently dropped.
// Without a scoping key the cart is empty by definition.
func (s *CartService) List(ctx context.Context, key identity.Key) ([]models.CartItemWithProduct, error) {
	predicate, arg, ok := ownerPredicate(key)
	if !ok {
		return []models.CartItemWithProduct{}, nil
	}

	start := time.Now()
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.session_id, ci.created_at,
		       p.id, p.name, p.description, p.crypto_price, p.fiat_price, p.category, p.image_url, p.stock, p.is_active, p.created_at
		FROM cart_items ci
		INNER JOIN products p ON ci.product_id = p.id
		WHERE p.is_active = TRUE AND ci.` + predicate
	rows, err := s.db.QueryContext(ctx, query, arg)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItemWithProduct{}
	for rows.Next() {
		var item models.CartItemWithProduct
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.SessionID, &item.CreatedAt,
			&item.Product.ID, &item.Product.Name, &item.Product.Description, &item.Product.CryptoPrice,
			&item.Product.FiatPrice, &item.Product.Category, &item.Product.ImageURL, &item.Product.Stock,
			&item.Product.IsActive, &item.Product.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	s.recordCartSize(ctx, key, len(items))

	return items, rows.Err()
}

// Add merges a product into the identity's cart. An existing row for the
// same (owner, product) pair has its quantity incremented instead of a
// second row being created. The merge is a single upsert so two concurrent
// adds both land.
func (s *CartService) Add(ctx context.Context, key identity.Key, productID int64, quantity int) (*models.CartItem, error) {
	if key.IsNone() {
		return nil, ErrNoIdentity
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	// The product must exist and be active
	start := time.Now()
	var exists bool
	checkQuery := "SELECT EXISTS(SELECT 1 FROM products WHERE id = ? AND is_active = TRUE)"
	err := s.db.QueryRowContext(ctx, checkQuery, productID).Scan(&exists)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to verify product: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	userID, sessionID := key.Columns()

	// The LAST_INSERT_ID(id) trick makes LastInsertId return the row id on
	// the duplicate-key path too.
	start = time.Now()
	upsertQuery := `
		INSERT INTO cart_items (user_id, product_id, quantity, session_id)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), id = LAST_INSERT_ID(id)`
	result, err := s.db.ExecContext(ctx, upsertQuery, userID, productID, quantity, sessionID)
	s.metrics.RecordDBQuery(ctx, "INSERT", "cart_items", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to add item to cart: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item ID: %w", err)
	}

	item, err := s.getItem(ctx, id)
	if err != nil {
		return nil, err
	}

	s.updateCartItemsCount(ctx, key)

	return item, nil
}

// SetQuantity overwrites the quantity on a single cart row
func (s *CartService) SetQuantity(ctx context.Context, id int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	start := time.Now()
	query := "UPDATE cart_items SET quantity = ? WHERE id = ?"
	_, err := s.db.ExecContext(ctx, query, quantity, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_items", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return s.getItem(ctx, id)
}

// Remove deletes a single cart row. Removing a row that does not exist is
// silently a no-op.
func (s *CartService) Remove(ctx context.Context, id int64) error {
	start := time.Now()
	query := "DELETE FROM cart_items WHERE id = ?"
	_, err := s.db.ExecContext(ctx, query, id)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to remove item from cart: %w", err)
	}
	return nil
}

// Clear deletes every cart row for the identity. No-op without a scoping key.
func (s *CartService) Clear(ctx context.Context, key identity.Key) error {
	predicate, arg, ok := ownerPredicate(key)
	if !ok {
		return nil
	}

	start := time.Now()
	query := "DELETE FROM cart_items WHERE " + predicate
	_, err := s.db.ExecContext(ctx, query, arg)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	s.recordCartSize(ctx, key, 0)

	return nil
}

func (s *CartService) getItem(ctx context.Context, id int64) (*models.CartItem, error) {
	start := time.Now()
	query := "SELECT " + cartItemColumns + " FROM cart_items WHERE id = ?"
	var item models.CartItem
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.SessionID, &item.CreatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	return &item, nil
}

// updateCartItemsCount refreshes the cart size gauge for one identity
func (s *CartService) updateCartItemsCount(ctx context.Context, key identity.Key) {
	predicate, arg, ok := ownerPredicate(key)
	if !ok {
		return
	}

	start := time.Now()
	query := "SELECT COUNT(*) FROM cart_items WHERE " + predicate
	var count int
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&count)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", start, err == nil)
	if err == nil {
		s.recordCartSize(ctx, key, count)
	}
}

func (s *CartService) recordCartSize(ctx context.Context, key identity.Key, count int) {
	attrs := []attribute.KeyValue{}
	if uid, ok := key.UserID(); ok {
		attrs = append(attrs, attribute.Int64("user_id", uid))
	} else if sid, ok := key.SessionID(); ok {
		attrs = append(attrs, attribute.String("session_id", sid))
	} else {
		return
	}
	s.metrics.CartItemsCount.Record(ctx, int64(count), metric.WithAttributes(s.metrics.WithServiceName(attrs)...))
}

// ComputeTotals sums quantity × unit price per currency over joined cart
// rows. Pure aggregation: crypto totals carry 6 decimal places, fiat 2.
func ComputeTotals(items []models.CartItemWithProduct) models.CartTotals {
	totalCrypto := decimal.Zero
	totalFiat := decimal.Zero
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		totalCrypto = totalCrypto.Add(item.Product.CryptoPrice.Mul(qty))
		totalFiat = totalFiat.Add(item.Product.FiatPrice.Mul(qty))
	}
	return models.CartTotals{
		TotalCrypto: totalCrypto.StringFixed(6),
		TotalFiat:   totalFiat.StringFixed(2),
	}
}
