package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cryptomart/storefront/internal/db"
	"github.com/cryptomart/storefront/internal/metrics"
	"github.com/cryptomart/storefront/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const productColumns = "id, name, description, crypto_price, fiat_price, category, image_url, stock, is_active, created_at"

// CatalogService handles product catalog operations. Only active products
// are visible to browsing paths; deactivated products stay in the table for
// historical order integrity.
type CatalogService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCatalogService creates a new catalog service
func NewCatalogService(db *db.DB, metrics *metrics.AppMetrics) *CatalogService {
	return &CatalogService{
		db:      db,
		metrics: metrics,
	}
}

func scanProduct(row interface{ Scan(...any) error }) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CryptoPrice, &p.FiatPrice,
		&p.Category, &p.ImageURL, &p.Stock, &p.IsActive, &p.CreatedAt)
	return p, err
}

// ListActive returns all active products, newest first
func (s *CatalogService) ListActive(ctx context.Context) ([]models.Product, error) {
	start := time.Now()
	query := "SELECT " + productColumns + " FROM products WHERE is_active = TRUE ORDER BY created_at DESC"
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// ListActiveByCategory returns active products in an exact category, newest first
func (s *CatalogService) ListActiveByCategory(ctx context.Context, category string) ([]models.Product, error) {
	start := time.Now()
	query := "SELECT " + productColumns + " FROM products WHERE category = ? AND is_active = TRUE ORDER BY created_at DESC"
	rows, err := s.db.QueryContext(ctx, query, category)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by category: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// GetActive returns a single active product. An inactive product reports
// the same ErrNotFound as a missing one.
func (s *CatalogService) GetActive(ctx context.Context, id int64) (*models.Product, error) {
	start := time.Now()
	query := "SELECT " + productColumns + " FROM products WHERE id = ? AND is_active = TRUE"
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	viewAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int64("product_id", id),
		attribute.String("product_category", p.Category),
	})
	s.metrics.ProductsViewed.Add(ctx, 1, metric.WithAttributes(viewAttrs...))

	return &p, nil
}

// Create inserts a new product, active by default
func (s *CatalogService) Create(ctx context.Context, np models.NewProduct) (*models.Product, error) {
	start := time.Now()
	query := "INSERT INTO products (name, description, crypto_price, fiat_price, category, image_url, stock) VALUES (?, ?, ?, ?, ?, ?, ?)"
	result, err := s.db.ExecContext(ctx, query,
		np.Name, np.Description, np.CryptoPrice, np.FiatPrice, np.Category, np.ImageURL, np.Stock)
	s.metrics.RecordDBQuery(ctx, "INSERT", "products", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get product ID: %w", err)
	}

	return &models.Product{
		ID:          id,
		Name:        np.Name,
		Description: np.Description,
		CryptoPrice: np.CryptoPrice,
		FiatPrice:   np.FiatPrice,
		Category:    np.Category,
		ImageURL:    np.ImageURL,
		Stock:       np.Stock,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}, nil
}

// SetStock overwrites a product's stock count. Inactive products can be
// restocked, so no active filter here.
func (s *CatalogService) SetStock(ctx context.Context, id int64, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	start := time.Now()
	query := "UPDATE products SET stock = ? WHERE id = ?"
	_, err := s.db.ExecContext(ctx, query, stock, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "products", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	// MySQL reports zero affected rows for a same-value write, so the
	// follow-up select is what distinguishes a missing product.
	start = time.Now()
	selectQuery := "SELECT " + productColumns + " FROM products WHERE id = ?"
	p, err := scanProduct(s.db.QueryRowContext(ctx, selectQuery, id))
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &p, nil
}
