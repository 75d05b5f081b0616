package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cryptomart/storefront/internal/db"
	"github.com/cryptomart/storefront/internal/metrics"
	"github.com/cryptomart/storefront/internal/services"
	"github.com/cryptomart/storefront/pkg/config"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func newTestApp(t *testing.T) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := metrics.New(noop.NewMeterProvider().Meter("test"), "test")
	require.NoError(t, err)

	database := db.NewFromSQL(conn)
	app := NewApp(
		&config.Config{},
		database,
		m,
		services.NewCatalogService(database, m),
		services.NewCartService(database, m),
		services.NewOrderService(database, m),
		services.NewUserService(database, m),
	)

	router := mux.NewRouter()
	app.SetupRoutes(router)
	return router, mock
}

func TestGetCartWithoutIdentityReturnsEmptyArray(t *testing.T) {
	router, mock := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCartTotals(t *testing.T) {
	router, mock := newTestApp(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "product_id", "quantity", "session_id", "created_at",
		"p_id", "name", "description", "crypto_price", "fiat_price", "category", "image_url", "stock", "is_active", "p_created_at",
	}).AddRow(
		int64(1), nil, int64(10), 3, "s1", now,
		int64(10), "Crypto Pioneer Cap", "cap", "0.025", "89.99", "headwear", "http://img", 50, true, now,
	)
	mock.ExpectQuery("FROM cart_items ci").WithArgs("s1").WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/api/cart/totals?sessionId=s1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_crypto":"0.075000","total_fiat":"269.97"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductMissingMapsTo404(t *testing.T) {
	router, mock := newTestApp(t)

	mock.ExpectQuery("FROM products WHERE id").WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest(http.MethodGet, "/api/products/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCartItemRejectsInvalidQuantity(t *testing.T) {
	router, mock := newTestApp(t)

	req := httptest.NewRequest(http.MethodPut, "/api/cart/3", strings.NewReader(`{"quantity":0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddToCartWithoutIdentityRejected(t *testing.T) {
	router, mock := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/cart", strings.NewReader(`{"product_id":1,"quantity":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRequiresAddresses(t *testing.T) {
	router, mock := newTestApp(t)

	body := `{"order":{"total_crypto_price":"0.075","total_fiat_price":"269.97"},"order_items":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusBackwardMapsToConflict(t *testing.T) {
	router, mock := newTestApp(t)

	mock.ExpectQuery("SELECT status FROM orders").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("shipped"))

	req := httptest.NewRequest(http.MethodPut, "/api/orders/9/status", strings.NewReader(`{"status":"confirmed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
