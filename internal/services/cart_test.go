package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cryptomart/storefront/internal/identity"
	"github.com/cryptomart/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinedItem(quantity int, cryptoPrice, fiatPrice string) models.CartItemWithProduct {
	var item models.CartItemWithProduct
	item.Quantity = quantity
	item.Product.CryptoPrice = decimal.RequireFromString(cryptoPrice)
	item.Product.FiatPrice = decimal.RequireFromString(fiatPrice)
	return item
}

func TestComputeTotals(t *testing.T) {
	items := []models.CartItemWithProduct{
		joinedItem(2, "0.01", "10.00"),
		joinedItem(3, "0.02", "5.00"),
	}

	totals := ComputeTotals(items)

	assert.Equal(t, "0.080000", totals.TotalCrypto)
	assert.Equal(t, "25.00", totals.TotalFiat)
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	totals := ComputeTotals(nil)

	assert.Equal(t, "0.000000", totals.TotalCrypto)
	assert.Equal(t, "0.00", totals.TotalFiat)
}

func TestListWithoutIdentityIsEmpty(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)

	items, err := svc.List(context.Background(), identity.Resolve(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListScopedBySession(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "product_id", "quantity", "session_id", "created_at",
		"p_id", "name", "description", "crypto_price", "fiat_price", "category", "image_url", "stock", "is_active", "p_created_at",
	}).AddRow(
		int64(1), nil, int64(10), 2, "sess-1", now,
		int64(10), "Crypto Pioneer Cap", "cap", "0.025", "89.99", "headwear", "http://img", 50, true, now,
	)
	mock.ExpectQuery("FROM cart_items ci").WithArgs("sess-1").WillReturnRows(rows)

	items, err := svc.List(context.Background(), identity.BySession("sess-1"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(10), items[0].ProductID)
	assert.Nil(t, items[0].UserID)
	require.NotNil(t, items[0].SessionID)
	assert.Equal(t, "sess-1", *items[0].SessionID)
	assert.True(t, items[0].Product.CryptoPrice.Equal(decimal.RequireFromString("0.025")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddUpsertsAndMergesQuantity(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)
	now := time.Now()

	mock.ExpectQuery("SELECT EXISTS").WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("ON DUPLICATE KEY UPDATE").WithArgs(nil, int64(10), 2, "sess-1").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM cart_items WHERE id").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "quantity", "session_id", "created_at"}).
			AddRow(int64(5), nil, int64(10), 3, "sess-1", now))
	mock.ExpectQuery("SELECT COUNT").WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	item, err := svc.Add(context.Background(), identity.BySession("sess-1"), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), item.ID)
	assert.Equal(t, 3, item.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)

	_, err := svc.Add(context.Background(), identity.ByUser(1), 10, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(context.Background(), identity.ByUser(1), 10, -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddWithoutIdentity(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)

	_, err := svc.Add(context.Background(), identity.Resolve(nil, nil), 10, 1)
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddUnknownProduct(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)

	mock.ExpectQuery("SELECT EXISTS").WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := svc.Add(context.Background(), identity.ByUser(1), 99, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetQuantityRejectsNonPositive(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)

	_, err := svc.SetQuantity(context.Background(), 5, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetQuantityMissingRow(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)

	mock.ExpectExec("UPDATE cart_items SET quantity").WithArgs(4, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM cart_items WHERE id").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "quantity", "session_id", "created_at"}))

	_, err := svc.SetQuantity(context.Background(), 5, 4)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveMissingRowIsNoop(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)

	mock.ExpectExec("DELETE FROM cart_items WHERE id").WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, svc.Remove(context.Background(), 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearWithoutIdentityIsNoop(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)

	assert.NoError(t, svc.Clear(context.Background(), identity.Resolve(nil, nil)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearScopedByUser(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)

	mock.ExpectExec("DELETE FROM cart_items WHERE user_id").WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	assert.NoError(t, svc.Clear(context.Background(), identity.ByUser(7)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Session cart walkthrough: add, merge into the same row, total, clear.
func TestSessionCartScenario(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewCartService(database, m)
	key := identity.BySession("s1")
	now := time.Now()

	itemColumns := []string{"id", "user_id", "product_id", "quantity", "session_id", "created_at"}

	// First add creates the row with quantity 1
	mock.ExpectQuery("SELECT EXISTS").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("ON DUPLICATE KEY UPDATE").WithArgs(nil, int64(1), 1, "s1").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery("FROM cart_items WHERE id").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(int64(3), nil, int64(1), 1, "s1", now))
	mock.ExpectQuery("SELECT COUNT").WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	item, err := svc.Add(context.Background(), key, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)

	// Second add merges into the same row
	mock.ExpectQuery("SELECT EXISTS").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("ON DUPLICATE KEY UPDATE").WithArgs(nil, int64(1), 2, "s1").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery("FROM cart_items WHERE id").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(int64(3), nil, int64(1), 3, "s1", now))
	mock.ExpectQuery("SELECT COUNT").WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	item, err = svc.Add(context.Background(), key, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.ID)
	assert.Equal(t, 3, item.Quantity)

	totals := ComputeTotals([]models.CartItemWithProduct{joinedItem(3, "0.025", "89.99")})
	assert.Equal(t, "0.075000", totals.TotalCrypto)
	assert.Equal(t, "269.97", totals.TotalFiat)

	mock.ExpectExec("DELETE FROM cart_items WHERE session_id").WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.Clear(context.Background(), key))

	mock.ExpectQuery("FROM cart_items ci").WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "product_id", "quantity", "session_id", "created_at",
			"p_id", "name", "description", "crypto_price", "fiat_price", "category", "image_url", "stock", "is_active", "p_created_at",
		}))
	items, err := svc.List(context.Background(), key)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.NoError(t, mock.ExpectationsWereMet())
}
