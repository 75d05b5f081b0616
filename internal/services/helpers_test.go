package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cryptomart/storefront/internal/db"
	"github.com/cryptomart/storefront/internal/metrics"
	"github.com/cryptomart/storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// newTestEnv wires a sqlmock-backed DB and noop metrics for service tests
func newTestEnv(t *testing.T) (*db.DB, sqlmock.Sqlmock, *metrics.AppMetrics) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := metrics.New(noop.NewMeterProvider().Meter("test"), "test")
	require.NoError(t, err)

	return db.NewFromSQL(conn), mock, m
}

func sampleNewProduct() models.NewProduct {
	return models.NewProduct{
		Name:        "Crypto Pioneer Cap",
		Description: "cap",
		CryptoPrice: decimal.RequireFromString("0.025"),
		FiatPrice:   decimal.RequireFromString("89.99"),
		Category:    "headwear",
		ImageURL:    "http://img",
		Stock:       50,
	}
}
