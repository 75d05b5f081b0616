package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewUserService(database, m)

	mock.ExpectExec("INSERT INTO users").WithArgs("satoshi", "hunter2").
		WillReturnResult(sqlmock.NewResult(1, 1))

	user, err := svc.Register(context.Background(), "satoshi", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "satoshi", user.Username)
	assert.Nil(t, user.WalletAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewUserService(database, m)

	mock.ExpectExec("INSERT INTO users").WithArgs("satoshi", "hunter2").
		WillReturnError(errors.New("Error 1062: Duplicate entry 'satoshi' for key 'username'"))

	_, err := svc.Register(context.Background(), "satoshi", "hunter2")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsernameMissing(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewUserService(database, m)

	mock.ExpectQuery("FROM users WHERE username").WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.GetByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWallet(t *testing.T) {
	database, mock, m := newTestEnv(t)
	svc := NewUserService(database, m)
	now := time.Now()

	mock.ExpectExec("UPDATE users SET wallet_address").WithArgs("0xabc", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM users WHERE id").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password", "wallet_address", "created_at"}).
			AddRow(int64(1), "satoshi", "hunter2", "0xabc", now))

	user, err := svc.UpdateWallet(context.Background(), 1, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, user.WalletAddress)
	assert.Equal(t, "0xabc", *user.WalletAddress)
	assert.NoError(t, mock.ExpectationsWereMet())
}
