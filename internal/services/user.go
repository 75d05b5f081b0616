package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cryptomart/storefront/internal/db"
	"github.com/cryptomart/storefront/internal/metrics"
	"github.com/cryptomart/storefront/internal/models"
)

const userColumns = "id, username, password, wallet_address, created_at"

// UserService handles shopper accounts. The password is an opaque
// credential; hashing it is out of scope here.
type UserService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewUserService creates a new user service
func NewUserService(db *db.DB, metrics *metrics.AppMetrics) *UserService {
	return &UserService{
		db:      db,
		metrics: metrics,
	}
}

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.WalletAddress, &u.CreatedAt)
	return u, err
}

// Register creates a new account with a unique username
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	start := time.Now()
	query := "INSERT INTO users (username, password) VALUES (?, ?)"
	result, err := s.db.ExecContext(ctx, query, username, password)
	s.metrics.RecordDBQuery(ctx, "INSERT", "users", start, err == nil)
	if err != nil {
		// MySQL error 1062
		if strings.Contains(err.Error(), "Duplicate entry") {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}

	return &models.User{
		ID:        id,
		Username:  username,
		Password:  password,
		CreatedAt: time.Now(),
	}, nil
}

// GetByID returns a user by id
func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getBy(ctx, "id = ?", id)
}

// GetByUsername returns a user by username
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getBy(ctx, "username = ?", username)
}

// GetByWalletAddress returns the user holding a wallet address
func (s *UserService) GetByWalletAddress(ctx context.Context, walletAddress string) (*models.User, error) {
	return s.getBy(ctx, "wallet_address = ?", walletAddress)
}

func (s *UserService) getBy(ctx context.Context, predicate string, arg any) (*models.User, error) {
	start := time.Now()
	query := "SELECT " + userColumns + " FROM users WHERE " + predicate
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// UpdateWallet overwrites a user's wallet address
func (s *UserService) UpdateWallet(ctx context.Context, id int64, walletAddress string) (*models.User, error) {
	start := time.Now()
	query := "UPDATE users SET wallet_address = ? WHERE id = ?"
	_, err := s.db.ExecContext(ctx, query, walletAddress, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "users", start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update wallet: %w", err)
	}

	return s.GetByID(ctx, id)
}
