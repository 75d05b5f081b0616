package services

import "errors"

// Sentinel errors separating caller mistakes and absent rows from
// infrastructure failures. Handlers map these to response codes with
// errors.Is; anything else is a server fault.
var (
	ErrNotFound          = errors.New("not found")
	ErrNoIdentity        = errors.New("user id or session id required")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidStock      = errors.New("stock must not be negative")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrUsernameTaken     = errors.New("username already taken")
)
