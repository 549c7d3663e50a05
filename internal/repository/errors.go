package repository

import "errors"

// Sentinel errors returned by ledger operations. Callers match them
// with errors.Is; any of them means the transaction was rolled back
// and no state changed.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrBidNotFound       = errors.New("bid not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidBidState   = errors.New("bid is not active")
	ErrUsernameTaken     = errors.New("username already taken")
)
