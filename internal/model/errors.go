package model

import "errors"

// Error kinds shared by every ledger. Each one aborts the enclosing
// operation; ledgers wrap them with context via fmt.Errorf("...: %w").
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientStake   = errors.New("insufficient stake")
	ErrAlreadyInitialized  = errors.New("already initialized")
	ErrNotInitialized      = errors.New("not initialized")
	ErrUnauthorized        = errors.New("caller is not authorized")
	ErrParameterOutOfRange = errors.New("parameter out of range")
	ErrNothingStaked       = errors.New("nothing staked")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrPoolNotFound        = errors.New("pool not found")
	ErrDuplicatePool       = errors.New("asset already has a pool")
	ErrNotFound            = errors.New("not found")
)
