package domain

import "github.com/pkg/errors"

var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidPrice         = errors.New("price must be positive")
	ErrInvalidFee           = errors.New("fee must not be negative")
	ErrInvalidInterval      = errors.New("invalid interval")
	ErrInvalidRange         = errors.New("invalid date range")
	ErrInsufficientFunds    = errors.New("insufficient USD balance")
	ErrInsufficientHoldings = errors.New("insufficient asset holdings")
	ErrTradeTooSmall        = errors.New("trade below asset precision")
)
