package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrVenueDisabled       = errors.New("venue disabled")
	ErrProviderDisabled    = errors.New("provider disabled")
	ErrInsufficientLiq     = errors.New("insufficient liquidity")
	ErrMinAmountOut        = errors.New("output below minimum")
	ErrLoanNotRepaid       = errors.New("loan not repaid")
	ErrUnknownPricingModel = errors.New("unknown pricing model")
	ErrContextDone         = errors.New("context cancelled")
)
