package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// PricingModel identifies how a venue prices a swap. The profitability
// calculator selects the matching formula per venue, never hardcoding one.
type PricingModel string

const (
	ModelConstantProduct PricingModel = "constant_product"
	ModelConcentrated    PricingModel = "concentrated"
	ModelStableSwap      PricingModel = "stable_swap"
	ModelWeighted        PricingModel = "weighted"
)

// Known reports whether m is a supported pricing model.
func (m PricingModel) Known() bool {
	switch m {
	case ModelConstantProduct, ModelConcentrated, ModelStableSwap, ModelWeighted:
		return true
	}
	return false
}

// VenueInfo is the registration record the route validator consults.
type VenueInfo struct {
	ID      string       `json:"id"`
	Model   PricingModel `json:"pricing_model"`
	FeeBps  uint64       `json:"fee_bps"`
	Network string       `json:"network"`
	Enabled bool         `json:"enabled"`
}

// ProviderInfo is the registration record for a borrowed-capital source.
// Selection policy: lowest FeeRateBps first, ties broken by highest
// Liquidity.
type ProviderInfo struct {
	ID         string       `json:"id"`
	FeeRateBps uint64       `json:"fee_rate_bps"`
	MaxLoan    *uint256.Int `json:"max_loan"`
	Liquidity  *uint256.Int `json:"liquidity"`
	Enabled    bool         `json:"enabled"`
}

// BridgeInfo is the registration record for a cross-network value transfer.
// ConfirmationTime is informational only and never used for flow control.
type BridgeInfo struct {
	ID               string        `json:"id"`
	FromNetwork      string        `json:"from_network"`
	ToNetwork        string        `json:"to_network"`
	FeeBps           uint64        `json:"fee_bps"`
	FlatFee          *uint256.Int  `json:"flat_fee"`
	ConfirmationTime time.Duration `json:"confirmation_time"`
	Enabled          bool          `json:"enabled"`
}
