package domain

import "aura_go/pkg/money"

// ListingID identifies a fixed-price listing. IDs are assigned monotonically
// starting from 0.
type ListingID uint64

// Listing is an offer to sell one asset at a fixed price.
// Lifecycle: Active -> Sold | Canceled (terminal). At most one active listing
// exists per asset at any time.
type Listing struct {
	ID      ListingID    `json:"id"`
	AssetID AssetID      `json:"asset_id"`
	Seller  Principal    `json:"seller"`
	Price   money.Amount `json:"price"`
	Active  bool         `json:"active"`
}
