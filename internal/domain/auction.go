package domain

import (
	"time"

	"aura_go/pkg/money"
)

// AuctionID identifies an auction. IDs are assigned monotonically from 0.
type AuctionID uint64

// MinAuctionDuration is the shortest allowed auction window.
const MinAuctionDuration = time.Hour

// Auction is a time-boxed ascending-bid sale of one asset. The asset sits in
// engine custody from creation until settlement or cancellation.
//
// HighestBid is 0 and HighestBidder empty until the first accepted bid;
// thereafter HighestBid is strictly increasing. Ended and Canceled are
// mutually exclusive terminal states.
type Auction struct {
	ID            AuctionID    `json:"id"`
	AssetID       AssetID      `json:"asset_id"`
	Seller        Principal    `json:"seller"`
	StartPrice    money.Amount `json:"start_price"`
	HighestBid    money.Amount `json:"highest_bid"`
	HighestBidder Principal    `json:"highest_bidder,omitempty"`
	StartTime     time.Time    `json:"start_time"`
	EndTime       time.Time    `json:"end_time"`
	Ended         bool         `json:"ended"`
	Canceled      bool         `json:"canceled"`
}

// Terminal reports whether the auction has reached a terminal state.
func (a *Auction) Terminal() bool {
	return a.Ended || a.Canceled
}

// Bid is one accepted bid. Bid records are append-only and form the
// auditable bid history of an auction.
type Bid struct {
	Bidder    Principal    `json:"bidder"`
	Amount    money.Amount `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
}

// EscrowEntry is the withdrawable balance of one outbid bidder on one
// auction. Entries are cleared only by that bidder's explicit withdrawal.
type EscrowEntry struct {
	AuctionID AuctionID    `json:"auction_id"`
	Bidder    Principal    `json:"bidder"`
	Amount    money.Amount `json:"amount"`
}
