package event

import (
	"aura_go/internal/domain"
	"aura_go/pkg/money"
)

// Type defines the type of event.
type Type uint16

const (
	EvAssetMinted Type = iota + 1
	EvApprovalSet
	EvRoyaltySet
	EvListed
	EvPriceUpdated
	EvListingCanceled
	EvSale
	EvAuctionCreated
	EvBidPlaced
	EvBidWithdrawn
	EvAuctionCanceled
	EvAuctionEnded
)

func (t Type) String() string {
	switch t {
	case EvAssetMinted:
		return "AssetMinted"
	case EvApprovalSet:
		return "ApprovalSet"
	case EvRoyaltySet:
		return "RoyaltySet"
	case EvListed:
		return "Listed"
	case EvPriceUpdated:
		return "PriceUpdated"
	case EvListingCanceled:
		return "ListingCanceled"
	case EvSale:
		return "Sale"
	case EvAuctionCreated:
		return "AuctionCreated"
	case EvBidPlaced:
		return "BidPlaced"
	case EvBidWithdrawn:
		return "BidWithdrawn"
	case EvAuctionCanceled:
		return "AuctionCanceled"
	case EvAuctionEnded:
		return "AuctionEnded"
	default:
		return "Unknown"
	}
}

// Event is the interface for all journaled settlement events. Events are
// self-contained: replaying them in sequence order rebuilds the full engine
// state without re-running validation.
type Event interface {
	GetSeq() uint64
	GetTs() int64 // Unix Microseconds
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }
func (e BaseEvent) GetTs() int64   { return e.Ts }

// AssetMintedEvent records a new asset entering the registry.
type AssetMintedEvent struct {
	BaseEvent
	AssetID     domain.AssetID   `json:"asset_id"`
	Creator     domain.Principal `json:"creator"`
	MetadataRef string           `json:"metadata_ref"`
}

func (e AssetMintedEvent) GetType() Type { return EvAssetMinted }

// ApprovalSetEvent records a grant or revocation of custody authority.
type ApprovalSetEvent struct {
	BaseEvent
	Owner    domain.Principal `json:"owner"`
	Operator domain.Principal `json:"operator"`
	Approved bool             `json:"approved"`
}

func (e ApprovalSetEvent) GetType() Type { return EvApprovalSet }

// RoyaltySetEvent records an administrative royalty rate change.
type RoyaltySetEvent struct {
	BaseEvent
	RoyaltyBps money.Bps `json:"royalty_bps"`
}

func (e RoyaltySetEvent) GetType() Type { return EvRoyaltySet }

// ListedEvent records a new active fixed-price listing.
type ListedEvent struct {
	BaseEvent
	ListingID domain.ListingID `json:"listing_id"`
	AssetID   domain.AssetID   `json:"asset_id"`
	Seller    domain.Principal `json:"seller"`
	Price     money.Amount     `json:"price"`
}

func (e ListedEvent) GetType() Type { return EvListed }

// PriceUpdatedEvent records a price change on an active listing.
type PriceUpdatedEvent struct {
	BaseEvent
	ListingID domain.ListingID `json:"listing_id"`
	NewPrice  money.Amount     `json:"new_price"`
}

func (e PriceUpdatedEvent) GetType() Type { return EvPriceUpdated }

// ListingCanceledEvent records a seller withdrawing a listing.
type ListingCanceledEvent struct {
	BaseEvent
	ListingID domain.ListingID `json:"listing_id"`
}

func (e ListingCanceledEvent) GetType() Type { return EvListingCanceled }

// SaleEvent records a completed fixed-price sale, including the exact
// three-way split so replay repeats the same integer accounting.
type SaleEvent struct {
	BaseEvent
	ListingID domain.ListingID `json:"listing_id"`
	AssetID   domain.AssetID   `json:"asset_id"`
	Seller    domain.Principal `json:"seller"`
	Buyer     domain.Principal `json:"buyer"`
	Creator   domain.Principal `json:"creator"`
	Price     money.Amount     `json:"price"`
	SellerNet money.Amount     `json:"seller_net"`
	Royalty   money.Amount     `json:"royalty"`
	Fee       money.Amount     `json:"fee"`
}

func (e SaleEvent) GetType() Type { return EvSale }

// AuctionCreatedEvent records a new auction; the asset is in engine custody
// from this point.
type AuctionCreatedEvent struct {
	BaseEvent
	AuctionID  domain.AuctionID `json:"auction_id"`
	AssetID    domain.AssetID   `json:"asset_id"`
	Seller     domain.Principal `json:"seller"`
	StartPrice money.Amount     `json:"start_price"`
	StartUnixM int64            `json:"start_unix"` // Unix Micro
	EndUnixM   int64            `json:"end_unix"`
}

func (e AuctionCreatedEvent) GetType() Type { return EvAuctionCreated }

// BidPlacedEvent records an accepted bid. PrevBidder/PrevAmount identify the
// escrow credit of the superseded bid (empty/0 for the first bid).
type BidPlacedEvent struct {
	BaseEvent
	AuctionID  domain.AuctionID `json:"auction_id"`
	Bidder     domain.Principal `json:"bidder"`
	Amount     money.Amount     `json:"amount"`
	PrevBidder domain.Principal `json:"prev_bidder,omitempty"`
	PrevAmount money.Amount     `json:"prev_amount,omitempty"`
}

func (e BidPlacedEvent) GetType() Type { return EvBidPlaced }

// BidWithdrawnEvent records an escrow payout to an outbid bidder.
type BidWithdrawnEvent struct {
	BaseEvent
	AuctionID domain.AuctionID `json:"auction_id"`
	Bidder    domain.Principal `json:"bidder"`
	Amount    money.Amount     `json:"amount"`
}

func (e BidWithdrawnEvent) GetType() Type { return EvBidWithdrawn }

// AuctionCanceledEvent records a no-bid cancellation; the asset returned to
// the seller.
type AuctionCanceledEvent struct {
	BaseEvent
	AuctionID domain.AuctionID `json:"auction_id"`
	AssetID   domain.AssetID   `json:"asset_id"`
	Seller    domain.Principal `json:"seller"`
}

func (e AuctionCanceledEvent) GetType() Type { return EvAuctionCanceled }

// AuctionEndedEvent records finalization. Winner is empty when the auction
// expired with no bids, in which case all amounts are zero and the asset
// returned to the seller.
type AuctionEndedEvent struct {
	BaseEvent
	AuctionID domain.AuctionID `json:"auction_id"`
	AssetID   domain.AssetID   `json:"asset_id"`
	Seller    domain.Principal `json:"seller"`
	Winner    domain.Principal `json:"winner,omitempty"`
	Creator   domain.Principal `json:"creator,omitempty"`
	Amount    money.Amount     `json:"amount"`
	SellerNet money.Amount     `json:"seller_net"`
	Royalty   money.Amount     `json:"royalty"`
	Fee       money.Amount     `json:"fee"`
}

func (e AuctionEndedEvent) GetType() Type { return EvAuctionEnded }
