package money

import (
	"fmt"

	"aura_go/pkg/safe"
)

// Amount is a monetary value in the smallest currency unit.
// Rule #1: No Float. All settlement math is integer-only.
type Amount int64

// Bps is a fee or royalty rate in basis points (1 bps = 0.01%).
type Bps int64

const (
	// BpsDenom is the basis point denominator (10000 = 100%).
	BpsDenom = 10000

	// MaxRoyaltyBps caps royalties at 10% of the sale price.
	MaxRoyaltyBps Bps = 1000
)

func (a Amount) String() string {
	return fmt.Sprintf("%d", int64(a))
}

// TakeBps returns floor(a * bps / 10000). The second return is false when the
// intermediate product overflows int64.
func TakeBps(a Amount, bps Bps) (Amount, bool) {
	prod, ok := safe.CheckedMul(int64(a), int64(bps))
	if !ok {
		return 0, false
	}
	v, ok := safe.CheckedDiv(prod, BpsDenom)
	if !ok {
		return 0, false
	}
	return Amount(v), true
}

// Split is the three-way division of a sale price. The integer remainder of
// the royalty and fee cuts is awarded to the seller, so
// SellerNet + Royalty + Fee always equals the price it was computed from.
type Split struct {
	SellerNet Amount
	Royalty   Amount
	Fee       Amount
}

// SplitProceeds divides price into seller proceeds, the given creator
// royalty, and the platform fee at feeBps. Returns false on arithmetic
// overflow or when the cuts exceed the price; callers surface that as a
// settlement failure, never as a partial payout.
func SplitProceeds(price Amount, royalty Amount, feeBps Bps) (Split, bool) {
	if royalty < 0 || price < 0 {
		return Split{}, false
	}
	fee, ok := TakeBps(price, feeBps)
	if !ok {
		return Split{}, false
	}
	cuts, ok := safe.CheckedAdd(int64(royalty), int64(fee))
	if !ok {
		return Split{}, false
	}
	net, ok := safe.CheckedSub(int64(price), cuts)
	if !ok || net < 0 {
		return Split{}, false
	}
	return Split{SellerNet: Amount(net), Royalty: royalty, Fee: fee}, true
}
