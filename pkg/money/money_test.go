package money

import (
	"math"
	"testing"
)

func TestTakeBps(t *testing.T) {
	cases := []struct {
		amount Amount
		bps    Bps
		want   Amount
	}{
		{1_000_000, 250, 25_000},  // 2.5%
		{1_000_000, 1000, 100_000}, // 10%
		{1_000_000, 0, 0},
		{0, 250, 0},
		{999, 250, 24},        // floor(24.975)
		{1, 1, 0},             // rounds down to zero
		{3, 3333, 0},          // floor(9999/10000)
		{10_001, 9999, 9_999}, // floor(99999999/10000)
	}

	for _, c := range cases {
		got, ok := TakeBps(c.amount, c.bps)
		if !ok {
			t.Fatalf("TakeBps(%d, %d) reported overflow", c.amount, c.bps)
		}
		if got != c.want {
			t.Errorf("TakeBps(%d, %d) = %d, want %d", c.amount, c.bps, got, c.want)
		}
	}
}

func TestTakeBps_Overflow(t *testing.T) {
	if _, ok := TakeBps(Amount(math.MaxInt64), 250); ok {
		t.Error("expected overflow for MaxInt64 amount")
	}
}

func TestSplitProceeds_ExactAccounting(t *testing.T) {
	// Listing happy path: 1_000_000 at 250 bps royalty + 250 bps fee.
	royalty, ok := TakeBps(1_000_000, 250)
	if !ok {
		t.Fatal("TakeBps failed")
	}
	split, ok := SplitProceeds(1_000_000, royalty, 250)
	if !ok {
		t.Fatal("SplitProceeds failed")
	}
	if split.SellerNet != 950_000 {
		t.Errorf("seller net = %d, want 950000", split.SellerNet)
	}
	if split.Royalty != 25_000 {
		t.Errorf("royalty = %d, want 25000", split.Royalty)
	}
	if split.Fee != 25_000 {
		t.Errorf("fee = %d, want 25000", split.Fee)
	}
}

// The remainder of integer division goes to the seller: the three legs must
// sum back to the price exactly, no dust lost or created.
func TestSplitProceeds_RemainderToSeller(t *testing.T) {
	prices := []Amount{1, 3, 999, 10_001, 123_456_789, 1_000_000_000_000}
	rates := []struct{ royalty, fee Bps }{
		{250, 250}, {1, 1}, {1000, 9000}, {0, 250}, {333, 777},
	}

	for _, p := range prices {
		for _, r := range rates {
			royalty, ok := TakeBps(p, r.royalty)
			if !ok {
				t.Fatalf("TakeBps(%d, %d) failed", p, r.royalty)
			}
			split, ok := SplitProceeds(p, royalty, r.fee)
			if !ok {
				t.Fatalf("SplitProceeds(%d, %d, %d) failed", p, royalty, r.fee)
			}
			sum := split.SellerNet + split.Royalty + split.Fee
			if sum != p {
				t.Errorf("SplitProceeds(%d, %d, %d): legs sum to %d", p, royalty, r.fee, sum)
			}
			if split.SellerNet < 0 || split.Royalty < 0 || split.Fee < 0 {
				t.Errorf("SplitProceeds(%d, %d, %d): negative leg %+v", p, royalty, r.fee, split)
			}
		}
	}
}

func TestSplitProceeds_CutsExceedPrice(t *testing.T) {
	// Royalty above the price can only come from corrupted state; the split
	// must refuse rather than produce a negative seller leg.
	if _, ok := SplitProceeds(100, 200, 0); ok {
		t.Error("expected failure when royalty exceeds price")
	}
}

func TestSplitProceeds_Overflow(t *testing.T) {
	if _, ok := SplitProceeds(Amount(math.MaxInt64), 1, 250); ok {
		t.Error("expected overflow failure for MaxInt64 price")
	}
}
