package market

import (
	"context"
	"math"
	"testing"
	"time"

	"aura_go/internal/domain"
	"aura_go/internal/event"
	"aura_go/internal/registry"
	"aura_go/internal/storage"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixture struct {
	reg     *registry.Registry
	book    *domain.BalanceBook
	market  *Market
	journal *storage.Journal
}

func newFixture() *fixture {
	clock := fixedClock{t: time.Unix(1_700_000_000, 0)}
	journal := storage.NewJournal(nil, 0)
	reg := registry.New(journal, clock, 250)
	book := domain.NewBalanceBook()
	mkt := New(reg, book, journal, clock, Config{
		FeeBps:   250,
		Treasury: "treasury",
		Operator: "market",
	})
	return &fixture{reg: reg, book: book, market: mkt, journal: journal}
}

// mintFor mints assets until one with the wanted id exists and approves the
// marketplace for the seller.
func (f *fixture) mintFor(t *testing.T, seller domain.Principal, want domain.AssetID) domain.AssetID {
	t.Helper()
	ctx := context.Background()
	for {
		id, err := f.reg.Mint(ctx, seller, "ipfs://asset")
		if err != nil {
			t.Fatalf("Mint failed: %v", err)
		}
		if id == want {
			break
		}
		if id > want {
			t.Fatalf("overshot asset id %d", want)
		}
	}
	if err := f.reg.ApproveAll(ctx, seller, "market", true); err != nil {
		t.Fatalf("ApproveAll failed: %v", err)
	}
	return want
}

func TestListNFT(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	assetID := f.mintFor(t, "seller", 0)

	id, err := f.market.ListNFT(ctx, "seller", assetID, 1_000_000)
	if err != nil {
		t.Fatalf("ListNFT failed: %v", err)
	}
	if id != 0 {
		t.Errorf("listing id = %d, want 0", id)
	}

	l, err := f.market.GetActiveListing(id)
	if err != nil {
		t.Fatalf("GetActiveListing failed: %v", err)
	}
	if l.Seller != "seller" || l.Price != 1_000_000 || !l.Active {
		t.Errorf("unexpected listing %+v", l)
	}
}

func TestListNFT_Preconditions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	assetID := f.mintFor(t, "seller", 0)

	// Zero price
	if _, err := f.market.ListNFT(ctx, "seller", assetID, 0); domain.CodeOf(err) != domain.CodeInvalidInput {
		t.Errorf("zero price: expected INVALID_INPUT, got %v", err)
	}

	// Unknown asset
	if _, err := f.market.ListNFT(ctx, "seller", 42, 100); domain.CodeOf(err) != domain.CodeNotFound {
		t.Errorf("unknown asset: expected NOT_FOUND, got %v", err)
	}

	// Not the holder
	if _, err := f.market.ListNFT(ctx, "mallory", assetID, 100); domain.CodeOf(err) != domain.CodeNotOwner {
		t.Errorf("wrong holder: expected NOT_OWNER, got %v", err)
	}

	// Holder without approval
	if err := f.reg.ApproveAll(ctx, "seller", "market", false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.market.ListNFT(ctx, "seller", assetID, 100); domain.CodeOf(err) != domain.CodeNotApproved {
		t.Errorf("no approval: expected NOT_APPROVED, got %v", err)
	}
	if err := f.reg.ApproveAll(ctx, "seller", "market", true); err != nil {
		t.Fatal(err)
	}

	// Second active listing on the same asset
	if _, err := f.market.ListNFT(ctx, "seller", assetID, 100); err != nil {
		t.Fatalf("ListNFT failed: %v", err)
	}
	if _, err := f.market.ListNFT(ctx, "seller", assetID, 200); domain.CodeOf(err) != domain.CodeInvalidInput {
		t.Errorf("double listing: expected INVALID_INPUT, got %v", err)
	}
}

// Listing happy path from the settlement accounting: price 1_000_000 at
// 250 bps fee and 250 bps royalty pays seller 950_000, creator 25_000,
// platform 25_000, and moves the asset to the buyer.
func TestBuyNFT_Settlement(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	assetID := f.mintFor(t, "seller", 7)

	id, err := f.market.ListNFT(ctx, "seller", assetID, 1_000_000)
	if err != nil {
		t.Fatalf("ListNFT failed: %v", err)
	}

	if err := f.market.BuyNFT(ctx, id, "buyer", 1_000_000); err != nil {
		t.Fatalf("BuyNFT failed: %v", err)
	}

	holder, _ := f.reg.HolderOf(assetID)
	if holder != "buyer" {
		t.Errorf("holder = %s, want buyer", holder)
	}
	// Seller minted the asset, so the royalty leg lands on the same account:
	// 950_000 net plus 25_000 royalty.
	if got := f.book.BalanceOf("seller"); got != 975_000 {
		t.Errorf("seller proceeds = %d, want 975000", got)
	}
	if got := f.book.BalanceOf("treasury"); got != 25_000 {
		t.Errorf("platform fee = %d, want 25000", got)
	}

	l, _ := f.market.GetActiveListing(id)
	if l.Active {
		t.Error("listing should be terminal after sale")
	}

	// Terminal listing cannot settle twice
	if err := f.market.BuyNFT(ctx, id, "buyer2", 1_000_000); domain.CodeOf(err) != domain.CodeAlreadyFinalized {
		t.Errorf("double settlement: expected ALREADY_FINALIZED, got %v", err)
	}
}

func TestBuyNFT_RoyaltyToCreator(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// creator mints, then the asset changes hands to seller before listing
	assetID := f.mintFor(t, "creator", 0)
	if err := f.reg.TransferFrom("creator", "creator", "seller", assetID); err != nil {
		t.Fatal(err)
	}
	if err := f.reg.ApproveAll(ctx, "seller", "market", true); err != nil {
		t.Fatal(err)
	}

	id, err := f.market.ListNFT(ctx, "seller", assetID, 1_000_000)
	if err != nil {
		t.Fatalf("ListNFT failed: %v", err)
	}
	if err := f.market.BuyNFT(ctx, id, "buyer", 1_000_000); err != nil {
		t.Fatalf("BuyNFT failed: %v", err)
	}

	seller := f.book.BalanceOf("seller")
	creator := f.book.BalanceOf("creator")
	fee := f.book.BalanceOf("treasury")
	if seller != 950_000 || creator != 25_000 || fee != 25_000 {
		t.Errorf("split = %d/%d/%d, want 950000/25000/25000", seller, creator, fee)
	}
	if seller+creator+fee != 1_000_000 {
		t.Errorf("legs sum to %d, want the full price", seller+creator+fee)
	}
}

func TestBuyNFT_Preconditions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	assetID := f.mintFor(t, "seller", 0)

	id, err := f.market.ListNFT(ctx, "seller", assetID, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.market.BuyNFT(ctx, 42, "buyer", 1_000_000); domain.CodeOf(err) != domain.CodeNotFound {
		t.Errorf("unknown listing: expected NOT_FOUND, got %v", err)
	}
	if err := f.market.BuyNFT(ctx, id, "seller", 1_000_000); domain.CodeOf(err) != domain.CodeSelfTrade {
		t.Errorf("self trade: expected SELF_TRADE, got %v", err)
	}
	if err := f.market.BuyNFT(ctx, id, "buyer", 999_999); domain.CodeOf(err) != domain.CodeInvalidInput {
		t.Errorf("underpayment: expected INVALID_INPUT, got %v", err)
	}
	if err := f.market.BuyNFT(ctx, id, "buyer", 1_000_001); domain.CodeOf(err) != domain.CodeInvalidInput {
		t.Errorf("overpayment: expected INVALID_INPUT, got %v", err)
	}

	// Nothing should have settled
	holder, _ := f.reg.HolderOf(assetID)
	if holder != "seller" {
		t.Errorf("holder = %s, want seller", holder)
	}
	if got := f.book.BalanceOf("seller"); got != 0 {
		t.Errorf("seller balance = %d, want 0", got)
	}
}

// A disbursement leg that cannot be credited rolls the ownership move back:
// the operation is all-or-nothing.
func TestBuyNFT_DistributionRollback(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	assetID := f.mintFor(t, "seller", 0)

	id, err := f.market.ListNFT(ctx, "seller", assetID, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}

	// Saturate the treasury cell so the fee leg cannot be credited.
	f.book.Get("treasury").Credit(math.MaxInt64 - 10)

	err = f.market.BuyNFT(ctx, id, "buyer", 1_000_000)
	if domain.CodeOf(err) != domain.CodePaymentDistributionFailed {
		t.Fatalf("expected PAYMENT_DISTRIBUTION_FAILED, got %v", err)
	}

	holder, _ := f.reg.HolderOf(assetID)
	if holder != "seller" {
		t.Errorf("ownership must roll back, holder = %s", holder)
	}
	l, _ := f.market.GetActiveListing(id)
	if !l.Active {
		t.Error("listing must remain active after failed settlement")
	}
	if got := f.book.BalanceOf("seller"); got != 0 {
		t.Errorf("no leg may persist, seller = %d", got)
	}
}

func TestCancelListing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	assetID := f.mintFor(t, "seller", 0)

	id, err := f.market.ListNFT(ctx, "seller", assetID, 100)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.market.CancelListing(ctx, id, "mallory"); domain.CodeOf(err) != domain.CodeNotOwner {
		t.Errorf("wrong caller: expected NOT_OWNER, got %v", err)
	}
	if err := f.market.CancelListing(ctx, id, "seller"); err != nil {
		t.Fatalf("CancelListing failed: %v", err)
	}

	l, _ := f.market.GetActiveListing(id)
	if l.Active {
		t.Error("listing should be inactive after cancel")
	}

	// Terminal states reject everything
	if err := f.market.CancelListing(ctx, id, "seller"); domain.CodeOf(err) != domain.CodeAlreadyFinalized {
		t.Errorf("double cancel: expected ALREADY_FINALIZED, got %v", err)
	}
	if err := f.market.UpdatePrice(ctx, id, "seller", 200); domain.CodeOf(err) != domain.CodeAlreadyFinalized {
		t.Errorf("reprice after cancel: expected ALREADY_FINALIZED, got %v", err)
	}

	// The asset can be listed again after cancellation
	if _, err := f.market.ListNFT(ctx, "seller", assetID, 200); err != nil {
		t.Errorf("relist after cancel failed: %v", err)
	}
}

func TestUpdatePrice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	assetID := f.mintFor(t, "seller", 0)

	id, err := f.market.ListNFT(ctx, "seller", assetID, 100)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.market.UpdatePrice(ctx, id, "seller", 0); domain.CodeOf(err) != domain.CodeInvalidInput {
		t.Errorf("zero price: expected INVALID_INPUT, got %v", err)
	}
	if err := f.market.UpdatePrice(ctx, id, "mallory", 200); domain.CodeOf(err) != domain.CodeNotOwner {
		t.Errorf("wrong caller: expected NOT_OWNER, got %v", err)
	}
	if err := f.market.UpdatePrice(ctx, id, "seller", 200); err != nil {
		t.Fatalf("UpdatePrice failed: %v", err)
	}

	l, _ := f.market.GetActiveListing(id)
	if l.Price != 200 {
		t.Errorf("price = %d, want 200", l.Price)
	}
}

// Replaying the journal through the apply paths rebuilds identical state.
func TestMarket_Replay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var journaled []event.Event
	f.journal.Subscribe(func(ev event.Event) {
		journaled = append(journaled, ev)
	})

	assetID := f.mintFor(t, "seller", 0)
	id, err := f.market.ListNFT(ctx, "seller", assetID, 1_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.market.UpdatePrice(ctx, id, "seller", 2_000_000); err != nil {
		t.Fatal(err)
	}
	if err := f.market.BuyNFT(ctx, id, "buyer", 2_000_000); err != nil {
		t.Fatal(err)
	}

	// Fresh engines, same journal contents
	f2 := newFixture()
	for _, ev := range journaled {
		switch e := ev.(type) {
		case *event.AssetMintedEvent:
			f2.reg.ApplyMint(e)
		case *event.ApprovalSetEvent:
			f2.reg.ApplyApproval(e)
		case *event.ListedEvent:
			f2.market.ApplyListed(e)
		case *event.PriceUpdatedEvent:
			f2.market.ApplyPriceUpdated(e)
		case *event.SaleEvent:
			f2.market.ApplySale(e)
		default:
			t.Fatalf("unexpected event type %T", ev)
		}
	}

	holder, _ := f2.reg.HolderOf(assetID)
	if holder != "buyer" {
		t.Errorf("replayed holder = %s, want buyer", holder)
	}
	l, err := f2.market.GetActiveListing(id)
	if err != nil {
		t.Fatalf("replayed listing missing: %v", err)
	}
	if l.Active {
		t.Error("replayed listing should be terminal")
	}
	if got := f2.book.BalanceOf("seller"); got != f.book.BalanceOf("seller") {
		t.Errorf("replayed seller balance = %d, want %d", got, f.book.BalanceOf("seller"))
	}
	if got := f2.book.BalanceOf("treasury"); got != f.book.BalanceOf("treasury") {
		t.Errorf("replayed treasury balance = %d, want %d", got, f.book.BalanceOf("treasury"))
	}
}
