package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"aura_go/internal/auction"
	"aura_go/internal/domain"
	"aura_go/internal/infra"
	"aura_go/internal/market"
	"aura_go/internal/registry"
	"aura_go/internal/storage"
)

// stepClock lets the scenario jump past the auction window without waiting.
type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time          { return c.t }
func (c *stepClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func must(err error) {
	if err != nil {
		slog.Error("❌ Scenario step failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// Runs the two settlement flows end to end against an in-memory journal:
// a fixed-price sale, then an ascending auction with an outbid and escrow
// withdrawal.
func main() {
	defer infra.Recover("scenario")

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Starting settlement scenario...")

	ctx := context.Background()
	clock := &stepClock{t: time.Now()}
	journal := storage.NewJournal(nil, 0)

	book := domain.NewBalanceBook()
	reg := registry.New(journal, clock, 250)
	mkt := market.New(reg, book, journal, clock, market.Config{
		FeeBps:   250,
		Treasury: "treasury",
		Operator: "market",
	})
	eng := auction.New(reg, book, journal, clock, auction.Config{
		FeeBps:   250,
		Treasury: "treasury",
		Operator: "auction",
	})

	// --- Fixed-price flow ---
	slog.Info("STEP 1: Mint and list")
	assetID, err := reg.Mint(ctx, "alice", "ipfs://aura/genesis-0")
	must(err)
	must(reg.ApproveAll(ctx, "alice", "market", true))
	listingID, err := mkt.ListNFT(ctx, "alice", assetID, 1_000_000)
	must(err)

	slog.Info("STEP 2: Buy")
	must(mkt.BuyNFT(ctx, listingID, "bob", 1_000_000))
	holder, _ := reg.HolderOf(assetID)
	slog.Info("✅ Sale settled",
		slog.String("holder", string(holder)),
		slog.Int64("alice", int64(book.BalanceOf("alice"))),
		slog.Int64("treasury", int64(book.BalanceOf("treasury"))))

	// --- Auction flow ---
	slog.Info("STEP 3: Open auction")
	must(reg.ApproveAll(ctx, "bob", "auction", true))
	auctionID, err := eng.CreateAuction(ctx, "bob", assetID, 2_000_000, 2*time.Hour)
	must(err)

	slog.Info("STEP 4: Bidding war")
	must(eng.PlaceBid(ctx, auctionID, "carol", 2_000_000))
	must(eng.PlaceBid(ctx, auctionID, "dave", 3_000_000))

	slog.Info("STEP 5: Outbid withdrawal")
	refund, err := eng.WithdrawBid(ctx, auctionID, "carol")
	must(err)
	slog.Info("✅ Escrow returned", slog.Int64("carol_refund", int64(refund)))

	slog.Info("STEP 6: Finalize")
	clock.Advance(2 * time.Hour)
	must(eng.EndAuction(ctx, auctionID, "anyone"))

	winner, _ := reg.HolderOf(assetID)
	slog.Info("✅ Auction settled",
		slog.String("winner", string(winner)),
		slog.Int64("bob", int64(book.BalanceOf("bob"))),
		slog.Int64("alice_royalty_total", int64(book.BalanceOf("alice"))),
		slog.Int64("treasury", int64(book.BalanceOf("treasury"))))

	book.VerifyAll()
	slog.Info("🎉 Scenario passed!", slog.Uint64("events", journal.LastSeq()))
}
