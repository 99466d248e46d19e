// Package app wires the settlement system together: config, storage, the
// shared journal, the three engines and the event feed, plus crash recovery
// from snapshot and journal tail.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"aura_go/internal/auction"
	"aura_go/internal/domain"
	"aura_go/internal/event"
	"aura_go/internal/gateway"
	"aura_go/internal/infra"
	"aura_go/internal/market"
	"aura_go/internal/registry"
	"aura_go/internal/storage"
	"aura_go/pkg/money"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config     *infra.Config
	EventStore *storage.EventStore
	Journal    *storage.Journal
	Snapshots  *storage.SnapshotManager

	Registry *registry.Registry
	Market   *market.Market
	Auction  *auction.Engine
	Book     *domain.BalanceBook
	Feed     *gateway.Hub

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, workspace, journal
// database, engines and state recovery.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	slog.Info("🚀 Bootstrapping AuraVerse settlement engine...")

	// 1. Load Config (Dynamic Path Resolution)
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	infra.NewLogger(cfg.Logging.Level)

	// 3. Workspace layout: _workspace/data/{events.db,snapshots}
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data")
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// 3.1 Singleton instance lock. Two processes on one journal means a
	// corrupted sequence, so fail fast.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Journal database (single-writer WAL)
	dbPath := filepath.Join(dataDir, "events.db")
	evStore, err := storage.NewEventStore(dbPath)
	if err != nil {
		return err
	}
	b.EventStore = evStore
	slog.Info("✅ EventStore initialized (WAL-mode)", "path", dbPath)

	lastSeq, err := evStore.GetLastSeq(ctx)
	if err != nil {
		return err
	}
	b.Journal = storage.NewJournal(evStore, lastSeq)
	b.Snapshots = storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))

	// 5. Engines share one journal and one funds book
	b.Book = domain.NewBalanceBook()
	b.Registry = registry.New(b.Journal, infra.SystemClock{}, money.Bps(cfg.Engine.RoyaltyBps))
	b.Market = market.New(b.Registry, b.Book, b.Journal, infra.SystemClock{}, market.Config{
		FeeBps:   money.Bps(cfg.Engine.PlatformFeeBps),
		Treasury: domain.Principal(cfg.Engine.Treasury),
		Operator: domain.Principal(cfg.Engine.MarketOperator),
	})
	b.Auction = auction.New(b.Registry, b.Book, b.Journal, infra.SystemClock{}, auction.Config{
		FeeBps:   money.Bps(cfg.Engine.PlatformFeeBps),
		Treasury: domain.Principal(cfg.Engine.Treasury),
		Operator: domain.Principal(cfg.Engine.AuctionOperator),
	})

	// 6. Recover state: newest snapshot plus the journal tail
	if err := b.recover(ctx); err != nil {
		return fmt.Errorf("state recovery failed: %w", err)
	}

	// 7. Event feed (optional)
	if cfg.Feed.ListenAddr != "" {
		b.Feed = gateway.NewHub(cfg.Feed.MaxClients, infra.NewRateLimiter(cfg.Feed.MaxClients, cfg.Feed.ConnectsPerSec))
		b.Journal.Subscribe(b.Feed.Publish)
	}

	now := time.Now()
	if err := evStore.UpsertMetadata(ctx, "last_boot_unix", strconv.FormatInt(now.Unix(), 10), now.UnixMicro()); err != nil {
		slog.Warn("Failed to record boot marker", slog.Any("error", err))
	}

	slog.Info("✨ Engines ready",
		slog.Uint64("journal_seq", b.Journal.LastSeq()),
		slog.Uint64("assets", b.Registry.TotalAssets()))
	return nil
}

// recover loads the newest snapshot and replays the journal tail after it.
// Replay goes through the same apply paths the live engines use, so recovered
// state is bit-identical to what the process held before it died.
func (b *Bootstrap) recover(ctx context.Context) error {
	fromSeq := uint64(1)

	snap, err := b.Snapshots.LoadLatest()
	if err != nil {
		return err
	}
	if snap != nil {
		b.Registry.RestoreState(snap.Registry)
		b.Market.RestoreState(snap.Market)
		b.Auction.RestoreState(snap.Auction)
		b.Book.Restore(snap.Balances)
		fromSeq = uint64(snap.Seq) + 1
	}

	events, err := b.EventStore.LoadEvents(ctx, fromSeq)
	if err != nil {
		return err
	}
	for _, ev := range events {
		b.apply(ev)
	}

	if len(events) > 0 {
		slog.Info("🔁 Journal tail replayed",
			slog.Uint64("from_seq", fromSeq),
			slog.Int("events", len(events)))
	}
	b.Book.VerifyAll()
	return nil
}

// apply dispatches one journaled event to its owning engine.
func (b *Bootstrap) apply(ev event.Event) {
	switch e := ev.(type) {
	case *event.AssetMintedEvent:
		b.Registry.ApplyMint(e)
	case *event.ApprovalSetEvent:
		b.Registry.ApplyApproval(e)
	case *event.RoyaltySetEvent:
		b.Registry.ApplyRoyalty(e)
	case *event.ListedEvent:
		b.Market.ApplyListed(e)
	case *event.PriceUpdatedEvent:
		b.Market.ApplyPriceUpdated(e)
	case *event.ListingCanceledEvent:
		b.Market.ApplyListingCanceled(e)
	case *event.SaleEvent:
		b.Market.ApplySale(e)
	case *event.AuctionCreatedEvent:
		b.Auction.ApplyAuctionCreated(e)
	case *event.BidPlacedEvent:
		b.Auction.ApplyBidPlaced(e)
	case *event.BidWithdrawnEvent:
		b.Auction.ApplyBidWithdrawn(e)
	case *event.AuctionCanceledEvent:
		b.Auction.ApplyAuctionCanceled(e)
	case *event.AuctionEndedEvent:
		b.Auction.ApplyAuctionEnded(e)
	default:
		panic(fmt.Sprintf("RECOVERY_UNKNOWN_EVENT: %T", ev))
	}
}

// Shutdown snapshots the current state, prunes old snapshots and releases
// resources. Safe to call once after the engines have gone quiet.
func (b *Bootstrap) Shutdown(ctx context.Context) {
	now := time.Now()

	snap := &storage.Snapshot{
		Seq:      int64(b.Journal.LastSeq()),
		TsUnix:   now.Unix(),
		Registry: b.Registry.ExportState(),
		Market:   b.Market.ExportState(),
		Auction:  b.Auction.ExportState(),
		Balances: b.Book.Snapshot(),
	}
	if err := b.Snapshots.Save(snap); err != nil {
		slog.Error("Failed to save shutdown snapshot", slog.Any("error", err))
	} else if err := b.Snapshots.Cleanup(b.Config.Storage.SnapshotKeep); err != nil {
		slog.Warn("Snapshot cleanup failed", slog.Any("error", err))
	}

	if b.Feed != nil {
		b.Feed.Close()
	}
	if err := b.EventStore.UpsertMetadata(ctx, "last_shutdown_unix", strconv.FormatInt(now.Unix(), 10), now.UnixMicro()); err != nil {
		slog.Warn("Failed to record shutdown marker", slog.Any("error", err))
	}
	if err := b.EventStore.Close(); err != nil {
		slog.Warn("EventStore close failed", slog.Any("error", err))
	}
	if b.unlock != nil {
		b.unlock()
	}
}
