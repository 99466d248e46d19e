// Package auction is the time-boxed ascending-bid sale engine. Creating an
// auction moves the asset into engine custody; it leaves only through
// finalization to the winner, or back to the seller on cancellation or a
// no-bid expiry. Outbid funds sit in per-auction escrow until the bidder
// withdraws them.
package auction

import (
	"context"
	"sync"
	"time"

	"aura_go/internal/domain"
	"aura_go/internal/event"
	"aura_go/internal/infra"
	"aura_go/internal/storage"
	"aura_go/pkg/money"
	"aura_go/pkg/safe"
)

// Registry is the slice of the asset registry the auction engine needs.
type Registry interface {
	HolderOf(id domain.AssetID) (domain.Principal, error)
	IsApproved(owner, operator domain.Principal) bool
	RoyaltyInfo(id domain.AssetID, salePrice money.Amount) (domain.Principal, money.Amount, error)
	TransferFrom(operator, from, to domain.Principal, id domain.AssetID) error
	ApplyTransfer(id domain.AssetID, to domain.Principal)
}

// Config carries the auction engine's settlement parameters.
type Config struct {
	FeeBps   money.Bps        // platform fee on winning bids
	Treasury domain.Principal // fee recipient
	Operator domain.Principal // the engine's own custody identity
}

type escrowKey struct {
	auction domain.AuctionID
	bidder  domain.Principal
}

// Engine runs all auctions. One mutex serializes auction mutations; reads
// copy records out under the read lock.
type Engine struct {
	mu       sync.RWMutex
	auctions map[domain.AuctionID]*domain.Auction
	bids     map[domain.AuctionID][]domain.Bid
	escrow   map[escrowKey]money.Amount
	nextID   uint64

	registry Registry
	book     *domain.BalanceBook
	journal  *storage.Journal
	clock    infra.Clock
	cfg      Config
}

// New creates an engine with no auctions.
func New(reg Registry, book *domain.BalanceBook, journal *storage.Journal, clock infra.Clock, cfg Config) *Engine {
	return &Engine{
		auctions: make(map[domain.AuctionID]*domain.Auction),
		bids:     make(map[domain.AuctionID][]domain.Bid),
		escrow:   make(map[escrowKey]money.Amount),
		registry: reg,
		book:     book,
		journal:  journal,
		clock:    clock,
		cfg:      cfg,
	}
}

// CreateAuction opens an ascending auction and takes the asset into engine
// custody. The window runs from now for at least MinAuctionDuration.
func (e *Engine) CreateAuction(ctx context.Context, seller domain.Principal, assetID domain.AssetID, startPrice money.Amount, duration time.Duration) (domain.AuctionID, error) {
	const op = "auction.createAuction"

	if startPrice <= 0 {
		return 0, domain.E(domain.CodeInvalidInput, op, "start price must be > 0")
	}
	if duration < domain.MinAuctionDuration {
		return 0, domain.E(domain.CodeInvalidInput, op, "duration %s is below the %s minimum", duration, domain.MinAuctionDuration)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	holder, err := e.registry.HolderOf(assetID)
	if err != nil {
		return 0, err
	}
	if holder != seller {
		return 0, domain.E(domain.CodeNotOwner, op, "asset %d is not held by %s", assetID, seller)
	}
	if !e.registry.IsApproved(seller, e.cfg.Operator) {
		return 0, domain.E(domain.CodeNotApproved, op, "auction engine lacks custody authority over assets of %s", seller)
	}

	// Custody moves to the engine for the lifetime of the auction.
	if err := e.registry.TransferFrom(e.cfg.Operator, seller, e.cfg.Operator, assetID); err != nil {
		return 0, err
	}

	now := e.clock.Now()
	id := domain.AuctionID(e.nextID)
	e.nextID++
	e.auctions[id] = &domain.Auction{
		ID:         id,
		AssetID:    assetID,
		Seller:     seller,
		StartPrice: startPrice,
		StartTime:  now,
		EndTime:    now.Add(duration),
	}

	e.journal.Append(ctx, now, func(base event.BaseEvent) event.Event {
		return &event.AuctionCreatedEvent{
			BaseEvent:  base,
			AuctionID:  id,
			AssetID:    assetID,
			Seller:     seller,
			StartPrice: startPrice,
			StartUnixM: now.UnixMicro(),
			EndUnixM:   now.Add(duration).UnixMicro(),
		}
	})

	return id, nil
}

// PlaceBid accepts a bid strictly above the current highest (or at least the
// start price for the first bid). The superseded highest bid moves to that
// bidder's escrow.
func (e *Engine) PlaceBid(ctx context.Context, auctionID domain.AuctionID, bidder domain.Principal, amount money.Amount) error {
	const op = "auction.placeBid"

	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.auctions[auctionID]
	if !ok {
		return domain.E(domain.CodeNotFound, op, "unknown auction %d", auctionID)
	}
	if a.Terminal() {
		return domain.E(domain.CodeAlreadyFinalized, op, "auction %d is finalized", auctionID)
	}
	now := e.clock.Now()
	if !now.Before(a.EndTime) {
		return domain.E(domain.CodeAlreadyFinalized, op, "auction %d window is closed", auctionID)
	}
	if bidder == a.Seller {
		return domain.E(domain.CodeSelfTrade, op, "seller cannot bid on own auction")
	}
	if a.HighestBidder == "" {
		if amount < a.StartPrice {
			return domain.E(domain.CodeBelowStartPrice, op, "bid %d is below start price %d", amount, a.StartPrice)
		}
	} else if amount <= a.HighestBid {
		return domain.E(domain.CodeBidTooLow, op, "bid %d does not beat %d", amount, a.HighestBid)
	}

	prevBidder, prevAmount := a.HighestBidder, a.HighestBid
	if prevBidder != "" {
		e.creditEscrow(auctionID, prevBidder, prevAmount)
	}

	a.HighestBidder = bidder
	a.HighestBid = amount
	e.bids[auctionID] = append(e.bids[auctionID], domain.Bid{
		Bidder:    bidder,
		Amount:    amount,
		Timestamp: now,
	})

	e.journal.Append(ctx, now, func(base event.BaseEvent) event.Event {
		return &event.BidPlacedEvent{
			BaseEvent:  base,
			AuctionID:  auctionID,
			Bidder:     bidder,
			Amount:     amount,
			PrevBidder: prevBidder,
			PrevAmount: prevAmount,
		}
	})

	return nil
}

// WithdrawBid pays out the caller's escrowed funds for one auction and
// returns the amount. A zero escrow balance is a no-op success; the current
// highest bid is not withdrawable.
func (e *Engine) WithdrawBid(ctx context.Context, auctionID domain.AuctionID, bidder domain.Principal) (money.Amount, error) {
	const op = "auction.withdrawBid"

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.auctions[auctionID]; !ok {
		return 0, domain.E(domain.CodeNotFound, op, "unknown auction %d", auctionID)
	}

	key := escrowKey{auction: auctionID, bidder: bidder}
	amount := e.escrow[key]
	if amount == 0 {
		return 0, nil
	}

	// Zero the entry before paying so a re-entrant caller sees nothing left.
	delete(e.escrow, key)
	if !e.book.CreditAll([]domain.Payout{{Account: bidder, Amount: amount}}) {
		e.escrow[key] = amount
		return 0, domain.E(domain.CodePaymentDistributionFailed, op, "escrow payout of %d to %s rejected", amount, bidder)
	}

	e.journal.Append(ctx, e.clock.Now(), func(base event.BaseEvent) event.Event {
		return &event.BidWithdrawnEvent{
			BaseEvent: base,
			AuctionID: auctionID,
			Bidder:    bidder,
			Amount:    amount,
		}
	})

	return amount, nil
}

// CancelAuction closes a bidless auction and returns the asset to the seller.
// Only the seller may cancel, and only while no bid has been accepted.
func (e *Engine) CancelAuction(ctx context.Context, auctionID domain.AuctionID, caller domain.Principal) error {
	const op = "auction.cancelAuction"

	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.auctions[auctionID]
	if !ok {
		return domain.E(domain.CodeNotFound, op, "unknown auction %d", auctionID)
	}
	if a.Terminal() {
		return domain.E(domain.CodeAlreadyFinalized, op, "auction %d is finalized", auctionID)
	}
	if caller != a.Seller {
		return domain.E(domain.CodeNotOwner, op, "only the seller may cancel auction %d", auctionID)
	}
	if a.HighestBidder != "" {
		return domain.E(domain.CodeBidsExist, op, "auction %d has accepted bids", auctionID)
	}

	if err := e.registry.TransferFrom(e.cfg.Operator, e.cfg.Operator, a.Seller, a.AssetID); err != nil {
		return err
	}
	a.Canceled = true

	e.journal.Append(ctx, e.clock.Now(), func(base event.BaseEvent) event.Event {
		return &event.AuctionCanceledEvent{
			BaseEvent: base,
			AuctionID: auctionID,
			AssetID:   a.AssetID,
			Seller:    a.Seller,
		}
	})

	return nil
}

// EndAuction finalizes an auction whose window has closed. Anyone may call
// it. With a winner the highest bid splits into seller proceeds, creator
// royalty and platform fee and the asset moves to the winner; without bids
// the asset returns to the seller.
func (e *Engine) EndAuction(ctx context.Context, auctionID domain.AuctionID, caller domain.Principal) error {
	const op = "auction.endAuction"

	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.auctions[auctionID]
	if !ok {
		return domain.E(domain.CodeNotFound, op, "unknown auction %d", auctionID)
	}
	if a.Terminal() {
		return domain.E(domain.CodeAlreadyFinalized, op, "auction %d is finalized", auctionID)
	}
	now := e.clock.Now()
	if now.Before(a.EndTime) {
		return domain.E(domain.CodeTooEarly, op, "auction %d runs until %s", auctionID, a.EndTime)
	}

	if a.HighestBidder == "" {
		// Expired with no bids: asset back to the seller.
		if err := e.registry.TransferFrom(e.cfg.Operator, e.cfg.Operator, a.Seller, a.AssetID); err != nil {
			return err
		}
		a.Ended = true

		e.journal.Append(ctx, now, func(base event.BaseEvent) event.Event {
			return &event.AuctionEndedEvent{
				BaseEvent: base,
				AuctionID: auctionID,
				AssetID:   a.AssetID,
				Seller:    a.Seller,
			}
		})
		return nil
	}

	creator, royalty, err := e.registry.RoyaltyInfo(a.AssetID, a.HighestBid)
	if err != nil {
		return err
	}
	split, ok := money.SplitProceeds(a.HighestBid, royalty, e.cfg.FeeBps)
	if !ok {
		return domain.E(domain.CodePaymentDistributionFailed, op, "winning bid %d cannot be split", a.HighestBid)
	}

	if err := e.registry.TransferFrom(e.cfg.Operator, e.cfg.Operator, a.HighestBidder, a.AssetID); err != nil {
		return err
	}

	legs := []domain.Payout{
		{Account: a.Seller, Amount: split.SellerNet},
		{Account: creator, Amount: split.Royalty},
		{Account: e.cfg.Treasury, Amount: split.Fee},
	}
	if !e.book.CreditAll(legs) {
		e.registry.ApplyTransfer(a.AssetID, e.cfg.Operator)
		return domain.E(domain.CodePaymentDistributionFailed, op, "payout legs for auction %d rejected", auctionID)
	}

	a.Ended = true

	e.journal.Append(ctx, now, func(base event.BaseEvent) event.Event {
		return &event.AuctionEndedEvent{
			BaseEvent: base,
			AuctionID: auctionID,
			AssetID:   a.AssetID,
			Seller:    a.Seller,
			Winner:    a.HighestBidder,
			Creator:   creator,
			Amount:    a.HighestBid,
			SellerNet: split.SellerNet,
			Royalty:   split.Royalty,
			Fee:       split.Fee,
		}
	})

	return nil
}

// GetAuction returns the auction record whether or not it is terminal.
func (e *Engine) GetAuction(auctionID domain.AuctionID) (domain.Auction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a, ok := e.auctions[auctionID]
	if !ok {
		return domain.Auction{}, domain.E(domain.CodeNotFound, "auction.getAuction", "unknown auction %d", auctionID)
	}
	return *a, nil
}

// GetAuctionBids returns the accepted bid history in order.
func (e *Engine) GetAuctionBids(auctionID domain.AuctionID) ([]domain.Bid, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, ok := e.auctions[auctionID]; !ok {
		return nil, domain.E(domain.CodeNotFound, "auction.getAuctionBids", "unknown auction %d", auctionID)
	}
	out := make([]domain.Bid, len(e.bids[auctionID]))
	copy(out, e.bids[auctionID])
	return out, nil
}

// EscrowBalance returns the withdrawable escrow of one bidder on one auction.
func (e *Engine) EscrowBalance(auctionID domain.AuctionID, bidder domain.Principal) money.Amount {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.escrow[escrowKey{auction: auctionID, bidder: bidder}]
}

func (e *Engine) creditEscrow(auctionID domain.AuctionID, bidder domain.Principal, amount money.Amount) {
	key := escrowKey{auction: auctionID, bidder: bidder}
	e.escrow[key] = money.Amount(safe.SafeAdd(int64(e.escrow[key]), int64(amount)))
}

// ApplyAuctionCreated re-applies a journaled auction creation, including the
// custody move into the engine.
func (e *Engine) ApplyAuctionCreated(ev *event.AuctionCreatedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.auctions[ev.AuctionID] = &domain.Auction{
		ID:         ev.AuctionID,
		AssetID:    ev.AssetID,
		Seller:     ev.Seller,
		StartPrice: ev.StartPrice,
		StartTime:  time.UnixMicro(ev.StartUnixM),
		EndTime:    time.UnixMicro(ev.EndUnixM),
	}
	if uint64(ev.AuctionID) >= e.nextID {
		e.nextID = uint64(ev.AuctionID) + 1
	}
	e.registry.ApplyTransfer(ev.AssetID, e.cfg.Operator)
}

// ApplyBidPlaced re-applies a journaled bid, moving the superseded bid into
// escrow exactly as the live path did.
func (e *Engine) ApplyBidPlaced(ev *event.BidPlacedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.auctions[ev.AuctionID]
	if !ok {
		panic("REPLAY_UNKNOWN_AUCTION")
	}
	if ev.PrevBidder != "" {
		e.creditEscrow(ev.AuctionID, ev.PrevBidder, ev.PrevAmount)
	}
	a.HighestBidder = ev.Bidder
	a.HighestBid = ev.Amount
	e.bids[ev.AuctionID] = append(e.bids[ev.AuctionID], domain.Bid{
		Bidder:    ev.Bidder,
		Amount:    ev.Amount,
		Timestamp: time.UnixMicro(ev.GetTs()),
	})
}

// ApplyBidWithdrawn re-applies a journaled escrow payout.
func (e *Engine) ApplyBidWithdrawn(ev *event.BidWithdrawnEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.escrow, escrowKey{auction: ev.AuctionID, bidder: ev.Bidder})
	if !e.book.CreditAll([]domain.Payout{{Account: ev.Bidder, Amount: ev.Amount}}) {
		panic("REPLAY_CREDIT_FAILURE")
	}
}

// ApplyAuctionCanceled re-applies a journaled cancellation.
func (e *Engine) ApplyAuctionCanceled(ev *event.AuctionCanceledEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.auctions[ev.AuctionID]
	if !ok {
		panic("REPLAY_UNKNOWN_AUCTION")
	}
	a.Canceled = true
	e.registry.ApplyTransfer(ev.AssetID, ev.Seller)
}

// ApplyAuctionEnded re-applies a journaled finalization, with or without a
// winner.
func (e *Engine) ApplyAuctionEnded(ev *event.AuctionEndedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.auctions[ev.AuctionID]
	if !ok {
		panic("REPLAY_UNKNOWN_AUCTION")
	}
	a.Ended = true

	if ev.Winner == "" {
		e.registry.ApplyTransfer(ev.AssetID, ev.Seller)
		return
	}
	e.registry.ApplyTransfer(ev.AssetID, ev.Winner)
	if !e.book.CreditAll([]domain.Payout{
		{Account: ev.Seller, Amount: ev.SellerNet},
		{Account: ev.Creator, Amount: ev.Royalty},
		{Account: e.cfg.Treasury, Amount: ev.Fee},
	}) {
		panic("REPLAY_CREDIT_FAILURE")
	}
}

// ExportState copies the engine state for a snapshot.
func (e *Engine) ExportState() storage.AuctionState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := storage.AuctionState{
		NextAuctionID: e.nextID,
		Auctions:      make([]domain.Auction, 0, len(e.auctions)),
		Bids:          make(map[domain.AuctionID][]domain.Bid, len(e.bids)),
		Escrow:        make([]domain.EscrowEntry, 0, len(e.escrow)),
	}
	for _, a := range e.auctions {
		st.Auctions = append(st.Auctions, *a)
	}
	for id, bids := range e.bids {
		out := make([]domain.Bid, len(bids))
		copy(out, bids)
		st.Bids[id] = out
	}
	for key, amount := range e.escrow {
		st.Escrow = append(st.Escrow, domain.EscrowEntry{
			AuctionID: key.auction,
			Bidder:    key.bidder,
			Amount:    amount,
		})
	}
	return st
}

// RestoreState replaces the engine state from a snapshot.
func (e *Engine) RestoreState(st storage.AuctionState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID = st.NextAuctionID
	e.auctions = make(map[domain.AuctionID]*domain.Auction, len(st.Auctions))
	for _, a := range st.Auctions {
		auction := a
		e.auctions[a.ID] = &auction
	}
	e.bids = make(map[domain.AuctionID][]domain.Bid, len(st.Bids))
	for id, bids := range st.Bids {
		in := make([]domain.Bid, len(bids))
		copy(in, bids)
		e.bids[id] = in
	}
	e.escrow = make(map[escrowKey]money.Amount, len(st.Escrow))
	for _, entry := range st.Escrow {
		e.escrow[escrowKey{auction: entry.AuctionID, bidder: entry.Bidder}] = entry.Amount
	}
}
