// Package market is the fixed-price sale engine. A listing moves
// None -> Active -> {Sold, Canceled}; buying settles atomically: the asset
// moves seller -> buyer and the price splits into seller proceeds, creator
// royalty and platform fee in one unit, or nothing happens at all.
package market

import (
	"context"
	"sync"

	"aura_go/internal/domain"
	"aura_go/internal/event"
	"aura_go/internal/infra"
	"aura_go/internal/storage"
	"aura_go/pkg/money"
)

// Registry is the slice of the asset registry the marketplace needs.
type Registry interface {
	HolderOf(id domain.AssetID) (domain.Principal, error)
	IsApproved(owner, operator domain.Principal) bool
	RoyaltyInfo(id domain.AssetID, salePrice money.Amount) (domain.Principal, money.Amount, error)
	TransferFrom(operator, from, to domain.Principal, id domain.AssetID) error
	ApplyTransfer(id domain.AssetID, to domain.Principal)
}

// Config carries the marketplace's settlement parameters.
type Config struct {
	FeeBps   money.Bps        // platform fee on every sale
	Treasury domain.Principal // fee recipient
	Operator domain.Principal // the marketplace's own custody identity
}

// Market is the fixed-price listing engine. One mutex serializes all listing
// mutations; reads copy records out under the read lock.
type Market struct {
	mu            sync.RWMutex
	listings      map[domain.ListingID]*domain.Listing
	activeByAsset map[domain.AssetID]domain.ListingID
	nextID        uint64

	registry Registry
	book     *domain.BalanceBook
	journal  *storage.Journal
	clock    infra.Clock
	cfg      Config
}

// New creates an empty marketplace.
func New(reg Registry, book *domain.BalanceBook, journal *storage.Journal, clock infra.Clock, cfg Config) *Market {
	return &Market{
		listings:      make(map[domain.ListingID]*domain.Listing),
		activeByAsset: make(map[domain.AssetID]domain.ListingID),
		registry:      reg,
		book:          book,
		journal:       journal,
		clock:         clock,
		cfg:           cfg,
	}
}

// ListNFT creates an active listing for an asset the seller holds and has
// granted the marketplace custody over.
func (m *Market) ListNFT(ctx context.Context, seller domain.Principal, assetID domain.AssetID, price money.Amount) (domain.ListingID, error) {
	const op = "market.listNFT"

	if price <= 0 {
		return 0, domain.E(domain.CodeInvalidInput, op, "price must be > 0")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	holder, err := m.registry.HolderOf(assetID)
	if err != nil {
		return 0, err
	}
	if holder != seller {
		return 0, domain.E(domain.CodeNotOwner, op, "asset %d is not held by %s", assetID, seller)
	}
	if !m.registry.IsApproved(seller, m.cfg.Operator) {
		return 0, domain.E(domain.CodeNotApproved, op, "marketplace lacks custody authority over assets of %s", seller)
	}
	if _, exists := m.activeByAsset[assetID]; exists {
		return 0, domain.E(domain.CodeInvalidInput, op, "asset %d already has an active listing", assetID)
	}

	id := domain.ListingID(m.nextID)
	m.nextID++
	m.listings[id] = &domain.Listing{
		ID:      id,
		AssetID: assetID,
		Seller:  seller,
		Price:   price,
		Active:  true,
	}
	m.activeByAsset[assetID] = id

	m.journal.Append(ctx, m.clock.Now(), func(base event.BaseEvent) event.Event {
		return &event.ListedEvent{
			BaseEvent: base,
			ListingID: id,
			AssetID:   assetID,
			Seller:    seller,
			Price:     price,
		}
	})

	return id, nil
}

// BuyNFT settles a listing: asset to buyer, price split to seller, creator
// and treasury. The payment must equal the listing price exactly. All legs
// commit together or the operation fails with no state change.
func (m *Market) BuyNFT(ctx context.Context, listingID domain.ListingID, buyer domain.Principal, payment money.Amount) error {
	const op = "market.buyNFT"

	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[listingID]
	if !ok {
		return domain.E(domain.CodeNotFound, op, "unknown listing %d", listingID)
	}
	if !l.Active {
		return domain.E(domain.CodeAlreadyFinalized, op, "listing %d is no longer active", listingID)
	}
	if buyer == l.Seller {
		return domain.E(domain.CodeSelfTrade, op, "seller cannot buy own listing")
	}
	if payment != l.Price {
		return domain.E(domain.CodeInvalidInput, op, "payment %d does not match price %d", payment, l.Price)
	}

	creator, royalty, err := m.registry.RoyaltyInfo(l.AssetID, l.Price)
	if err != nil {
		return err
	}
	split, ok := money.SplitProceeds(l.Price, royalty, m.cfg.FeeBps)
	if !ok {
		return domain.E(domain.CodePaymentDistributionFailed, op, "price %d cannot be split", l.Price)
	}

	// Stage 1: ownership moves first.
	if err := m.registry.TransferFrom(m.cfg.Operator, l.Seller, buyer, l.AssetID); err != nil {
		return err
	}

	// Stage 2: funds. A failed disbursement rolls the ownership move back.
	legs := []domain.Payout{
		{Account: l.Seller, Amount: split.SellerNet},
		{Account: creator, Amount: split.Royalty},
		{Account: m.cfg.Treasury, Amount: split.Fee},
	}
	if !m.book.CreditAll(legs) {
		m.registry.ApplyTransfer(l.AssetID, l.Seller)
		return domain.E(domain.CodePaymentDistributionFailed, op, "payout legs for listing %d rejected", listingID)
	}

	l.Active = false
	delete(m.activeByAsset, l.AssetID)

	m.journal.Append(ctx, m.clock.Now(), func(base event.BaseEvent) event.Event {
		return &event.SaleEvent{
			BaseEvent: base,
			ListingID: l.ID,
			AssetID:   l.AssetID,
			Seller:    l.Seller,
			Buyer:     buyer,
			Creator:   creator,
			Price:     l.Price,
			SellerNet: split.SellerNet,
			Royalty:   split.Royalty,
			Fee:       split.Fee,
		}
	})

	return nil
}

// CancelListing withdraws an active listing. Only the seller may cancel.
func (m *Market) CancelListing(ctx context.Context, listingID domain.ListingID, caller domain.Principal) error {
	const op = "market.cancelListing"

	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[listingID]
	if !ok {
		return domain.E(domain.CodeNotFound, op, "unknown listing %d", listingID)
	}
	if !l.Active {
		return domain.E(domain.CodeAlreadyFinalized, op, "listing %d is no longer active", listingID)
	}
	if caller != l.Seller {
		return domain.E(domain.CodeNotOwner, op, "only the seller may cancel listing %d", listingID)
	}

	l.Active = false
	delete(m.activeByAsset, l.AssetID)

	m.journal.Append(ctx, m.clock.Now(), func(base event.BaseEvent) event.Event {
		return &event.ListingCanceledEvent{BaseEvent: base, ListingID: listingID}
	})

	return nil
}

// UpdatePrice changes the price of an active listing. Only the seller may
// update, and only to a positive price.
func (m *Market) UpdatePrice(ctx context.Context, listingID domain.ListingID, caller domain.Principal, newPrice money.Amount) error {
	const op = "market.updatePrice"

	if newPrice <= 0 {
		return domain.E(domain.CodeInvalidInput, op, "price must be > 0")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[listingID]
	if !ok {
		return domain.E(domain.CodeNotFound, op, "unknown listing %d", listingID)
	}
	if !l.Active {
		return domain.E(domain.CodeAlreadyFinalized, op, "listing %d is no longer active", listingID)
	}
	if caller != l.Seller {
		return domain.E(domain.CodeNotOwner, op, "only the seller may reprice listing %d", listingID)
	}

	l.Price = newPrice

	m.journal.Append(ctx, m.clock.Now(), func(base event.BaseEvent) event.Event {
		return &event.PriceUpdatedEvent{BaseEvent: base, ListingID: listingID, NewPrice: newPrice}
	})

	return nil
}

// GetActiveListing returns the listing record whether or not it is still
// active; callers check the Active flag. Unknown ids fail NotFound.
func (m *Market) GetActiveListing(listingID domain.ListingID) (domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.listings[listingID]
	if !ok {
		return domain.Listing{}, domain.E(domain.CodeNotFound, "market.getActiveListing", "unknown listing %d", listingID)
	}
	return *l, nil
}

// ApplyListed re-applies a journaled listing without validation.
func (m *Market) ApplyListed(ev *event.ListedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listings[ev.ListingID] = &domain.Listing{
		ID:      ev.ListingID,
		AssetID: ev.AssetID,
		Seller:  ev.Seller,
		Price:   ev.Price,
		Active:  true,
	}
	m.activeByAsset[ev.AssetID] = ev.ListingID
	if uint64(ev.ListingID) >= m.nextID {
		m.nextID = uint64(ev.ListingID) + 1
	}
}

// ApplySale re-applies a journaled sale: ownership move, payout legs and
// listing terminal state. The journal only holds sales that settled, so a
// failing leg here means the journal and state diverged.
func (m *Market) ApplySale(ev *event.SaleEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[ev.ListingID]
	if !ok {
		panic("REPLAY_UNKNOWN_LISTING")
	}
	l.Active = false
	delete(m.activeByAsset, l.AssetID)

	m.registry.ApplyTransfer(ev.AssetID, ev.Buyer)
	if !m.book.CreditAll([]domain.Payout{
		{Account: ev.Seller, Amount: ev.SellerNet},
		{Account: ev.Creator, Amount: ev.Royalty},
		{Account: m.cfg.Treasury, Amount: ev.Fee},
	}) {
		panic("REPLAY_CREDIT_FAILURE")
	}
}

// ApplyPriceUpdated re-applies a journaled price change.
func (m *Market) ApplyPriceUpdated(ev *event.PriceUpdatedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.listings[ev.ListingID]; ok {
		l.Price = ev.NewPrice
	}
}

// ApplyListingCanceled re-applies a journaled cancellation.
func (m *Market) ApplyListingCanceled(ev *event.ListingCanceledEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.listings[ev.ListingID]; ok {
		l.Active = false
		delete(m.activeByAsset, l.AssetID)
	}
}

// ExportState copies the marketplace state for a snapshot.
func (m *Market) ExportState() storage.MarketState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := storage.MarketState{
		NextListingID: m.nextID,
		Listings:      make([]domain.Listing, 0, len(m.listings)),
	}
	for _, l := range m.listings {
		st.Listings = append(st.Listings, *l)
	}
	return st
}

// RestoreState replaces the marketplace state from a snapshot.
func (m *Market) RestoreState(st storage.MarketState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID = st.NextListingID
	m.listings = make(map[domain.ListingID]*domain.Listing, len(st.Listings))
	m.activeByAsset = make(map[domain.AssetID]domain.ListingID)
	for _, l := range st.Listings {
		listing := l
		m.listings[l.ID] = &listing
		if l.Active {
			m.activeByAsset[l.AssetID] = l.ID
		}
	}
}
