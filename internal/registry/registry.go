// Package registry owns the asset table: current holder, original creator,
// metadata reference and the royalty rate applied to every sale. It is the
// custody gate: transfers go through TransferFrom, which admits only the
// holder or an operator the holder has approved.
package registry

import (
	"context"
	"sync"

	"aura_go/internal/domain"
	"aura_go/internal/event"
	"aura_go/internal/infra"
	"aura_go/internal/storage"
	"aura_go/pkg/money"
)

// Registry is the shared asset store injected into the marketplace and the
// auction engine. All mutations are serialized by one mutex; reads take the
// read lock.
type Registry struct {
	mu         sync.RWMutex
	assets     map[domain.AssetID]*domain.Asset
	approvals  map[domain.Approval]bool
	royaltyBps money.Bps
	nextID     uint64

	journal *storage.Journal
	clock   infra.Clock
}

// New creates an empty registry with the given default royalty rate.
// royaltyBps must already be validated (config does that at load time).
func New(journal *storage.Journal, clock infra.Clock, royaltyBps money.Bps) *Registry {
	return &Registry{
		assets:     make(map[domain.AssetID]*domain.Asset),
		approvals:  make(map[domain.Approval]bool),
		royaltyBps: royaltyBps,
		journal:    journal,
		clock:      clock,
	}
}

// Mint creates an asset held by its creator and returns the new id.
func (r *Registry) Mint(ctx context.Context, creator domain.Principal, metadataRef string) (domain.AssetID, error) {
	const op = "registry.mint"

	if metadataRef == "" {
		return 0, domain.E(domain.CodeInvalidInput, op, "metadata reference must not be empty")
	}
	if creator == "" {
		return 0, domain.E(domain.CodeInvalidInput, op, "creator must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := domain.AssetID(r.nextID)
	r.nextID++
	r.assets[id] = &domain.Asset{
		ID:          id,
		Holder:      creator,
		Creator:     creator,
		MetadataRef: metadataRef,
	}

	r.journal.Append(ctx, r.clock.Now(), func(base event.BaseEvent) event.Event {
		return &event.AssetMintedEvent{
			BaseEvent:   base,
			AssetID:     id,
			Creator:     creator,
			MetadataRef: metadataRef,
		}
	})

	return id, nil
}

// SetRoyaltyBps changes the registry-wide royalty rate. Administrative; the
// cap is 10% of the sale price.
func (r *Registry) SetRoyaltyBps(ctx context.Context, bps money.Bps) error {
	const op = "registry.setRoyaltyBps"

	if bps < 0 || bps > money.MaxRoyaltyBps {
		return domain.E(domain.CodeInvalidInput, op, "royalty %d bps exceeds max %d", bps, money.MaxRoyaltyBps)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.royaltyBps = bps

	r.journal.Append(ctx, r.clock.Now(), func(base event.BaseEvent) event.Event {
		return &event.RoyaltySetEvent{BaseEvent: base, RoyaltyBps: bps}
	})

	return nil
}

// RoyaltyInfo returns the asset's creator and floor(salePrice * bps / 10000).
func (r *Registry) RoyaltyInfo(id domain.AssetID, salePrice money.Amount) (domain.Principal, money.Amount, error) {
	const op = "registry.royaltyInfo"

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[id]
	if !ok {
		return "", 0, domain.E(domain.CodeNotFound, op, "unknown asset %d", id)
	}

	amount, ok := money.TakeBps(salePrice, r.royaltyBps)
	if !ok {
		return "", 0, domain.E(domain.CodeInvalidInput, op, "royalty computation overflows for price %d", salePrice)
	}
	return a.Creator, amount, nil
}

// HolderOf returns the current holder of an asset.
func (r *Registry) HolderOf(id domain.AssetID) (domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[id]
	if !ok {
		return "", domain.E(domain.CodeNotFound, "registry.holderOf", "unknown asset %d", id)
	}
	return a.Holder, nil
}

// MetadataOf returns the opaque metadata reference of an asset.
func (r *Registry) MetadataOf(id domain.AssetID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[id]
	if !ok {
		return "", domain.E(domain.CodeNotFound, "registry.metadataOf", "unknown asset %d", id)
	}
	return a.MetadataRef, nil
}

// CreatorOf returns the original creator of an asset.
func (r *Registry) CreatorOf(id domain.AssetID) (domain.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[id]
	if !ok {
		return "", domain.E(domain.CodeNotFound, "registry.creatorOf", "unknown asset %d", id)
	}
	return a.Creator, nil
}

// TotalAssets returns how many assets have been minted.
func (r *Registry) TotalAssets() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}

// ApproveAll grants or revokes blanket transfer authority for operator over
// all assets held by owner.
func (r *Registry) ApproveAll(ctx context.Context, owner, operator domain.Principal, approved bool) error {
	const op = "registry.approveAll"

	if owner == "" || operator == "" {
		return domain.E(domain.CodeInvalidInput, op, "owner and operator must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.Approval{Owner: owner, Operator: operator}
	if approved {
		r.approvals[key] = true
	} else {
		delete(r.approvals, key)
	}

	r.journal.Append(ctx, r.clock.Now(), func(base event.BaseEvent) event.Event {
		return &event.ApprovalSetEvent{
			BaseEvent: base,
			Owner:     owner,
			Operator:  operator,
			Approved:  approved,
		}
	})

	return nil
}

// IsApproved reports whether operator holds custody authority over assets
// held by owner.
func (r *Registry) IsApproved(owner, operator domain.Principal) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.approvals[domain.Approval{Owner: owner, Operator: operator}]
}

// TransferFrom moves an asset from its holder to another principal. The
// custody gate: operator must be the holder itself or hold an approval from
// the holder. Transfers are not journaled on their own; they occur only
// inside settlement operations whose events carry the ownership move.
func (r *Registry) TransferFrom(operator, from, to domain.Principal, id domain.AssetID) error {
	const op = "registry.transfer"

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assets[id]
	if !ok {
		return domain.E(domain.CodeNotFound, op, "unknown asset %d", id)
	}
	if a.Holder != from {
		return domain.E(domain.CodeNotOwner, op, "asset %d is not held by %s", id, from)
	}
	if operator != from && !r.approvals[domain.Approval{Owner: from, Operator: operator}] {
		return domain.E(domain.CodeNotApproved, op, "%s lacks custody authority over assets of %s", operator, from)
	}

	a.Holder = to
	return nil
}

// ApplyTransfer force-sets an asset's holder. Used by replay and by
// settlement rollback, never by request handling.
func (r *Registry) ApplyTransfer(id domain.AssetID, to domain.Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.assets[id]; ok {
		a.Holder = to
	}
}

// ApplyMint re-applies a journaled mint without validation or journaling.
func (r *Registry) ApplyMint(ev *event.AssetMintedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.assets[ev.AssetID] = &domain.Asset{
		ID:          ev.AssetID,
		Holder:      ev.Creator,
		Creator:     ev.Creator,
		MetadataRef: ev.MetadataRef,
	}
	if uint64(ev.AssetID) >= r.nextID {
		r.nextID = uint64(ev.AssetID) + 1
	}
}

// ApplyApproval re-applies a journaled approval change.
func (r *Registry) ApplyApproval(ev *event.ApprovalSetEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.Approval{Owner: ev.Owner, Operator: ev.Operator}
	if ev.Approved {
		r.approvals[key] = true
	} else {
		delete(r.approvals, key)
	}
}

// ApplyRoyalty re-applies a journaled royalty change.
func (r *Registry) ApplyRoyalty(ev *event.RoyaltySetEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.royaltyBps = ev.RoyaltyBps
}

// ExportState copies the registry state for a snapshot.
func (r *Registry) ExportState() storage.RegistryState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := storage.RegistryState{
		NextAssetID: r.nextID,
		RoyaltyBps:  r.royaltyBps,
		Assets:      make([]domain.Asset, 0, len(r.assets)),
		Approvals:   make([]domain.Approval, 0, len(r.approvals)),
	}
	for _, a := range r.assets {
		st.Assets = append(st.Assets, *a)
	}
	for key := range r.approvals {
		st.Approvals = append(st.Approvals, key)
	}
	return st
}

// RestoreState replaces the registry state from a snapshot.
func (r *Registry) RestoreState(st storage.RegistryState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID = st.NextAssetID
	r.royaltyBps = st.RoyaltyBps
	r.assets = make(map[domain.AssetID]*domain.Asset, len(st.Assets))
	for _, a := range st.Assets {
		asset := a
		r.assets[a.ID] = &asset
	}
	r.approvals = make(map[domain.Approval]bool, len(st.Approvals))
	for _, key := range st.Approvals {
		r.approvals[key] = true
	}
}
