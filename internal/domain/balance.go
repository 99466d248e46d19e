package domain

import (
	"sync"

	"aura_go/pkg/money"
	"aura_go/pkg/safe"
)

// Balance is the withdrawable funds cell of one principal. Amounts are in the
// smallest currency unit and never go negative.
type Balance struct {
	Account Principal    `json:"account"`
	Units   money.Amount `json:"units"`
}

// CanCredit reports whether crediting amount would keep the cell valid.
// Settlement legs are checked with this before any of them is applied.
func (b *Balance) CanCredit(amount money.Amount) bool {
	if amount < 0 {
		return false
	}
	_, ok := safe.CheckedAdd(int64(b.Units), int64(amount))
	return ok
}

// Credit adds funds. Callers must have validated with CanCredit; a failure
// here means corrupted state, so it panics rather than limping on.
func (b *Balance) Credit(amount money.Amount) {
	if amount < 0 {
		panic("LEDGER_NEGATIVE_CREDIT")
	}
	b.Units = money.Amount(safe.SafeAdd(int64(b.Units), int64(amount)))
}

// Debit removes funds and panics if the cell would go negative.
func (b *Balance) Debit(amount money.Amount) {
	if amount < 0 {
		panic("LEDGER_NEGATIVE_DEBIT")
	}
	if amount > b.Units {
		panic("LEDGER_INSUFFICIENT_FUNDS")
	}
	b.Units = money.Amount(safe.SafeSub(int64(b.Units), int64(amount)))
}

// VerifyInvariant panics if the cell is in an impossible state.
func (b *Balance) VerifyInvariant() {
	if b.Units < 0 {
		panic("LEDGER_NEGATIVE_BALANCE: " + string(b.Account))
	}
}

// Payout is one leg of a settlement disbursement.
type Payout struct {
	Account Principal
	Amount  money.Amount
}

// BalanceBook holds the funds cells of all principals. The map itself is
// guarded; individual cells are single-writer (the owning engine serializes
// mutations per operation).
type BalanceBook struct {
	mu       sync.RWMutex
	balances map[Principal]*Balance
}

// NewBalanceBook creates an empty book.
func NewBalanceBook() *BalanceBook {
	return &BalanceBook{balances: make(map[Principal]*Balance)}
}

// Get returns the cell for an account, creating it if absent.
func (bb *BalanceBook) Get(account Principal) *Balance {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return bb.getOrCreate(account)
}

// CreditAll applies a multi-leg disbursement atomically: either every leg is
// credited or none is. The book lock is held across validation and apply, so
// no concurrent credit can invalidate a checked leg. Legs to the same account
// are validated cumulatively.
func (bb *BalanceBook) CreditAll(legs []Payout) bool {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	staged := make(map[Principal]money.Amount, len(legs))
	for _, leg := range legs {
		if leg.Amount < 0 {
			return false
		}
		base, ok := staged[leg.Account]
		if !ok {
			base = bb.getOrCreate(leg.Account).Units
		}
		next, ok := safe.CheckedAdd(int64(base), int64(leg.Amount))
		if !ok {
			return false
		}
		staged[leg.Account] = money.Amount(next)
	}
	for _, leg := range legs {
		bb.getOrCreate(leg.Account).Credit(leg.Amount)
	}
	return true
}

func (bb *BalanceBook) getOrCreate(account Principal) *Balance {
	b, ok := bb.balances[account]
	if !ok {
		b = &Balance{Account: account}
		bb.balances[account] = b
	}
	return b
}

// BalanceOf returns the current units of an account without creating a cell.
func (bb *BalanceBook) BalanceOf(account Principal) money.Amount {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	b, ok := bb.balances[account]
	if !ok {
		return 0
	}
	return b.Units
}

// Snapshot returns a copy of all cells for persistence or external reads.
func (bb *BalanceBook) Snapshot() map[Principal]money.Amount {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	out := make(map[Principal]money.Amount, len(bb.balances))
	for acct, b := range bb.balances {
		out[acct] = b.Units
	}
	return out
}

// Restore replaces the book contents from a snapshot.
func (bb *BalanceBook) Restore(snap map[Principal]money.Amount) {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	bb.balances = make(map[Principal]*Balance, len(snap))
	for acct, units := range snap {
		bb.balances[acct] = &Balance{Account: acct, Units: units}
	}
}

// VerifyAll panics if any cell violates its invariant.
func (bb *BalanceBook) VerifyAll() {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	for _, b := range bb.balances {
		b.VerifyInvariant()
	}
}
