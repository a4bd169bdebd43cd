// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/nuonetwork/staking/kv"
	"github.com/nuonetwork/staking/nuo"
	"github.com/nuonetwork/staking/reward"
	"github.com/nuonetwork/staking/vault"
)

var (
	// ErrUnknownStake indicates a stake id that was never created.
	ErrUnknownStake = errors.New("unknown stake")
	// ErrCapacityExceeded indicates a create that would push a vault above its max capacity.
	ErrCapacityExceeded = errors.New("vault capacity exceeded")
	// ErrOverclaim indicates a claim above the gross accrued amount.
	// Internal-consistency guard; unreachable when the calculator and engine agree.
	ErrOverclaim = errors.New("claim exceeds accrued reward")
	// ErrAlreadyUnstaked indicates a mutation on a terminal stake.
	ErrAlreadyUnstaked = errors.New("stake already unstaked")
	// ErrLockNotElapsed indicates an unstake before the vault's cliff.
	ErrLockNotElapsed = errors.New("lock duration not elapsed")
)

// Ledger is the authoritative table of all stakes ever created.
// It owns the sequential id counter, the owner index and the per-vault
// aggregate balances, and persists every mutation as one kv batch.
type Ledger struct {
	reg   *vault.Registry
	store kv.GetPutter

	mu           sync.RWMutex
	stakes       map[uint64]*Stake
	byOwner      map[nuo.Address][]uint64
	vaultBalance []*big.Int
	nextID       uint64
}

// New builds a ledger over the given registry and store, replaying any
// previously persisted stakes. Vault aggregates are recomputed from the
// replayed records rather than stored, so a reload re-derives the exact
// sums the invariants are defined over.
func New(reg *vault.Registry, store kv.GetPutter) (*Ledger, error) {
	l := &Ledger{
		reg:          reg,
		store:        store,
		stakes:       make(map[uint64]*Stake),
		byOwner:      make(map[nuo.Address][]uint64),
		vaultBalance: make([]*big.Int, reg.Len()),
	}
	for i := range l.vaultBalance {
		l.vaultBalance[i] = new(big.Int)
	}

	nextID, err := loadAll(store, func(s *Stake) error {
		if _, err := reg.Get(s.VaultIndex); err != nil {
			return errors.WithMessagef(err, "stake %d", s.ID)
		}
		l.stakes[s.ID] = s
		l.byOwner[s.Owner] = append(l.byOwner[s.Owner], s.ID)
		if s.IsActive() {
			l.vaultBalance[s.VaultIndex].Add(l.vaultBalance[s.VaultIndex], s.Principal)
		}
		if s.ID > l.nextID {
			l.nextID = s.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if nextID > l.nextID {
		l.nextID = nextID
	}
	return l, nil
}

// Create records a new stake and returns its id.
// The id sequence starts at 1 and is never reused.
func (l *Ledger) Create(owner nuo.Address, vaultIndex uint32, principal *big.Int, now uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.prepareCreate(owner, vaultIndex, principal, now)
	if err != nil {
		return 0, err
	}

	batch := l.store.NewBatch()
	if err := putStake(batch, s); err != nil {
		return 0, err
	}
	if err := putNextID(batch, s.ID); err != nil {
		return 0, err
	}
	if err := batch.Write(); err != nil {
		return 0, errors.Wrap(err, "persist stake")
	}

	l.applyCreate(s)
	return s.ID, nil
}

// prepareCreate validates and constructs the next stake record.
// Touches no state; the caller persists first, then applies.
func (l *Ledger) prepareCreate(owner nuo.Address, vaultIndex uint32, principal *big.Int, now uint64) (*Stake, error) {
	if principal == nil || principal.Sign() <= 0 {
		return nil, errors.New("non-positive principal")
	}
	v, err := l.reg.Get(vaultIndex)
	if err != nil {
		return nil, err
	}
	if new(big.Int).Add(l.vaultBalance[vaultIndex], principal).Cmp(v.MaxCapacity) > 0 {
		return nil, errors.WithMessagef(ErrCapacityExceeded, "vault %d", vaultIndex)
	}

	return &Stake{
		ID:           l.nextID + 1,
		Owner:        owner,
		VaultIndex:   vaultIndex,
		Principal:    new(big.Int).Set(principal),
		StartTime:    now,
		TotalClaimed: new(big.Int),
	}, nil
}

func (l *Ledger) applyCreate(s *Stake) {
	l.nextID = s.ID
	l.stakes[s.ID] = s
	l.byOwner[s.Owner] = append(l.byOwner[s.Owner], s.ID)
	l.vaultBalance[s.VaultIndex].Add(l.vaultBalance[s.VaultIndex], s.Principal)
}

// CheckCapacity reports whether the vault can absorb amount more principal.
// Read-only counterpart of the Create guard, for callers that must fail
// before moving tokens.
func (l *Ledger) CheckCapacity(vaultIndex uint32, amount *big.Int) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v, err := l.reg.Get(vaultIndex)
	if err != nil {
		return err
	}
	if new(big.Int).Add(l.vaultBalance[vaultIndex], amount).Cmp(v.MaxCapacity) > 0 {
		return errors.WithMessagef(ErrCapacityExceeded, "vault %d", vaultIndex)
	}
	return nil
}

// Claim names one stake's share of a multi-stake settlement.
type Claim struct {
	ID     uint64
	Amount *big.Int
}

// RecordClaim increments a stake's total claimed amount, asserting the
// result never exceeds the gross accrued reward at the given time.
func (l *Ledger) RecordClaim(id uint64, amount *big.Int, now uint64) error {
	return l.RecordClaims([]Claim{{ID: id, Amount: amount}}, now)
}

// RecordClaims books several stakes' shares through a single write batch.
// Either every share is recorded or none is; a stake is never left
// claimable for an amount already paid.
func (l *Ledger) RecordClaims(claims []Claim, now uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	updated, err := l.prepareClaims(claims, now)
	if err != nil {
		return err
	}

	batch := l.store.NewBatch()
	for _, u := range updated {
		if err := putStake(batch, u); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "persist claims")
	}

	l.applyClaims(updated)
	return nil
}

// SettleHarvest books the consumed shares and creates the compounded
// stake in the same write batch, so a crash or store failure can never
// split the payout from its record. Returns the new stake's id.
func (l *Ledger) SettleHarvest(claims []Claim, owner nuo.Address, vaultIndex uint32, principal *big.Int, now uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	updated, err := l.prepareClaims(claims, now)
	if err != nil {
		return 0, err
	}
	s, err := l.prepareCreate(owner, vaultIndex, principal, now)
	if err != nil {
		return 0, err
	}

	batch := l.store.NewBatch()
	for _, u := range updated {
		if err := putStake(batch, u); err != nil {
			return 0, err
		}
	}
	if err := putStake(batch, s); err != nil {
		return 0, err
	}
	if err := putNextID(batch, s.ID); err != nil {
		return 0, err
	}
	if err := batch.Write(); err != nil {
		return 0, errors.Wrap(err, "persist harvest")
	}

	l.applyClaims(updated)
	l.applyCreate(s)
	return s.ID, nil
}

// prepareClaims validates every share against the overclaim guard and
// returns updated copies. Touches no state.
func (l *Ledger) prepareClaims(claims []Claim, now uint64) ([]*Stake, error) {
	updated := make([]*Stake, 0, len(claims))
	for _, c := range claims {
		s, ok := l.stakes[c.ID]
		if !ok {
			return nil, errors.WithMessagef(ErrUnknownStake, "id %d", c.ID)
		}
		if s.Unstaked {
			return nil, errors.WithMessagef(ErrAlreadyUnstaked, "id %d", c.ID)
		}
		v, err := l.reg.Get(s.VaultIndex)
		if err != nil {
			return nil, err
		}

		gross := reward.Accrued(s.Principal, v.AnnualRatePercent, s.StartTime, now)
		newTotal := new(big.Int).Add(s.TotalClaimed, c.Amount)
		if newTotal.Cmp(gross) > 0 {
			return nil, errors.WithMessagef(ErrOverclaim, "id %d: %s > %s", c.ID, newTotal, gross)
		}

		u := s.Copy()
		u.TotalClaimed = newTotal
		updated = append(updated, u)
	}
	return updated, nil
}

func (l *Ledger) applyClaims(updated []*Stake) {
	for _, u := range updated {
		l.stakes[u.ID].TotalClaimed = u.TotalClaimed
	}
}

// MarkUnstaked flips the terminal flag and removes the principal from the
// vault aggregate. Returns the terminal stake snapshot.
func (l *Ledger) MarkUnstaked(id uint64, now uint64) (*Stake, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.stakes[id]
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownStake, "id %d", id)
	}
	if s.Unstaked {
		return nil, errors.WithMessagef(ErrAlreadyUnstaked, "id %d", id)
	}
	v, err := l.reg.Get(s.VaultIndex)
	if err != nil {
		return nil, err
	}
	if now < s.StartTime || now-s.StartTime < v.MinLockDuration {
		return nil, errors.WithMessagef(ErrLockNotElapsed, "id %d", id)
	}

	updated := s.Copy()
	updated.Unstaked = true

	batch := l.store.NewBatch()
	if err := putStake(batch, updated); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, errors.Wrap(err, "persist unstake")
	}

	s.Unstaked = true
	l.vaultBalance[s.VaultIndex].Sub(l.vaultBalance[s.VaultIndex], s.Principal)
	return s.Copy(), nil
}

// Get returns a snapshot of the stake with the given id.
func (l *Ledger) Get(id uint64) (*Stake, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.stakes[id]
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownStake, "id %d", id)
	}
	return s.Copy(), nil
}

// ListByOwner returns snapshots of all stakes ever created for the owner,
// active or not, in creation order.
func (l *Ledger) ListByOwner(owner nuo.Address) []*Stake {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.byOwner[owner]
	out := make([]*Stake, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.stakes[id].Copy())
	}
	return out
}

// VaultBalance returns the total active principal held in the vault.
func (l *Ledger) VaultBalance(vaultIndex uint32) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.reg.Get(vaultIndex); err != nil {
		return nil, err
	}
	return new(big.Int).Set(l.vaultBalance[vaultIndex]), nil
}

// TotalStakes returns the number of stakes ever created.
func (l *Ledger) TotalStakes() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.nextID
}
