// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuonetwork/staking/kv"
	"github.com/nuonetwork/staking/lvldb"
	"github.com/nuonetwork/staking/nuo"
	"github.com/nuonetwork/staking/reward"
	"github.com/nuonetwork/staking/vault"
)

var (
	alice = nuo.BytesToAddress([]byte("alice"))
	bob   = nuo.BytesToAddress([]byte("bob"))
)

func newTestRegistry(t *testing.T) *vault.Registry {
	reg, err := vault.NewRegistry([]vault.Vault{
		{Index: 0, AnnualRatePercent: 60, MaxCapacity: big.NewInt(3000), MinLockDuration: 1000},
		{Index: 1, AnnualRatePercent: 90, MaxCapacity: big.NewInt(2000), MinLockDuration: 2000},
	})
	require.NoError(t, err)
	return reg
}

func newTestLedger(t *testing.T) *Ledger {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l, err := New(newTestRegistry(t), db)
	require.NoError(t, err)
	return l
}

// recompute the vault aggregate independently from the stake table
func recomputeBalance(l *Ledger, vaultIndex uint32, owners ...nuo.Address) *big.Int {
	sum := new(big.Int)
	for _, owner := range owners {
		for _, s := range l.ListByOwner(owner) {
			if s.VaultIndex == vaultIndex && s.IsActive() {
				sum.Add(sum, s.Principal)
			}
		}
	}
	return sum
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	l := newTestLedger(t)

	for want := uint64(1); want <= 3; want++ {
		id, err := l.Create(alice, 0, big.NewInt(100), 10)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, uint64(3), l.TotalStakes())

	s, err := l.Get(2)
	require.NoError(t, err)
	assert.Equal(t, alice, s.Owner)
	assert.Equal(t, uint64(10), s.StartTime)
	assert.Equal(t, big.NewInt(100), s.Principal)
	assert.Equal(t, int64(0), s.TotalClaimed.Int64())
	assert.False(t, s.Unstaked)
}

func TestCreateChecksCapacity(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.Create(alice, 0, big.NewInt(2500), 0)
	require.NoError(t, err)

	_, err = l.Create(bob, 0, big.NewInt(501), 0)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	// vault aggregate unchanged by the failed create
	balance, err := l.VaultBalance(0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2500), balance)
	assert.Equal(t, uint64(1), l.TotalStakes())

	// exact fill is allowed
	_, err = l.Create(bob, 0, big.NewInt(500), 0)
	require.NoError(t, err)

	assert.True(t, errors.Is(l.CheckCapacity(0, big.NewInt(1)), ErrCapacityExceeded))
	assert.NoError(t, l.CheckCapacity(1, big.NewInt(2000)))
}

func TestCreateRejectsUnknownVault(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.Create(alice, 9, big.NewInt(100), 0)
	assert.True(t, errors.Is(err, vault.ErrUnknownVault))

	_, err = l.VaultBalance(9)
	assert.True(t, errors.Is(err, vault.ErrUnknownVault))
}

func TestAggregateEqualsSumOfActiveStakes(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.Create(alice, 0, big.NewInt(1000), 0)
	require.NoError(t, err)
	_, err = l.Create(bob, 0, big.NewInt(1000), 0)
	require.NoError(t, err)
	id3, err := l.Create(alice, 0, big.NewInt(1000), 0)
	require.NoError(t, err)

	balance, err := l.VaultBalance(0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3000), balance)
	assert.Equal(t, balance, recomputeBalance(l, 0, alice, bob))

	_, err = l.MarkUnstaked(id3, 5000)
	require.NoError(t, err)

	balance, err = l.VaultBalance(0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2000), balance)
	assert.Equal(t, balance, recomputeBalance(l, 0, alice, bob))
}

func TestRecordClaim(t *testing.T) {
	l := newTestLedger(t)

	id, err := l.Create(alice, 0, big.NewInt(1000), 0)
	require.NoError(t, err)

	// 600 accrued after one year at 60%
	oneYear := uint64(reward.SecondsPerYear)
	require.NoError(t, l.RecordClaim(id, big.NewInt(400), oneYear))
	require.NoError(t, l.RecordClaim(id, big.NewInt(200), oneYear))

	s, err := l.Get(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), s.TotalClaimed)

	// anything above gross accrued is an overclaim
	err = l.RecordClaim(id, big.NewInt(1), oneYear)
	assert.True(t, errors.Is(err, ErrOverclaim))

	err = l.RecordClaim(99, big.NewInt(1), oneYear)
	assert.True(t, errors.Is(err, ErrUnknownStake))
}

// faultyStore passes batches through to the wrapped store until failBatch
// is set, after which every batch write fails.
type faultyStore struct {
	kv.GetPutter
	failBatch bool
}

func (f *faultyStore) NewBatch() kv.Batch {
	return &faultyBatch{f.GetPutter.NewBatch(), f}
}

type faultyBatch struct {
	kv.Batch
	store *faultyStore
}

func (b *faultyBatch) Write() error {
	if b.store.failBatch {
		return errors.New("write stall")
	}
	return b.Batch.Write()
}

func TestRecordClaimsAllOrNothing(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	store := &faultyStore{GetPutter: db}
	l, err := New(newTestRegistry(t), store)
	require.NoError(t, err)

	id1, err := l.Create(alice, 0, big.NewInt(1000), 0)
	require.NoError(t, err)
	id2, err := l.Create(alice, 0, big.NewInt(1000), 0)
	require.NoError(t, err)

	// 600 accrued on each after one year at 60%
	oneYear := uint64(reward.SecondsPerYear)

	// one bad share rejects the whole set
	err = l.RecordClaims([]Claim{
		{ID: id1, Amount: big.NewInt(600)},
		{ID: id2, Amount: big.NewInt(601)},
	}, oneYear)
	assert.True(t, errors.Is(err, ErrOverclaim))

	// a failed batch write books nothing
	store.failBatch = true
	valid := []Claim{
		{ID: id1, Amount: big.NewInt(600)},
		{ID: id2, Amount: big.NewInt(600)},
	}
	assert.Error(t, l.RecordClaims(valid, oneYear))

	for _, id := range []uint64{id1, id2} {
		s, err := l.Get(id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), s.TotalClaimed.Int64())
	}

	// once the store recovers the same set settles in full
	store.failBatch = false
	require.NoError(t, l.RecordClaims(valid, oneYear))
	for _, id := range []uint64{id1, id2} {
		s, err := l.Get(id)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(600), s.TotalClaimed)
	}
}

func TestSettleHarvest(t *testing.T) {
	l := newTestLedger(t)

	id, err := l.Create(alice, 0, big.NewInt(1000), 0)
	require.NoError(t, err)

	oneYear := uint64(reward.SecondsPerYear)
	newID, err := l.SettleHarvest(
		[]Claim{{ID: id, Amount: big.NewInt(600)}},
		alice, 1, big.NewInt(780), oneYear)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), newID)

	src, err := l.Get(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), src.TotalClaimed)

	created, err := l.Get(newID)
	require.NoError(t, err)
	assert.Equal(t, alice, created.Owner)
	assert.Equal(t, uint32(1), created.VaultIndex)
	assert.Equal(t, big.NewInt(780), created.Principal)
	assert.Equal(t, oneYear, created.StartTime)

	balance, err := l.VaultBalance(1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(780), balance)
}

func TestSettleHarvestAllOrNothing(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	store := &faultyStore{GetPutter: db}
	l, err := New(newTestRegistry(t), store)
	require.NoError(t, err)

	id, err := l.Create(alice, 0, big.NewInt(1000), 0)
	require.NoError(t, err)

	oneYear := uint64(reward.SecondsPerYear)
	claims := []Claim{{ID: id, Amount: big.NewInt(600)}}

	// destination over capacity: no claim booked, no stake created
	_, err = l.SettleHarvest(claims, alice, 1, big.NewInt(5000), oneYear)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	s, err := l.Get(id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.TotalClaimed.Int64())
	assert.Equal(t, uint64(1), l.TotalStakes())

	// failed batch write: same outcome
	store.failBatch = true
	_, err = l.SettleHarvest(claims, alice, 1, big.NewInt(780), oneYear)
	assert.Error(t, err)

	s, err = l.Get(id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.TotalClaimed.Int64())
	assert.Equal(t, uint64(1), l.TotalStakes())
	balance, err := l.VaultBalance(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Int64())
}

func TestMarkUnstaked(t *testing.T) {
	l := newTestLedger(t)

	id, err := l.Create(alice, 0, big.NewInt(1000), 100)
	require.NoError(t, err)

	// cliff is 1000s
	_, err = l.MarkUnstaked(id, 1099)
	assert.True(t, errors.Is(err, ErrLockNotElapsed))

	s, err := l.MarkUnstaked(id, 1100)
	require.NoError(t, err)
	assert.True(t, s.Unstaked)

	_, err = l.MarkUnstaked(id, 1200)
	assert.True(t, errors.Is(err, ErrAlreadyUnstaked))

	// terminal stakes reject claims
	err = l.RecordClaim(id, big.NewInt(1), 1200)
	assert.True(t, errors.Is(err, ErrAlreadyUnstaked))

	// but remain queryable
	got, err := l.Get(id)
	require.NoError(t, err)
	assert.True(t, got.Unstaked)
	assert.Equal(t, big.NewInt(1000), got.Principal)
}

func TestListByOwner(t *testing.T) {
	l := newTestLedger(t)

	id1, err := l.Create(alice, 0, big.NewInt(100), 0)
	require.NoError(t, err)
	_, err = l.Create(bob, 0, big.NewInt(100), 0)
	require.NoError(t, err)
	id3, err := l.Create(alice, 1, big.NewInt(100), 0)
	require.NoError(t, err)

	_, err = l.MarkUnstaked(id1, 5000)
	require.NoError(t, err)

	stakes := l.ListByOwner(alice)
	require.Len(t, stakes, 2)
	assert.Equal(t, id1, stakes[0].ID)
	assert.True(t, stakes[0].Unstaked)
	assert.Equal(t, id3, stakes[1].ID)

	assert.Empty(t, l.ListByOwner(nuo.BytesToAddress([]byte("nobody"))))
}

func TestReloadFromStore(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	reg := newTestRegistry(t)
	l, err := New(reg, db)
	require.NoError(t, err)

	id1, err := l.Create(alice, 0, big.NewInt(1000), 0)
	require.NoError(t, err)
	id2, err := l.Create(bob, 1, big.NewInt(700), 0)
	require.NoError(t, err)
	require.NoError(t, l.RecordClaim(id1, big.NewInt(5), uint64(reward.SecondsPerYear)))
	_, err = l.MarkUnstaked(id2, 5000)
	require.NoError(t, err)

	// rebuild from the same store
	reloaded, err := New(reg, db)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), reloaded.TotalStakes())

	s1, err := reloaded.Get(id1)
	require.NoError(t, err)
	assert.Equal(t, alice, s1.Owner)
	assert.Equal(t, big.NewInt(5), s1.TotalClaimed)

	s2, err := reloaded.Get(id2)
	require.NoError(t, err)
	assert.True(t, s2.Unstaked)

	// aggregates re-derived from records
	balance0, err := reloaded.VaultBalance(0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), balance0)

	balance1, err := reloaded.VaultBalance(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance1.Int64())

	// id sequence continues, no reuse
	id3, err := reloaded.Create(alice, 0, big.NewInt(1), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id3)
}
