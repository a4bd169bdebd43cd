// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nuonetwork/staking/ledger"
	"github.com/nuonetwork/staking/log"
	"github.com/nuonetwork/staking/nuo"
	"github.com/nuonetwork/staking/reward"
	"github.com/nuonetwork/staking/token"
	"github.com/nuonetwork/staking/vault"
)

var logger = log.WithContext("pkg", "staking")

var (
	// ErrInvalidAmount indicates a non-positive stake amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNoRewardsToClaim indicates a claim with zero pending reward across
	// the caller's stakes in the vault.
	ErrNoRewardsToClaim = errors.New("no rewards to claim")
	// ErrInsufficientHarvest indicates a harvest below the minimum worth staking.
	ErrInsufficientHarvest = errors.New("insufficient rewards to stake")
	// ErrInsufficientReserve indicates the bonus reserve cannot fund the harvest bonus.
	ErrInsufficientReserve = errors.New("insufficient bonus reserve")
	// ErrNotStakeOwner indicates a caller acting on someone else's stake.
	ErrNotStakeOwner = errors.New("not stake owner")
	// ErrTokenTransfer wraps failures reported by the token collaborator.
	ErrTokenTransfer = errors.New("token transfer failed")
)

// Options tune engine policy. The zero value gives no harvest bonus, any
// positive pending harvestable, a cliff gating only unstakes, and wall-clock time.
type Options struct {
	// HarvestBonusPercent is the incentive applied to harvested rewards,
	// funded from the bonus reserve (30 means +30%).
	HarvestBonusPercent uint32
	// MinHarvest, when set, is the smallest pending sum worth compounding.
	MinHarvest *big.Int
	// CliffGatesClaim extends the vault cliff to claims and harvests:
	// stakes younger than the cliff accrue but cannot pay out yet.
	CliffGatesClaim bool
	// Now supplies the engine clock in unix seconds.
	Now func() uint64
}

// Staker orchestrates the stake lifecycle: creation, claiming, compounding
// and withdrawal. Every mutating action is one atomic unit under a single
// writer lock, and accrual is computed lazily from elapsed time, so the
// engine is deterministic and replayable.
type Staker struct {
	reg     *vault.Registry
	ledger  *ledger.Ledger
	token   token.Token
	reserve nuo.Address

	bonusPercent    uint32
	minHarvest      *big.Int
	cliffGatesClaim bool
	now             func() uint64

	mu sync.Mutex
}

// New creates the engine. The reserve account funds harvest bonuses and is
// held apart from staked principal.
func New(reg *vault.Registry, led *ledger.Ledger, tok token.Token, reserve nuo.Address, opts Options) *Staker {
	now := opts.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &Staker{
		reg:             reg,
		ledger:          led,
		token:           tok,
		reserve:         reserve,
		bonusPercent:    opts.HarvestBonusPercent,
		minHarvest:      opts.MinHarvest,
		cliffGatesClaim: opts.CliffGatesClaim,
		now:             now,
	}
}

//
// Getters - no state change
//

// GetVaults returns the ordered vault catalog.
func (s *Staker) GetVaults() []vault.Vault {
	return s.reg.All()
}

// TokensStakedInVault returns the total active principal in the vault.
func (s *Staker) TokensStakedInVault(vaultIndex uint32) (*big.Int, error) {
	return s.ledger.VaultBalance(vaultIndex)
}

// TotalStakes returns the number of stakes ever created.
func (s *Staker) TotalStakes() uint64 {
	return s.ledger.TotalStakes()
}

// GetStakeInfoByID returns a snapshot of the stake.
func (s *Staker) GetStakeInfoByID(id uint64) (*ledger.Stake, error) {
	return s.ledger.Get(id)
}

// ListStakesByOwner returns all stakes ever created for the owner.
func (s *Staker) ListStakesByOwner(owner nuo.Address) []*ledger.Stake {
	return s.ledger.ListByOwner(owner)
}

// GetStakingReward returns the stake's pending reward as of now.
// Terminal stakes accrue nothing.
func (s *Staker) GetStakingReward(id uint64) (*big.Int, error) {
	st, err := s.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if st.Unstaked {
		return new(big.Int), nil
	}
	v, err := s.reg.Get(st.VaultIndex)
	if err != nil {
		return nil, err
	}
	return reward.Pending(st.Principal, v.AnnualRatePercent, st.StartTime, st.TotalClaimed, s.now()), nil
}

// Reserve returns the bonus reserve account.
func (s *Staker) Reserve() nuo.Address {
	return s.reserve
}

// Info describes the engine's wallet identities and payout policy.
type Info struct {
	Custody             nuo.Address
	Reserve             nuo.Address
	HarvestBonusPercent uint32
	MinHarvest          *big.Int
	CliffGatesClaim     bool
	Vaults              int
}

// GetInfo returns the engine's identities and policy.
func (s *Staker) GetInfo() Info {
	info := Info{
		Reserve:             s.reserve,
		HarvestBonusPercent: s.bonusPercent,
		CliffGatesClaim:     s.cliffGatesClaim,
		Vaults:              s.reg.Len(),
	}
	if s.minHarvest != nil {
		info.MinHarvest = new(big.Int).Set(s.minHarvest)
	}
	// the custody account is known when the token collaborator names one
	if c, ok := s.token.(interface{ Address() nuo.Address }); ok {
		info.Custody = c.Address()
	}
	return info
}

//
// Setters - state change
//

// Stake locks amount into the vault and returns the new stake id.
// Tokens are pulled into custody before any ledger write; a failed pull
// leaves the ledger untouched.
func (s *Staker) Stake(owner nuo.Address, amount *big.Int, vaultIndex uint32) (uint64, error) {
	id, err := s.stake(owner, amount, vaultIndex)
	countOp("stake", err)
	return id, err
}

func (s *Staker) stake(owner nuo.Address, amount *big.Int, vaultIndex uint32) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debug("staking", "owner", owner, "vault", vaultIndex, "amount", amount)

	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if _, err := s.reg.Get(vaultIndex); err != nil {
		return 0, err
	}
	// fail before moving tokens so a rejected stake leaves custody unchanged
	if err := s.ledger.CheckCapacity(vaultIndex, amount); err != nil {
		logger.Info("stake rejected", "owner", owner, "vault", vaultIndex, "error", err)
		return 0, err
	}

	if err := s.token.TransferIn(owner, amount); err != nil {
		logger.Info("stake transfer failed", "owner", owner, "error", err)
		return 0, errors.WithMessagef(ErrTokenTransfer, "pull stake: %s", err)
	}

	id, err := s.ledger.Create(owner, vaultIndex, amount, s.now())
	if err != nil {
		// persistence trouble after a confirmed pull; hand the tokens back
		if rbErr := s.token.TransferOut(owner, amount); rbErr != nil {
			logger.Error("stake rollback failed", "owner", owner, "error", rbErr)
		}
		return 0, err
	}

	s.observeVault(vaultIndex)
	logger.Info("staked", "owner", owner, "id", id, "vault", vaultIndex)
	return id, nil
}

// ClaimAll pays out the pending reward of every active stake the owner
// holds in the vault, and returns the total paid.
func (s *Staker) ClaimAll(owner nuo.Address, vaultIndex uint32) (*big.Int, error) {
	total, err := s.claimAll(owner, vaultIndex)
	countOp("claim", err)
	return total, err
}

func (s *Staker) claimAll(owner nuo.Address, vaultIndex uint32) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debug("claiming", "owner", owner, "vault", vaultIndex)

	now := s.now()
	shares, total, err := s.pendingShares(owner, vaultIndex, now)
	if err != nil {
		return nil, err
	}
	// a caller with no matching stakes and one whose stakes have zero
	// pending are rejected identically
	if total.Sign() == 0 {
		return nil, ErrNoRewardsToClaim
	}

	if err := s.token.TransferOut(owner, total); err != nil {
		logger.Info("claim transfer failed", "owner", owner, "error", err)
		return nil, errors.WithMessagef(ErrTokenTransfer, "pay claim: %s", err)
	}
	// every share settles through one ledger batch; if that batch cannot
	// be written the payout is pulled back, so the amount paid never
	// diverges from the amount recorded
	if err := s.ledger.RecordClaims(shares, now); err != nil {
		logger.Error("claim bookkeeping failed", "owner", owner, "error", err)
		if rbErr := s.token.TransferIn(owner, total); rbErr != nil {
			logger.Error("claim rollback failed", "owner", owner, "error", rbErr)
		}
		return nil, err
	}

	logger.Info("claimed", "owner", owner, "vault", vaultIndex, "amount", total)
	return total, nil
}

// HarvestAllToVault compounds the owner's pending reward in fromVault,
// plus the configured bonus, into a brand-new stake in toVault.
// Returns the new stake id and its principal.
func (s *Staker) HarvestAllToVault(owner nuo.Address, fromVault, toVault uint32) (uint64, *big.Int, error) {
	id, principal, err := s.harvestAllToVault(owner, fromVault, toVault)
	countOp("harvest", err)
	return id, principal, err
}

func (s *Staker) harvestAllToVault(owner nuo.Address, fromVault, toVault uint32) (uint64, *big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debug("harvesting", "owner", owner, "from", fromVault, "to", toVault)

	now := s.now()
	if _, err := s.reg.Get(toVault); err != nil {
		return 0, nil, err
	}
	shares, total, err := s.pendingShares(owner, fromVault, now)
	if err != nil {
		return 0, nil, err
	}
	if total.Sign() == 0 || (s.minHarvest != nil && total.Cmp(s.minHarvest) < 0) {
		return 0, nil, ErrInsufficientHarvest
	}

	bonus := reward.Bonus(total, s.bonusPercent)
	principal := new(big.Int).Add(total, bonus)

	// destination capacity must hold before any token or ledger effect
	if err := s.ledger.CheckCapacity(toVault, principal); err != nil {
		logger.Info("harvest rejected", "owner", owner, "to", toVault, "error", err)
		return 0, nil, err
	}

	// the bonus is funded by the reserve, never by other stakers' principal
	if bonus.Sign() > 0 {
		if s.token.BalanceOf(s.reserve).Cmp(bonus) < 0 {
			logger.Warn("bonus reserve exhausted", "reserve", s.reserve, "needed", bonus)
			return 0, nil, ErrInsufficientReserve
		}
		if err := s.token.TransferIn(s.reserve, bonus); err != nil {
			return 0, nil, errors.WithMessagef(ErrTokenTransfer, "fund bonus: %s", err)
		}
	}

	// harvesting consumes the same pending a claim would, and the consumed
	// shares plus the new stake settle in one ledger batch; on failure the
	// bonus is returned to the reserve and no stake exists
	id, err := s.ledger.SettleHarvest(shares, owner, toVault, principal, now)
	if err != nil {
		logger.Error("harvest bookkeeping failed", "owner", owner, "error", err)
		if bonus.Sign() > 0 {
			if rbErr := s.token.TransferOut(s.reserve, bonus); rbErr != nil {
				logger.Error("harvest rollback failed", "reserve", s.reserve, "error", rbErr)
			}
		}
		return 0, nil, err
	}

	s.observeVault(toVault)
	logger.Info("harvested", "owner", owner, "id", id, "from", fromVault, "to", toVault, "principal", principal)
	return id, principal, nil
}

// Unstake returns the stake's principal to its owner after the vault cliff.
// The stake becomes terminal and stops accruing.
func (s *Staker) Unstake(owner nuo.Address, id uint64) (*big.Int, error) {
	principal, err := s.unstake(owner, id)
	countOp("unstake", err)
	return principal, err
}

func (s *Staker) unstake(owner nuo.Address, id uint64) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debug("unstaking", "owner", owner, "id", id)

	now := s.now()
	st, err := s.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if st.Owner != owner {
		return nil, ErrNotStakeOwner
	}
	// precheck the ledger guards so the payout cannot be followed by a
	// failed terminal write
	if st.Unstaked {
		return nil, errors.WithMessagef(ledger.ErrAlreadyUnstaked, "id %d", id)
	}
	v, err := s.reg.Get(st.VaultIndex)
	if err != nil {
		return nil, err
	}
	if now < st.StartTime || now-st.StartTime < v.MinLockDuration {
		return nil, errors.WithMessagef(ledger.ErrLockNotElapsed, "id %d", id)
	}

	if err := s.token.TransferOut(owner, st.Principal); err != nil {
		logger.Info("unstake transfer failed", "owner", owner, "error", err)
		return nil, errors.WithMessagef(ErrTokenTransfer, "return principal: %s", err)
	}
	if _, err := s.ledger.MarkUnstaked(id, now); err != nil {
		// the guards already passed, so this is persistence trouble;
		// pull the principal back rather than leave the stake active and paid
		logger.Error("unstake bookkeeping failed", "id", id, "error", err)
		if rbErr := s.token.TransferIn(owner, st.Principal); rbErr != nil {
			logger.Error("unstake rollback failed", "owner", owner, "error", rbErr)
		}
		return nil, err
	}

	s.observeVault(st.VaultIndex)
	logger.Info("unstaked", "owner", owner, "id", id, "principal", st.Principal)
	return st.Principal, nil
}

// pendingShares collects the per-stake pending rewards of the owner's
// active stakes in the vault, as claims ready for ledger settlement.
func (s *Staker) pendingShares(owner nuo.Address, vaultIndex uint32, now uint64) ([]ledger.Claim, *big.Int, error) {
	v, err := s.reg.Get(vaultIndex)
	if err != nil {
		return nil, nil, err
	}

	var shares []ledger.Claim
	total := new(big.Int)
	for _, st := range s.ledger.ListByOwner(owner) {
		if st.VaultIndex != vaultIndex || st.Unstaked {
			continue
		}
		if s.cliffGatesClaim && (now < st.StartTime || now-st.StartTime < v.MinLockDuration) {
			continue
		}
		pending := reward.Pending(st.Principal, v.AnnualRatePercent, st.StartTime, st.TotalClaimed, now)
		if pending.Sign() == 0 {
			continue
		}
		shares = append(shares, ledger.Claim{ID: st.ID, Amount: pending})
		total.Add(total, pending)
	}
	return shares, total, nil
}

func (s *Staker) observeVault(vaultIndex uint32) {
	balance, err := s.ledger.VaultBalance(vaultIndex)
	if err != nil {
		return
	}
	metricVaultStaked().SetWithLabel(wholeTokens(balance), map[string]string{"vault": vaultName(vaultIndex)})
	metricTotalStakes().Set(int64(s.ledger.TotalStakes()))
}
