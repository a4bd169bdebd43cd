// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/nuonetwork/staking/ledger"
	"github.com/nuonetwork/staking/nuo"
	"github.com/nuonetwork/staking/vault"
)

// Vault describes one vault of the catalog.
type Vault struct {
	Index             uint32                `json:"index"`
	AnnualRatePercent uint32                `json:"annualRatePercent"`
	MaxCapacity       *math.HexOrDecimal256 `json:"maxCapacity"`
	MinLockDuration   uint64                `json:"minLockDuration"`
}

func convertVault(v vault.Vault) Vault {
	return Vault{
		Index:             v.Index,
		AnnualRatePercent: v.AnnualRatePercent,
		MaxCapacity:       (*math.HexOrDecimal256)(v.MaxCapacity),
		MinLockDuration:   v.MinLockDuration,
	}
}

// Stake describes one stake record.
type Stake struct {
	ID           uint64                `json:"id"`
	Owner        nuo.Address           `json:"owner"`
	Vault        uint32                `json:"vault"`
	Amount       *math.HexOrDecimal256 `json:"amount"`
	TotalClaimed *math.HexOrDecimal256 `json:"totalClaimed"`
	StartTime    uint64                `json:"startTime"`
	Unstaked     bool                  `json:"unstaked"`
}

func convertStake(st *ledger.Stake) *Stake {
	return &Stake{
		ID:           st.ID,
		Owner:        st.Owner,
		Vault:        st.VaultIndex,
		Amount:       (*math.HexOrDecimal256)(st.Principal),
		TotalClaimed: (*math.HexOrDecimal256)(st.TotalClaimed),
		StartTime:    st.StartTime,
		Unstaked:     st.Unstaked,
	}
}

// EngineInfo describes the engine's wallet identities and payout policy.
type EngineInfo struct {
	Custody             nuo.Address           `json:"custody"`
	Reserve             nuo.Address           `json:"reserve"`
	HarvestBonusPercent uint32                `json:"harvestBonusPercent"`
	MinHarvest          *math.HexOrDecimal256 `json:"minHarvest,omitempty"`
	CliffGatesClaim     bool                  `json:"cliffGatesClaim"`
	Vaults              int                   `json:"vaults"`
}

// StakeRequest is the body of a stake command.
type StakeRequest struct {
	Owner  nuo.Address           `json:"owner"`
	Vault  uint32                `json:"vault"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// StakeResult reports the created stake.
type StakeResult struct {
	ID uint64 `json:"id"`
}

// ClaimRequest is the body of a claim command.
type ClaimRequest struct {
	Owner nuo.Address `json:"owner"`
	Vault uint32      `json:"vault"`
}

// ClaimResult reports the paid out reward.
type ClaimResult struct {
	Claimed *math.HexOrDecimal256 `json:"claimed"`
}

// HarvestRequest is the body of a harvest command.
type HarvestRequest struct {
	Owner     nuo.Address `json:"owner"`
	FromVault uint32      `json:"fromVault"`
	ToVault   uint32      `json:"toVault"`
}

// HarvestResult reports the compounded stake.
type HarvestResult struct {
	ID        uint64                `json:"id"`
	Principal *math.HexOrDecimal256 `json:"principal"`
}

// UnstakeRequest is the body of an unstake command.
type UnstakeRequest struct {
	Owner nuo.Address `json:"owner"`
}

// UnstakeResult reports the returned principal.
type UnstakeResult struct {
	Principal *math.HexOrDecimal256 `json:"principal"`
}

func amountOrNil(a *math.HexOrDecimal256) *big.Int {
	if a == nil {
		return nil
	}
	return (*big.Int)(a)
}
