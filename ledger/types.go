// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/nuonetwork/staking/nuo"
)

// Stake is a single principal deposit, tracked from creation to optional
// terminal withdrawal. Principal and StartTime are fixed at creation;
// TotalClaimed and Unstaked are the only mutable fields.
type Stake struct {
	ID           uint64      // sequential from 1, never reused
	Owner        nuo.Address // the staking party
	VaultIndex   uint32      // which vault's rules apply
	Principal    *big.Int    // locked amount, never mutated
	StartTime    uint64      // unix seconds, accrual baseline
	TotalClaimed *big.Int    // cumulative reward ever paid out or compounded
	Unstaked     bool        // terminal flag
}

// IsActive returns whether the stake still counts toward vault totals.
func (s *Stake) IsActive() bool {
	return !s.Unstaked
}

// Copy returns a deep copy of the stake.
func (s *Stake) Copy() *Stake {
	c := *s
	c.Principal = new(big.Int).Set(s.Principal)
	c.TotalClaimed = new(big.Int).Set(s.TotalClaimed)
	return &c
}
