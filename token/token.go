// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"

	"github.com/nuonetwork/staking/nuo"
)

// Token is the boundary the staking engine moves funds through.
// TransferIn pulls tokens from a holder into the engine's custody,
// TransferOut pays tokens out of custody. Implementations must confirm
// success explicitly; the engine never mutates its ledger before that.
type Token interface {
	TransferIn(from nuo.Address, amount *big.Int) error
	TransferOut(to nuo.Address, amount *big.Int) error
	BalanceOf(holder nuo.Address) *big.Int
}
