// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"strconv"

	"github.com/nuonetwork/staking/metrics"
)

var (
	metricOpCount     = metrics.LazyLoadCounterVec("op_count", []string{"op", "outcome"})
	metricVaultStaked = metrics.LazyLoadGaugeVec("vault_staked_tokens", []string{"vault"})
	metricTotalStakes = metrics.LazyLoadGauge("stakes_total")
)

// countOp counts one engine command by name and outcome, so rejection
// rates show up next to successes.
func countOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "err"
	}
	metricOpCount().AddWithLabel(1, map[string]string{"op": op, "outcome": outcome})
}

var weiPerToken = big.NewInt(1e18)

// wholeTokens reports an 18-decimal amount in whole tokens, rounded down,
// so vault balances fit a gauge.
func wholeTokens(v *big.Int) int64 {
	return new(big.Int).Div(v, weiPerToken).Int64()
}

func vaultName(index uint32) string {
	return strconv.FormatUint(uint64(index), 10)
}
