// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reward

import "math/big"

// SecondsPerYear is the fixed accrual divisor for all vaults.
// A 365-day year; it directly scales every payout and never changes.
const SecondsPerYear = 365 * 24 * 60 * 60

var (
	hundred     = big.NewInt(100)
	yearDivisor = big.NewInt(100 * SecondsPerYear)
)

// Accrued returns the gross reward accrued by a stake since startTime,
// growing linearly with elapsed time (simple, non-compounding interest):
//
//	principal * ratePercent * elapsed / (100 * SecondsPerYear)
//
// Integer math truncates toward zero; fractional remainders are dropped,
// never rounded up, so the engine can never over-pay.
// Monotonically non-decreasing in asOf.
func Accrued(principal *big.Int, ratePercent uint32, startTime, asOf uint64) *big.Int {
	if asOf <= startTime {
		return new(big.Int)
	}
	elapsed := asOf - startTime

	gross := new(big.Int).Mul(principal, big.NewInt(int64(ratePercent)))
	gross.Mul(gross, new(big.Int).SetUint64(elapsed))
	return gross.Quo(gross, yearDivisor)
}

// Pending returns the accrued-but-unclaimed reward of a stake.
// Never negative: a totalClaimed above gross (impossible under the
// ledger's overclaim guard) clamps to zero.
func Pending(principal *big.Int, ratePercent uint32, startTime uint64, totalClaimed *big.Int, asOf uint64) *big.Int {
	pending := Accrued(principal, ratePercent, startTime, asOf)
	pending.Sub(pending, totalClaimed)
	if pending.Sign() < 0 {
		return new(big.Int)
	}
	return pending
}

// Bonus returns amount * bonusPercent / 100, truncated.
func Bonus(amount *big.Int, bonusPercent uint32) *big.Int {
	bonus := new(big.Int).Mul(amount, big.NewInt(int64(bonusPercent)))
	return bonus.Quo(bonus, hundred)
}
