// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reward

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecondsPerYear(t *testing.T) {
	// fixed 365-day year, documented divisor
	assert.Equal(t, 31_536_000, SecondsPerYear)
}

func TestAccruedOneYear(t *testing.T) {
	// 1000 units at 60%/year for exactly one year -> 600
	principal := big.NewInt(1000)
	got := Accrued(principal, 60, 0, SecondsPerYear)
	assert.Equal(t, big.NewInt(600), got)
}

func TestAccruedTruncatesTowardZero(t *testing.T) {
	// one second of 1000 @ 60%: 1000*60/(100*SecondsPerYear) < 1 -> 0
	got := Accrued(big.NewInt(1000), 60, 0, 1)
	assert.Equal(t, int64(0), got.Int64())

	// half a year of 1001 @ 60%: 1001*0.3 = 300.3 -> 300
	got = Accrued(big.NewInt(1001), 60, 0, SecondsPerYear/2)
	assert.Equal(t, int64(300), got.Int64())
}

func TestAccruedBeforeStart(t *testing.T) {
	got := Accrued(big.NewInt(1000), 60, 100, 50)
	assert.Equal(t, int64(0), got.Int64())

	got = Accrued(big.NewInt(1000), 60, 100, 100)
	assert.Equal(t, int64(0), got.Int64())
}

func TestAccruedMonotonic(t *testing.T) {
	principal, ok := new(big.Int).SetString("1000000000000000000000", 10)
	assert.True(t, ok)

	prev := new(big.Int)
	for asOf := uint64(0); asOf < 10*SecondsPerYear; asOf += SecondsPerYear / 7 {
		got := Accrued(principal, 90, 0, asOf)
		assert.True(t, got.Cmp(prev) >= 0, "accrual decreased at %d", asOf)
		prev = got
	}
}

func TestPending(t *testing.T) {
	principal := big.NewInt(1000)

	pending := Pending(principal, 60, 0, big.NewInt(0), SecondsPerYear)
	assert.Equal(t, big.NewInt(600), pending)

	pending = Pending(principal, 60, 0, big.NewInt(250), SecondsPerYear)
	assert.Equal(t, big.NewInt(350), pending)

	// fully claimed
	pending = Pending(principal, 60, 0, big.NewInt(600), SecondsPerYear)
	assert.Equal(t, int64(0), pending.Int64())

	// clamp, not negative
	pending = Pending(principal, 60, 0, big.NewInt(700), SecondsPerYear)
	assert.Equal(t, int64(0), pending.Int64())
}

func TestBonus(t *testing.T) {
	assert.Equal(t, big.NewInt(180), Bonus(big.NewInt(600), 30))
	assert.Equal(t, big.NewInt(0), Bonus(big.NewInt(600), 0))
	// truncation: 33 * 30 / 100 = 9.9 -> 9
	assert.Equal(t, big.NewInt(9), Bonus(big.NewInt(33), 30))
}
