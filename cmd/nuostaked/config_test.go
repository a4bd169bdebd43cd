// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuonetwork/staking/vault"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	vaults, err := cfg.buildVaults()
	require.NoError(t, err)
	require.Len(t, vaults, 3)

	reg, err := vault.NewRegistry(vaults)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	v, err := reg.Get(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(60), v.AnnualRatePercent)
	assert.Equal(t, uint64(360*day), v.MinLockDuration)

	expected, ok := new(big.Int).SetString("1000000000000000000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, expected, v.MaxCapacity)

	assert.Equal(t, uint32(30), cfg.HarvestBonusPercent)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
custody: "0x0000000000000000000000000000000000000001"
reserve: "0x0000000000000000000000000000000000000002"
harvestBonusPercent: 25
minHarvest: "1000"
cliffGatesClaim: true
vaults:
  - annualRatePercent: 10
    maxCapacity: "0x2710"
    minLockDays: 30
balances:
  "0x0000000000000000000000000000000000000003": "5000"
`), 0600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(25), cfg.HarvestBonusPercent)
	assert.True(t, cfg.CliffGatesClaim)

	vaults, err := cfg.buildVaults()
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	// hex amounts are accepted alongside decimal
	assert.Equal(t, big.NewInt(10_000), vaults[0].MaxCapacity)
	assert.Equal(t, uint64(30*day), vaults[0].MinLockDuration)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = parseAmount("")
	assert.Error(t, err)
	_, err = parseAmount("notanumber")
	assert.Error(t, err)

	cfg := &Config{Vaults: []VaultConfig{{AnnualRatePercent: 10, MaxCapacity: "bogus"}}}
	_, err = cfg.buildVaults()
	assert.Error(t, err)
}
