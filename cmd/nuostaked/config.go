// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nuonetwork/staking/vault"
)

const day = 24 * 60 * 60

// VaultConfig declares one vault. Vault indexes follow slice order.
type VaultConfig struct {
	AnnualRatePercent uint32 `yaml:"annualRatePercent"`
	MaxCapacity       string `yaml:"maxCapacity"`
	MinLockDays       uint32 `yaml:"minLockDays"`
}

// Config is the engine configuration loaded at startup.
type Config struct {
	Custody             string            `yaml:"custody"`
	Reserve             string            `yaml:"reserve"`
	HarvestBonusPercent uint32            `yaml:"harvestBonusPercent"`
	MinHarvest          string            `yaml:"minHarvest,omitempty"`
	CliffGatesClaim     bool              `yaml:"cliffGatesClaim,omitempty"`
	Vaults              []VaultConfig     `yaml:"vaults"`
	Balances            map[string]string `yaml:"balances,omitempty"`
}

// defaultConfig mirrors the production deployment: three vaults with
// rising rates and lock durations, and a 30% harvest bonus.
func defaultConfig() *Config {
	return &Config{
		Custody:             "0x0000000000000000000000000000000000000c57",
		Reserve:             "0x0000000000000000000000000000000000000e5e",
		HarvestBonusPercent: 30,
		Vaults: []VaultConfig{
			{AnnualRatePercent: 60, MaxCapacity: "1000000000000000000000000000000", MinLockDays: 360},
			{AnnualRatePercent: 90, MaxCapacity: "500000000000000000000000000000", MinLockDays: 720},
			{AnnualRatePercent: 120, MaxCapacity: "500000000000000000000000000000", MinLockDays: 1080},
		},
	}
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return &cfg, nil
}

// parseAmount accepts decimal or 0x-prefixed hex amounts.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("empty amount")
	}
	n, ok := math.ParseBig256(s)
	if !ok {
		return nil, errors.Errorf("malformed amount %q", s)
	}
	if n.Sign() < 0 {
		return nil, errors.Errorf("negative amount %q", s)
	}
	return n, nil
}

func (c *Config) buildVaults() ([]vault.Vault, error) {
	vaults := make([]vault.Vault, 0, len(c.Vaults))
	for i, vc := range c.Vaults {
		capacity, err := parseAmount(vc.MaxCapacity)
		if err != nil {
			return nil, errors.WithMessagef(err, "vault %d", i)
		}
		vaults = append(vaults, vault.Vault{
			Index:             uint32(i),
			AnnualRatePercent: vc.AnnualRatePercent,
			MaxCapacity:       capacity,
			MinLockDuration:   uint64(vc.MinLockDays) * day,
		})
	}
	return vaults, nil
}
