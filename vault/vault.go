// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"math/big"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration indicates an invalid vault set at configure time.
	ErrConfiguration = errors.New("invalid vault configuration")
	// ErrUnknownVault indicates a vault index out of range.
	ErrUnknownVault = errors.New("unknown vault")
)

// Vault is a fixed bucket of staking terms. Immutable once the registry is built.
type Vault struct {
	Index             uint32   // ordinal identifier, stable for the engine's lifetime
	AnnualRatePercent uint32   // yield per elapsed year, integer percent (60 = 60%/year)
	MaxCapacity       *big.Int // upper bound on total principal held simultaneously
	MinLockDuration   uint64   // seconds before principal may be withdrawn (cliff)
}

// Registry is the immutable-after-init catalog of vaults.
type Registry struct {
	vaults []Vault
}

// NewRegistry configures the registry. Called exactly once during initialization.
// Vaults must be supplied in index order starting at 0, each with positive capacity.
func NewRegistry(params []Vault) (*Registry, error) {
	if len(params) == 0 {
		return nil, errors.WithMessage(ErrConfiguration, "no vaults")
	}
	vaults := make([]Vault, len(params))
	for i, p := range params {
		if p.Index != uint32(i) {
			return nil, errors.WithMessagef(ErrConfiguration, "vault %d: index %d duplicated or out of order", i, p.Index)
		}
		if p.MaxCapacity == nil || p.MaxCapacity.Sign() <= 0 {
			return nil, errors.WithMessagef(ErrConfiguration, "vault %d: zero capacity", i)
		}
		vaults[i] = Vault{
			Index:             p.Index,
			AnnualRatePercent: p.AnnualRatePercent,
			MaxCapacity:       new(big.Int).Set(p.MaxCapacity),
			MinLockDuration:   p.MinLockDuration,
		}
	}
	return &Registry{vaults: vaults}, nil
}

// Get returns the vault at the given index.
func (r *Registry) Get(index uint32) (*Vault, error) {
	if int(index) >= len(r.vaults) {
		return nil, errors.WithMessagef(ErrUnknownVault, "index %d", index)
	}
	v := r.vaults[index]
	v.MaxCapacity = new(big.Int).Set(v.MaxCapacity)
	return &v, nil
}

// All returns the ordered vault list.
func (r *Registry) All() []Vault {
	out := make([]Vault, len(r.vaults))
	for i, v := range r.vaults {
		v.MaxCapacity = new(big.Int).Set(v.MaxCapacity)
		out[i] = v
	}
	return out
}

// Len returns the number of configured vaults.
func (r *Registry) Len() int {
	return len(r.vaults)
}
