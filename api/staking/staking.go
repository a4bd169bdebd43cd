// Copyright (c) 2025 The NuoStaking developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/nuonetwork/staking/api/restutil"
	"github.com/nuonetwork/staking/ledger"
	"github.com/nuonetwork/staking/nuo"
	engine "github.com/nuonetwork/staking/staking"
	"github.com/nuonetwork/staking/vault"
)

// Staking exposes the engine over REST.
type Staking struct {
	engine *engine.Staker
}

func New(eng *engine.Staker) *Staking {
	return &Staking{eng}
}

func (s *Staking) handleGetVaults(w http.ResponseWriter, _ *http.Request) error {
	all := s.engine.GetVaults()
	vaults := make([]Vault, 0, len(all))
	for _, v := range all {
		vaults = append(vaults, convertVault(v))
	}
	return restutil.WriteJSON(w, vaults)
}

func (s *Staking) handleGetInfo(w http.ResponseWriter, _ *http.Request) error {
	info := s.engine.GetInfo()
	return restutil.WriteJSON(w, &EngineInfo{
		Custody:             info.Custody,
		Reserve:             info.Reserve,
		HarvestBonusPercent: info.HarvestBonusPercent,
		MinHarvest:          (*math.HexOrDecimal256)(info.MinHarvest),
		CliffGatesClaim:     info.CliffGatesClaim,
		Vaults:              info.Vaults,
	})
}

func (s *Staking) handleGetVaultStaked(w http.ResponseWriter, req *http.Request) error {
	index, err := parseVaultIndex(mux.Vars(req)["index"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "index"))
	}
	staked, err := s.engine.TokensStakedInVault(index)
	if err != nil {
		return convertEngineError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"staked": (*math.HexOrDecimal256)(staked)})
}

func (s *Staking) handleGetTotalStakes(w http.ResponseWriter, _ *http.Request) error {
	return restutil.WriteJSON(w, restutil.M{"total": s.engine.TotalStakes()})
}

func (s *Staking) handleGetStake(w http.ResponseWriter, req *http.Request) error {
	id, err := parseStakeID(mux.Vars(req)["id"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	st, err := s.engine.GetStakeInfoByID(id)
	if err != nil {
		return convertEngineError(err)
	}
	return restutil.WriteJSON(w, convertStake(st))
}

func (s *Staking) handleGetStakeReward(w http.ResponseWriter, req *http.Request) error {
	id, err := parseStakeID(mux.Vars(req)["id"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	pending, err := s.engine.GetStakingReward(id)
	if err != nil {
		return convertEngineError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"pending": (*math.HexOrDecimal256)(pending)})
}

func (s *Staking) handleGetOwnerStakes(w http.ResponseWriter, req *http.Request) error {
	owner, err := nuo.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	all := s.engine.ListStakesByOwner(*owner)
	stakes := make([]*Stake, 0, len(all))
	for _, st := range all {
		stakes = append(stakes, convertStake(st))
	}
	return restutil.WriteJSON(w, stakes)
}

func (s *Staking) handleStake(w http.ResponseWriter, req *http.Request) error {
	var body StakeRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	id, err := s.engine.Stake(body.Owner, amountOrNil(body.Amount), body.Vault)
	if err != nil {
		return convertEngineError(err)
	}
	return restutil.WriteJSON(w, &StakeResult{ID: id})
}

func (s *Staking) handleClaim(w http.ResponseWriter, req *http.Request) error {
	var body ClaimRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	claimed, err := s.engine.ClaimAll(body.Owner, body.Vault)
	if err != nil {
		return convertEngineError(err)
	}
	return restutil.WriteJSON(w, &ClaimResult{Claimed: (*math.HexOrDecimal256)(claimed)})
}

func (s *Staking) handleHarvest(w http.ResponseWriter, req *http.Request) error {
	var body HarvestRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	id, principal, err := s.engine.HarvestAllToVault(body.Owner, body.FromVault, body.ToVault)
	if err != nil {
		return convertEngineError(err)
	}
	return restutil.WriteJSON(w, &HarvestResult{ID: id, Principal: (*math.HexOrDecimal256)(principal)})
}

func (s *Staking) handleUnstake(w http.ResponseWriter, req *http.Request) error {
	id, err := parseStakeID(mux.Vars(req)["id"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	var body UnstakeRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	principal, err := s.engine.Unstake(body.Owner, id)
	if err != nil {
		return convertEngineError(err)
	}
	return restutil.WriteJSON(w, &UnstakeResult{Principal: (*math.HexOrDecimal256)(principal)})
}

func parseVaultIndex(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func parseStakeID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// convertEngineError maps engine rejections onto http statuses: unknown
// records are 404, malformed input is 400, policy rejections are 403.
func convertEngineError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrUnknownStake):
		return restutil.NotFound(err)
	case errors.Is(err, vault.ErrUnknownVault),
		errors.Is(err, engine.ErrInvalidAmount):
		return restutil.BadRequest(err)
	case errors.Is(err, ledger.ErrCapacityExceeded),
		errors.Is(err, ledger.ErrLockNotElapsed),
		errors.Is(err, ledger.ErrAlreadyUnstaked),
		errors.Is(err, engine.ErrNoRewardsToClaim),
		errors.Is(err, engine.ErrInsufficientHarvest),
		errors.Is(err, engine.ErrInsufficientReserve),
		errors.Is(err, engine.ErrNotStakeOwner),
		errors.Is(err, engine.ErrTokenTransfer):
		return restutil.Forbidden(err)
	}
	return err
}

func (s *Staking) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/info").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetInfo))
	sub.Path("/vaults").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetVaults))
	sub.Path("/vaults/{index}/staked").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetVaultStaked))
	sub.Path("/stakes/total").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetTotalStakes))
	sub.Path("/stakes/{id}").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetStake))
	sub.Path("/stakes/{id}/reward").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetStakeReward))
	sub.Path("/owners/{address}/stakes").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(s.handleGetOwnerStakes))

	sub.Path("/stakes").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleStake))
	sub.Path("/claims").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleClaim))
	sub.Path("/harvests").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleHarvest))
	sub.Path("/stakes/{id}/unstake").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(s.handleUnstake))
}
