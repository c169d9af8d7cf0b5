package api

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
)

// AddPoolRequest is the JSON body for POST /farm/pools and /boost/pools.
// BoostShareBp is ignored by the base farm.
type AddPoolRequest struct {
	Caller       string `json:"caller"`
	AllocPoint   uint64 `json:"alloc_point"`
	BoostShareBp uint32 `json:"boost_share_bp"`
	Asset        string `json:"asset"`
	Rewarder     string `json:"rewarder"`
}

// SetPoolRequest is the JSON body for PUT /farm/pools/{pid} and
// /boost/pools/{pid}. The rewarder is replaced only with Overwrite.
type SetPoolRequest struct {
	Caller       string `json:"caller"`
	AllocPoint   uint64 `json:"alloc_point"`
	BoostShareBp uint32 `json:"boost_share_bp"`
	Rewarder     string `json:"rewarder"`
	Overwrite    bool   `json:"overwrite"`
}

// StakeRequest is the JSON body of deposit and withdraw calls. A zero
// amount on a farm harvests.
type StakeRequest struct {
	Account       string `json:"account"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

// AccountRequest names the account an operation acts for.
type AccountRequest struct {
	Account string `json:"account"`
}

// EmissionRequest is the JSON body for PUT /farm/emission.
type EmissionRequest struct {
	Caller       string `json:"caller"`
	RewardPerSec string `json:"reward_per_sec"`
}

// DevAddrRequest is the JSON body for PUT /farm/dev.
type DevAddrRequest struct {
	Caller string `json:"caller"`
	Dev    string `json:"dev"`
}

// BoostInitRequest is the JSON body for POST /boost/init.
type BoostInitRequest struct {
	Caller string `json:"caller"`
	Dummy  string `json:"dummy"`
}

// PoolCreated is returned when a pool is added.
type PoolCreated struct {
	PID uint64 `json:"pid"`
}

type stakeFunc func(ctx context.Context, account common.Address, pid uint64, amount *uint256.Int) error

// stake decodes a StakeRequest and hands it to fn.
func (s *Server) stake(w http.ResponseWriter, r *http.Request, fn stakeFunc) {
	pid, err := pidParam(r)
	if err != nil {
		fail(w, err)
		return
	}
	var req StakeRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	account, err := parseAddress("account", req.Account)
	if err != nil {
		fail(w, err)
		return
	}
	amount, err := parseAmount(req.Amount, req.AmountDisplay)
	if err != nil {
		fail(w, err)
		return
	}
	if err := fn(r.Context(), account, pid, amount); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

func (s *Server) emergency(w http.ResponseWriter, r *http.Request, fn func(context.Context, common.Address, uint64) error) {
	pid, err := pidParam(r)
	if err != nil {
		fail(w, err)
		return
	}
	var req AccountRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	account, err := parseAddress("account", req.Account)
	if err != nil {
		fail(w, err)
		return
	}
	if err := fn(r.Context(), account, pid); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

func (s *Server) position(w http.ResponseWriter, r *http.Request, fn func(context.Context, uint64, common.Address) (model.PositionView, error)) {
	pid, err := pidParam(r)
	if err != nil {
		fail(w, err)
		return
	}
	account, err := addressParam(r, "account")
	if err != nil {
		fail(w, err)
		return
	}
	v, err := fn(r.Context(), pid, account)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) pool(w http.ResponseWriter, r *http.Request, fn func(context.Context, uint64) (model.PoolView, error)) {
	pid, err := pidParam(r)
	if err != nil {
		fail(w, err)
		return
	}
	v, err := fn(r.Context(), pid)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// decodeAddPool parses an AddPoolRequest.
func decodeAddPool(r *http.Request) (req AddPoolRequest, caller, asset, rewarder common.Address, err error) {
	if err = decode(r, &req); err != nil {
		return
	}
	if caller, err = parseAddress("caller", req.Caller); err != nil {
		return
	}
	if asset, err = parseAddress("asset", req.Asset); err != nil {
		return
	}
	rewarder, err = parseOptionalAddress("rewarder", req.Rewarder)
	return
}

// decodeSetPool parses a SetPoolRequest.
func decodeSetPool(r *http.Request) (req SetPoolRequest, pid uint64, caller, rewarder common.Address, err error) {
	if pid, err = pidParam(r); err != nil {
		return
	}
	if err = decode(r, &req); err != nil {
		return
	}
	if caller, err = parseAddress("caller", req.Caller); err != nil {
		return
	}
	rewarder, err = parseOptionalAddress("rewarder", req.Rewarder)
	return
}

// --- Base farm ---

// GetFarm handles GET /api/v1/farm
func (s *Server) GetFarm(w http.ResponseWriter, r *http.Request) {
	v, err := s.eng.FarmInfo(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListFarmPools handles GET /api/v1/farm/pools
func (s *Server) ListFarmPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.eng.FarmPools(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

// AddFarmPool handles POST /api/v1/farm/pools
func (s *Server) AddFarmPool(w http.ResponseWriter, r *http.Request) {
	req, caller, asset, rewarder, err := decodeAddPool(r)
	if err != nil {
		fail(w, err)
		return
	}
	pid, err := s.eng.FarmAdd(r.Context(), caller, req.AllocPoint, asset, rewarder)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, PoolCreated{PID: pid})
}

// GetFarmPool handles GET /api/v1/farm/pools/{pid}
func (s *Server) GetFarmPool(w http.ResponseWriter, r *http.Request) {
	s.pool(w, r, s.eng.FarmPool)
}

// SetFarmPool handles PUT /api/v1/farm/pools/{pid}
func (s *Server) SetFarmPool(w http.ResponseWriter, r *http.Request) {
	req, pid, caller, rewarder, err := decodeSetPool(r)
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.eng.FarmSet(r.Context(), caller, pid, req.AllocPoint, rewarder, req.Overwrite); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// FarmDeposit handles POST /api/v1/farm/pools/{pid}/deposit
func (s *Server) FarmDeposit(w http.ResponseWriter, r *http.Request) {
	s.stake(w, r, s.eng.FarmDeposit)
}

// FarmWithdraw handles POST /api/v1/farm/pools/{pid}/withdraw
func (s *Server) FarmWithdraw(w http.ResponseWriter, r *http.Request) {
	s.stake(w, r, s.eng.FarmWithdraw)
}

// FarmEmergencyWithdraw handles POST /api/v1/farm/pools/{pid}/emergency-withdraw
func (s *Server) FarmEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	s.emergency(w, r, s.eng.FarmEmergencyWithdraw)
}

// GetFarmPosition handles GET /api/v1/farm/pools/{pid}/users/{account}
func (s *Server) GetFarmPosition(w http.ResponseWriter, r *http.Request) {
	s.position(w, r, s.eng.FarmPosition)
}

// FarmMassUpdate handles POST /api/v1/farm/update
func (s *Server) FarmMassUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.FarmMassUpdatePools(r.Context()); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// UpdateEmission handles PUT /api/v1/farm/emission
func (s *Server) UpdateEmission(w http.ResponseWriter, r *http.Request) {
	var req EmissionRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		fail(w, err)
		return
	}
	rate, err := fixedpoint.Parse(req.RewardPerSec)
	if err != nil {
		fail(w, badRequest("reward_per_sec %q", req.RewardPerSec))
		return
	}
	if err := s.eng.FarmUpdateEmissionRate(r.Context(), caller, rate); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// SetDevAddr handles PUT /api/v1/farm/dev
func (s *Server) SetDevAddr(w http.ResponseWriter, r *http.Request) {
	var req DevAddrRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		fail(w, err)
		return
	}
	dev, err := parseAddress("dev", req.Dev)
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.eng.FarmSetDevAddr(r.Context(), caller, dev); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// --- Boosted farm ---

// GetBoost handles GET /api/v1/boost
func (s *Server) GetBoost(w http.ResponseWriter, r *http.Request) {
	v, err := s.eng.BoostInfo(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// BoostInit handles POST /api/v1/boost/init
func (s *Server) BoostInit(w http.ResponseWriter, r *http.Request) {
	var req BoostInitRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		fail(w, err)
		return
	}
	dummy, err := parseAddress("dummy", req.Dummy)
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.eng.BoostInit(r.Context(), caller, dummy); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// BoostHarvest handles POST /api/v1/boost/harvest
func (s *Server) BoostHarvest(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.BoostHarvest(r.Context()); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// BoostMassUpdate handles POST /api/v1/boost/update
func (s *Server) BoostMassUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.BoostMassUpdatePools(r.Context()); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// ListBoostPools handles GET /api/v1/boost/pools
func (s *Server) ListBoostPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.eng.BoostPools(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

// AddBoostPool handles POST /api/v1/boost/pools
func (s *Server) AddBoostPool(w http.ResponseWriter, r *http.Request) {
	req, caller, asset, rewarder, err := decodeAddPool(r)
	if err != nil {
		fail(w, err)
		return
	}
	pid, err := s.eng.BoostAdd(r.Context(), caller, req.AllocPoint, req.BoostShareBp, asset, rewarder)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, PoolCreated{PID: pid})
}

// GetBoostPool handles GET /api/v1/boost/pools/{pid}
func (s *Server) GetBoostPool(w http.ResponseWriter, r *http.Request) {
	s.pool(w, r, s.eng.BoostPool)
}

// SetBoostPool handles PUT /api/v1/boost/pools/{pid}
func (s *Server) SetBoostPool(w http.ResponseWriter, r *http.Request) {
	req, pid, caller, rewarder, err := decodeSetPool(r)
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.eng.BoostSet(r.Context(), caller, pid, req.AllocPoint, req.BoostShareBp, rewarder, req.Overwrite); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// BoostDeposit handles POST /api/v1/boost/pools/{pid}/deposit
func (s *Server) BoostDeposit(w http.ResponseWriter, r *http.Request) {
	s.stake(w, r, s.eng.BoostDeposit)
}

// BoostWithdraw handles POST /api/v1/boost/pools/{pid}/withdraw
func (s *Server) BoostWithdraw(w http.ResponseWriter, r *http.Request) {
	s.stake(w, r, s.eng.BoostWithdraw)
}

// BoostEmergencyWithdraw handles POST /api/v1/boost/pools/{pid}/emergency-withdraw
func (s *Server) BoostEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	s.emergency(w, r, s.eng.BoostEmergencyWithdraw)
}

// GetBoostPosition handles GET /api/v1/boost/pools/{pid}/users/{account}
func (s *Server) GetBoostPosition(w http.ResponseWriter, r *http.Request) {
	s.position(w, r, s.eng.BoostPosition)
}
