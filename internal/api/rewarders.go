package api

import (
	"net/http"
	"strconv"

	"github.com/netswap/boost-engine/internal/fixedpoint"
)

// CreateRewarderRequest is the JSON body for POST /rewarders. Farm is
// "farm" or "boost".
type CreateRewarderRequest struct {
	Owner       string `json:"owner"`
	RewardToken string `json:"reward_token"`
	StakeAsset  string `json:"stake_asset"`
	Farm        string `json:"farm"`
	TokenPerSec string `json:"token_per_sec"`
}

// RewarderRateRequest is the JSON body for PUT /rewarders/{address}/rate.
type RewarderRateRequest struct {
	Caller      string `json:"caller"`
	TokenPerSec string `json:"token_per_sec"`
}

// CreateRewarder handles POST /api/v1/rewarders
func (s *Server) CreateRewarder(w http.ResponseWriter, r *http.Request) {
	var req CreateRewarderRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		fail(w, err)
		return
	}
	token, err := parseAddress("reward_token", req.RewardToken)
	if err != nil {
		fail(w, err)
		return
	}
	stakeAsset, err := parseAddress("stake_asset", req.StakeAsset)
	if err != nil {
		fail(w, err)
		return
	}
	rate, err := fixedpoint.Parse(req.TokenPerSec)
	if err != nil {
		fail(w, badRequest("token_per_sec %q", req.TokenPerSec))
		return
	}
	addr, err := s.eng.CreateRewarder(r.Context(), owner, token, stakeAsset, req.Farm, rate)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"address": addr.Hex()})
}

// GetRewarder handles GET /api/v1/rewarders/{address}
func (s *Server) GetRewarder(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		fail(w, err)
		return
	}
	v, err := s.eng.Rewarder(r.Context(), addr)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetRewarderRate handles PUT /api/v1/rewarders/{address}/rate
func (s *Server) SetRewarderRate(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		fail(w, err)
		return
	}
	var req RewarderRateRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		fail(w, err)
		return
	}
	rate, err := fixedpoint.Parse(req.TokenPerSec)
	if err != nil {
		fail(w, badRequest("token_per_sec %q", req.TokenPerSec))
		return
	}
	if err := s.eng.SetRewarderRate(r.Context(), caller, addr, rate); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// ListEvents handles GET /api/v1/events?after=<seq>&limit=<n>
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var after uint64
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			fail(w, badRequest("after %q", v))
			return
		}
		after = n
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fail(w, badRequest("limit %q", v))
			return
		}
		limit = n
	}
	events, err := s.eng.Events(r.Context(), after, limit)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
