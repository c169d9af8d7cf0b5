package api

import (
	"net/http"

	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/engine"
	"github.com/netswap/boost-engine/internal/fixedpoint"
)

// EscrowParamsRequest is the JSON body for PUT /escrow/params. Omitted
// fields are left unchanged.
type EscrowParamsRequest struct {
	Caller           string  `json:"caller"`
	VePerSharePerSec *string `json:"ve_per_share_per_sec"`
	MaxCapPct        *uint64 `json:"max_cap_pct"`
	SpeedUpThreshold *uint64 `json:"speed_up_threshold"`
	SpeedUpDuration  *uint64 `json:"speed_up_duration"`
}

// GetEscrow handles GET /api/v1/escrow
func (s *Server) GetEscrow(w http.ResponseWriter, r *http.Request) {
	v, err := s.eng.Escrow(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetEscrowPosition handles GET /api/v1/escrow/users/{account}
func (s *Server) GetEscrowPosition(w http.ResponseWriter, r *http.Request) {
	account, err := addressParam(r, "account")
	if err != nil {
		fail(w, err)
		return
	}
	v, err := s.eng.EscrowPosition(r.Context(), account)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// EscrowDeposit handles POST /api/v1/escrow/deposit
func (s *Server) EscrowDeposit(w http.ResponseWriter, r *http.Request) {
	s.escrowStake(w, r, true)
}

// EscrowWithdraw handles POST /api/v1/escrow/withdraw
func (s *Server) EscrowWithdraw(w http.ResponseWriter, r *http.Request) {
	s.escrowStake(w, r, false)
}

func (s *Server) escrowStake(w http.ResponseWriter, r *http.Request, deposit bool) {
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
	if deposit {
		err = s.eng.EscrowDeposit(r.Context(), account, amount)
	} else {
		err = s.eng.EscrowWithdraw(r.Context(), account, amount)
	}
	if err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// EscrowClaim handles POST /api/v1/escrow/claim
func (s *Server) EscrowClaim(w http.ResponseWriter, r *http.Request) {
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
	if err := s.eng.EscrowClaim(r.Context(), account); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// EscrowUpdate handles POST /api/v1/escrow/update
func (s *Server) EscrowUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.EscrowUpdate(r.Context()); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// SetEscrowParams handles PUT /api/v1/escrow/params
func (s *Server) SetEscrowParams(w http.ResponseWriter, r *http.Request) {
	var req EscrowParamsRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		fail(w, err)
		return
	}
	p := engine.EscrowParams{
		MaxCapPct:        req.MaxCapPct,
		SpeedUpThreshold: req.SpeedUpThreshold,
		SpeedUpDuration:  req.SpeedUpDuration,
	}
	if req.VePerSharePerSec != nil {
		var rate *uint256.Int
		if rate, err = fixedpoint.Parse(*req.VePerSharePerSec); err != nil {
			fail(w, badRequest("ve_per_share_per_sec %q", *req.VePerSharePerSec))
			return
		}
		p.VePerSharePerSec = rate
	}
	if err := s.eng.EscrowSetParams(r.Context(), caller, p); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}
