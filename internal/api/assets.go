package api

import (
	"net/http"
)

// MintRequest is the JSON body for POST /assets/{asset}/mint.
type MintRequest struct {
	Caller        string `json:"caller"`
	To            string `json:"to"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

// ApproveRequest is the JSON body for POST /assets/{asset}/approve.
// An empty amount grants an unlimited allowance.
type ApproveRequest struct {
	Owner         string `json:"owner"`
	Spender       string `json:"spender"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

// TransferRequest is the JSON body for POST /assets/{asset}/transfer.
type TransferRequest struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

// Mint handles POST /api/v1/assets/{asset}/mint
func (s *Server) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	asset, err := addressParam(r, "asset")
	if err != nil {
		fail(w, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		fail(w, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		fail(w, err)
		return
	}
	amount, err := parseAmount(req.Amount, req.AmountDisplay)
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.eng.Mint(r.Context(), caller, asset, to, amount); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// Approve handles POST /api/v1/assets/{asset}/approve
func (s *Server) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	asset, err := addressParam(r, "asset")
	if err != nil {
		fail(w, err)
		return
	}
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		fail(w, err)
		return
	}
	spender, err := parseAddress("spender", req.Spender)
	if err != nil {
		fail(w, err)
		return
	}
	amount, err := parseAmount(req.Amount, req.AmountDisplay)
	if err != nil {
		fail(w, err)
		return
	}
	if req.Amount == "" && req.AmountDisplay == "" {
		amount.SetAllOne()
	}
	if err := s.eng.Approve(r.Context(), asset, owner, spender, amount); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// Transfer handles POST /api/v1/assets/{asset}/transfer
func (s *Server) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	asset, err := addressParam(r, "asset")
	if err != nil {
		fail(w, err)
		return
	}
	from, err := parseAddress("from", req.From)
	if err != nil {
		fail(w, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		fail(w, err)
		return
	}
	amount, err := parseAmount(req.Amount, req.AmountDisplay)
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.eng.Transfer(r.Context(), asset, from, to, amount); err != nil {
		fail(w, err)
		return
	}
	ok(w)
}

// GetBalance handles GET /api/v1/assets/{asset}/balances/{account}
func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	asset, err := addressParam(r, "asset")
	if err != nil {
		fail(w, err)
		return
	}
	account, err := addressParam(r, "account")
	if err != nil {
		fail(w, err)
		return
	}
	bal, err := s.eng.Balance(r.Context(), asset, account)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":   asset.Hex(),
		"account": account.Hex(),
		"balance": bal,
	})
}

// GetVeBalance handles GET /api/v1/ve/{account}
func (s *Server) GetVeBalance(w http.ResponseWriter, r *http.Request) {
	account, err := addressParam(r, "account")
	if err != nil {
		fail(w, err)
		return
	}
	bal, supply, err := s.eng.VeBalance(r.Context(), account)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":      account.Hex(),
		"balance":      bal,
		"total_supply": supply,
	})
}
