// Package api exposes the engine over HTTP and WebSocket.
//
// Quantities travel as base-unit decimal strings ("amount"), or as whole
// tokens ("amount_display") where a request accepts either. Responses pair
// every quantity with its shopspring/decimal display value.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/engine"
	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/metrics"
	"github.com/netswap/boost-engine/internal/model"
)

// Server holds the HTTP handlers. Every write goes through the engine,
// which serializes it.
type Server struct {
	eng *engine.Engine
	hub *Hub // optional
}

// NewServer creates the HTTP layer. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewServer(eng *engine.Engine, hub *Hub) *Server {
	return &Server{eng: eng, hub: hub}
}

// Routes builds the router with the standard middleware stack.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"boost-engine"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.hub != nil {
			r.Get("/ws", s.hub.HandleWS)
		}

		r.Post("/assets/{asset}/mint", s.Mint)
		r.Post("/assets/{asset}/approve", s.Approve)
		r.Post("/assets/{asset}/transfer", s.Transfer)
		r.Get("/assets/{asset}/balances/{account}", s.GetBalance)

		r.Route("/farm", func(r chi.Router) {
			r.Get("/", s.GetFarm)
			r.Get("/pools", s.ListFarmPools)
			r.Post("/pools", s.AddFarmPool)
			r.Get("/pools/{pid}", s.GetFarmPool)
			r.Put("/pools/{pid}", s.SetFarmPool)
			r.Post("/pools/{pid}/deposit", s.FarmDeposit)
			r.Post("/pools/{pid}/withdraw", s.FarmWithdraw)
			r.Post("/pools/{pid}/emergency-withdraw", s.FarmEmergencyWithdraw)
			r.Get("/pools/{pid}/users/{account}", s.GetFarmPosition)
			r.Post("/update", s.FarmMassUpdate)
			r.Put("/emission", s.UpdateEmission)
			r.Put("/dev", s.SetDevAddr)
		})

		r.Route("/boost", func(r chi.Router) {
			r.Get("/", s.GetBoost)
			r.Post("/init", s.BoostInit)
			r.Post("/harvest", s.BoostHarvest)
			r.Post("/update", s.BoostMassUpdate)
			r.Get("/pools", s.ListBoostPools)
			r.Post("/pools", s.AddBoostPool)
			r.Get("/pools/{pid}", s.GetBoostPool)
			r.Put("/pools/{pid}", s.SetBoostPool)
			r.Post("/pools/{pid}/deposit", s.BoostDeposit)
			r.Post("/pools/{pid}/withdraw", s.BoostWithdraw)
			r.Post("/pools/{pid}/emergency-withdraw", s.BoostEmergencyWithdraw)
			r.Get("/pools/{pid}/users/{account}", s.GetBoostPosition)
		})

		r.Route("/escrow", func(r chi.Router) {
			r.Get("/", s.GetEscrow)
			r.Get("/users/{account}", s.GetEscrowPosition)
			r.Post("/deposit", s.EscrowDeposit)
			r.Post("/withdraw", s.EscrowWithdraw)
			r.Post("/claim", s.EscrowClaim)
			r.Post("/update", s.EscrowUpdate)
			r.Put("/params", s.SetEscrowParams)
		})

		r.Get("/ve/{account}", s.GetVeBalance)

		r.Post("/rewarders", s.CreateRewarder)
		r.Get("/rewarders/{address}", s.GetRewarder)
		r.Put("/rewarders/{address}/rate", s.SetRewarderRate)

		r.Get("/events", s.ListEvents)
	})
	return r
}

// cors allows cross-origin requests from browser frontends.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Helpers ---

// errBadRequest marks malformed input caught before reaching the engine.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errBadRequest)
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrParameterOutOfRange),
		errors.Is(err, model.ErrInsufficientStake),
		errors.Is(err, model.ErrNothingStaked),
		errors.Is(err, model.ErrTransferFailed),
		errors.Is(err, fixedpoint.ErrOverflow),
		errors.Is(err, fixedpoint.ErrUnderflow):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, model.ErrPoolNotFound),
		errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyInitialized),
		errors.Is(err, model.ErrNotInitialized),
		errors.Is(err, model.ErrDuplicatePool):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err with the status it maps to. Internal errors are not
// echoed to the client.
func fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, msg, status)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ok is the body of a successful write.
func ok(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, badRequest("%s: %q is not an address", name, s)
	}
	return common.HexToAddress(s), nil
}

// parseOptionalAddress treats "" as the zero address.
func parseOptionalAddress(name, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	return parseAddress(name, s)
}

// parseAmount reads a base-unit amount, or a whole-token amount when only
// display is set.
func parseAmount(raw, display string) (*uint256.Int, error) {
	switch {
	case raw != "":
		v, err := fixedpoint.Parse(raw)
		if err != nil {
			return nil, badRequest("amount %q", raw)
		}
		return v, nil
	case display != "":
		v, err := model.ParseDisplay(display)
		if err != nil {
			return nil, badRequest("amount_display %q", display)
		}
		return v, nil
	}
	return new(uint256.Int), nil
}

func pidParam(r *http.Request) (uint64, error) {
	pid, err := strconv.ParseUint(chi.URLParam(r, "pid"), 10, 64)
	if err != nil {
		return 0, badRequest("pid %q", chi.URLParam(r, "pid"))
	}
	return pid, nil
}

func addressParam(r *http.Request, name string) (common.Address, error) {
	return parseAddress(name, chi.URLParam(r, name))
}
