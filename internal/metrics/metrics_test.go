package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/netswap/boost-engine/internal/model"
)

func TestObserveEvents(t *testing.T) {
	before := testutil.ToFloat64(RewardsPaid.WithLabelValues(model.LedgerBoost))
	mintedBefore := testutil.ToFloat64(VeMinted)

	ObserveEvents([]model.Event{
		{Ledger: model.LedgerBoost, Kind: model.EventHarvest, Amount: "1500000000000000000"},
		{Ledger: model.LedgerVe, Kind: model.EventVeMint, Amount: "3000000000000000000000"},
		{Ledger: model.LedgerBoost, Kind: model.EventHarvest, Amount: "not a number"},
	})

	if got := testutil.ToFloat64(RewardsPaid.WithLabelValues(model.LedgerBoost)) - before; got != 1.5 {
		t.Errorf("rewards paid delta = %v, want 1.5", got)
	}
	if got := testutil.ToFloat64(VeMinted) - mintedBefore; got != 3000 {
		t.Errorf("ve minted delta = %v, want 3000", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/pools/{pid}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/pools/{pid}", "418"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/pools/7", nil))

	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d", w.Code)
	}
	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/pools/{pid}", "418")) - before; got != 1 {
		t.Errorf("request count delta = %v, want 1", got)
	}
}
