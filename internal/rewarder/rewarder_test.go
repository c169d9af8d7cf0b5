package rewarder

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netswap/boost-engine/internal/asset"
	"github.com/netswap/boost-engine/internal/kv"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/state"
)

var (
	bonus = common.HexToAddress("0xb0")
	lp    = common.HexToAddress("0x1b")
	farm  = common.HexToAddress("0xfa")
	owner = common.HexToAddress("0x0e")
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

// at runs fn against a fresh transaction at time now and commits it.
func at(t *testing.T, store kv.Store, now uint64, fn func(*Registry, *asset.Bank)) {
	t.Helper()
	tx := kv.Begin(context.Background(), store)
	st := state.New(tx, now)
	bank := asset.New(st)
	fn(New(st, bank), bank)
	require.NoError(t, tx.Commit())
}

func setup(t *testing.T, funding uint64) (kv.Store, common.Address) {
	t.Helper()
	store := kv.NewMemoryStore()
	var addr common.Address
	at(t, store, 0, func(r *Registry, bank *asset.Bank) {
		var err error
		addr, err = r.Create(owner, bonus, lp, farm, uint256.NewInt(10), 0)
		require.NoError(t, err)
		require.NoError(t, bank.Mint(bonus, addr, uint256.NewInt(funding)))
	})
	return store, addr
}

func TestBonusSplitsByStake(t *testing.T) {
	store, addr := setup(t, 1_000_000)

	at(t, store, 0, func(r *Registry, _ *asset.Bank) {
		require.NoError(t, r.OnReward(addr, farm, alice, uint256.NewInt(100)))
	})
	at(t, store, 10, func(r *Registry, _ *asset.Bank) {
		_, p, err := r.PendingTokens(addr, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), p.Uint64())
		require.NoError(t, r.OnReward(addr, farm, bob, uint256.NewInt(100)))
	})
	at(t, store, 20, func(r *Registry, bank *asset.Bank) {
		token, p, err := r.PendingTokens(addr, alice)
		require.NoError(t, err)
		assert.Equal(t, bonus, token)
		assert.Equal(t, uint64(150), p.Uint64())

		_, p, err = r.PendingTokens(addr, bob)
		require.NoError(t, err)
		assert.Equal(t, uint64(50), p.Uint64())

		// Withdrawing everything pays out and zeroes the share.
		require.NoError(t, r.OnReward(addr, farm, alice, new(uint256.Int)))
		bal, _ := bank.BalanceOf(bonus, alice)
		assert.Equal(t, uint64(150), bal.Uint64())

		rec, err := r.Get(addr)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), rec.TotalShares.Uint64())
	})
}

func TestUnderfundedCarriesUnpaid(t *testing.T) {
	store, addr := setup(t, 120)

	at(t, store, 0, func(r *Registry, _ *asset.Bank) {
		require.NoError(t, r.OnReward(addr, farm, alice, uint256.NewInt(100)))
	})
	at(t, store, 20, func(r *Registry, bank *asset.Bank) {
		require.NoError(t, r.OnReward(addr, farm, alice, uint256.NewInt(100)))
		bal, _ := bank.BalanceOf(bonus, alice)
		assert.Equal(t, uint64(120), bal.Uint64())

		_, p, err := r.PendingTokens(addr, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(80), p.Uint64())
	})
}

func TestOnlyFarmNotifies(t *testing.T) {
	store, addr := setup(t, 0)
	at(t, store, 0, func(r *Registry, _ *asset.Bank) {
		err := r.OnReward(addr, alice, alice, uint256.NewInt(1))
		assert.True(t, errors.Is(err, model.ErrUnauthorized))
	})
}

func TestSetRewardRateAccruesFirst(t *testing.T) {
	store, addr := setup(t, 1_000_000)
	at(t, store, 0, func(r *Registry, _ *asset.Bank) {
		require.NoError(t, r.OnReward(addr, farm, alice, uint256.NewInt(100)))
	})
	at(t, store, 10, func(r *Registry, _ *asset.Bank) {
		assert.True(t, errors.Is(r.SetRewardRate(addr, alice, uint256.NewInt(1)), model.ErrUnauthorized))
		require.NoError(t, r.SetRewardRate(addr, owner, uint256.NewInt(20)))
	})
	at(t, store, 15, func(r *Registry, _ *asset.Bank) {
		_, p, err := r.PendingTokens(addr, alice)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), p.Uint64())
	})
}
