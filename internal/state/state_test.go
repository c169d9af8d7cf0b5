package state

import (
	"bytes"
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netswap/boost-engine/internal/kv"
	"github.com/netswap/boost-engine/internal/model"
)

type record struct {
	Owner  common.Address
	Amount *uint256.Int
	Height uint64
}

func TestLoadStoreThroughTx(t *testing.T) {
	store := kv.NewMemoryStore()
	tx := kv.Begin(context.Background(), store)
	s := New(tx, 42)

	var missing record
	ok, err := s.Load([]byte("r"), &missing)
	require.NoError(t, err)
	assert.False(t, ok)

	in := record{Owner: common.HexToAddress("0x01"), Amount: uint256.NewInt(7), Height: 3}
	require.NoError(t, s.Store([]byte("r"), &in))
	require.NoError(t, tx.Commit())

	s = New(kv.Begin(context.Background(), store), 43)
	var out record
	ok, err = s.Load([]byte("r"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Owner, out.Owner)
	assert.Equal(t, uint64(7), out.Amount.Uint64())
	assert.Equal(t, uint64(3), out.Height)
}

func TestScalarsDefaultToZero(t *testing.T) {
	s := New(kv.Begin(context.Background(), kv.NewMemoryStore()), 0)

	x, err := s.Uint(GlobalKey("farm", "totalAlloc"))
	require.NoError(t, err)
	assert.True(t, x.IsZero())

	require.NoError(t, s.SetUint64(GlobalKey("farm", "poolLength"), 5))
	n, err := s.Uint64(GlobalKey("farm", "poolLength"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	a, err := s.Address(GlobalKey("ve", "owner"))
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, a)
}

func TestEmitStampsTimestamp(t *testing.T) {
	s := New(kv.Begin(context.Background(), kv.NewMemoryStore()), 1000)
	alice := common.HexToAddress("0xa11ce")

	s.Emit(model.LedgerFarm, model.EventDeposit, alice, PID(2), uint256.NewInt(10), nil)
	s.Emit(model.LedgerEscrow, model.EventUpdateRewardVars, common.Address{}, nil, nil, nil)

	evs := s.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, uint64(1000), evs[0].Timestamp)
	assert.Equal(t, alice.Hex(), evs[0].Account)
	assert.Equal(t, uint64(2), *evs[0].PoolID)
	assert.Equal(t, "10", evs[0].Amount)
	assert.Empty(t, evs[1].Account)
	assert.Empty(t, evs[1].Amount)
}

func TestKeysDoNotCollide(t *testing.T) {
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")

	keys := [][]byte{
		PoolKey("farm", 1),
		PoolKey("boost", 1),
		PositionKey("farm", 1, a),
		PositionKey("farm", 1, b),
		BalanceKey(a, b),
		BalanceKey(b, a),
		AllowanceKey(a, a, b),
		VeKey(a),
		EscrowKey(a),
		RewarderKey(a),
		RewarderUserKey(a, b),
		EventKey(1),
	}
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			assert.False(t, bytes.Equal(keys[i], keys[j]), "keys %d and %d collide", i, j)
		}
	}
	assert.NotEqual(t, DeriveAddress("farm"), DeriveAddress("boost"))
}
