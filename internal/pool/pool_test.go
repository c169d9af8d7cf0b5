package pool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/schedule"
)

var p18 = fixedpoint.Precision()

func newPool(staked, factor uint64, bp uint32) Pool {
	return Pool{
		AllocPoint:   100,
		TotalStaked:  uint256.NewInt(staked),
		TotalFactor:  uint256.NewInt(factor),
		BoostShareBp: bp,
	}
}

func TestAdvanceSplitsStreams(t *testing.T) {
	p := newPool(100, 50, 5000)

	next, err := Advance(p, 10, uint256.NewInt(1000), p18)
	require.NoError(t, err)

	// 500 over 100 staked and 500 over 50 factor.
	assert.Equal(t, fixedpoint.Ether(5), next.AccRewardPerShare)
	assert.Equal(t, fixedpoint.Ether(10), next.AccRewardPerFactor)
	assert.Equal(t, uint64(10), next.LastRewardTime)
	assert.True(t, p.AccRewardPerShare == nil, "input pool must not be mutated")
}

func TestAdvanceIdempotent(t *testing.T) {
	p := newPool(100, 0, 0)

	once, err := Advance(p, 10, uint256.NewInt(1000), p18)
	require.NoError(t, err)
	twice, err := Advance(once, 10, uint256.NewInt(1000), p18)
	require.NoError(t, err)

	assert.Equal(t, once.AccRewardPerShare, twice.AccRewardPerShare)
	assert.Equal(t, once.LastRewardTime, twice.LastRewardTime)
}

func TestAdvanceEmptyPoolOnlyMovesClock(t *testing.T) {
	p := newPool(0, 0, 5000)

	next, err := Advance(p, 30, uint256.NewInt(1000), p18)
	require.NoError(t, err)
	assert.True(t, next.AccRewardPerShare.IsZero())
	assert.True(t, next.AccRewardPerFactor.IsZero())
	assert.Equal(t, uint64(30), next.LastRewardTime)
}

func TestAdvanceBoostLostWithoutFactor(t *testing.T) {
	p := newPool(100, 0, 5000)

	next, err := Advance(p, 10, uint256.NewInt(1000), p18)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Ether(5), next.AccRewardPerShare)
	assert.True(t, next.AccRewardPerFactor.IsZero())
}

func TestAdvanceRejectsBadShare(t *testing.T) {
	_, err := Advance(newPool(1, 1, 10_001), 1, uint256.NewInt(1), p18)
	assert.Error(t, err)
}

func TestPendingAndSettle(t *testing.T) {
	p := newPool(2000, 1000, 5000)
	alice := Position{Stake: uint256.NewInt(1000), Factor: uint256.NewInt(1000)}
	bob := Position{Stake: uint256.NewInt(1000)}
	require.NoError(t, Settle(p, &alice, p18))
	require.NoError(t, Settle(p, &bob, p18))

	p, err := Advance(p, 10, uint256.NewInt(1000), p18)
	require.NoError(t, err)

	base, boost, err := Pending(p, alice, p18)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), base.Uint64())
	assert.Equal(t, uint64(500), boost.Uint64())

	base, boost, err = Pending(p, bob, p18)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), base.Uint64())
	assert.True(t, boost.IsZero())

	require.NoError(t, Settle(p, &alice, p18))
	base, boost, err = Pending(p, alice, p18)
	require.NoError(t, err)
	assert.True(t, base.IsZero())
	assert.True(t, boost.IsZero())
}

func TestReward(t *testing.T) {
	s := schedule.New(0, uint256.NewInt(10))

	r, err := Reward(s, 0, 10, 25, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), r.Uint64())

	r, err = Reward(s, 0, 10, 25, 0)
	require.NoError(t, err)
	assert.True(t, r.IsZero())
}
