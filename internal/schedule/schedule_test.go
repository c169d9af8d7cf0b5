package schedule

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestAccrued_SingleRate(t *testing.T) {
	s := New(100, u(10))

	got, err := s.Accrued(100, 130)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), got.Uint64())

	// Nothing before start.
	got, err = s.Accrued(50, 110)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got.Uint64())

	got, err = s.Accrued(130, 130)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestAccrued_MidStreamChange(t *testing.T) {
	// 1 for 10s, 2 for 10s, then 1.5 (scaled by 10) for 10s.
	s := New(0, u(10))
	require.NoError(t, s.SetRate(10, u(20)))
	require.NoError(t, s.SetRate(20, u(15)))

	got, err := s.Accrued(0, 30)
	require.NoError(t, err)
	assert.Equal(t, uint64(450), got.Uint64())

	got, err = s.Accrued(5, 25)
	require.NoError(t, err)
	assert.Equal(t, uint64(50+200+75), got.Uint64())
}

func TestSetRate_BeforeStartReplaces(t *testing.T) {
	s := New(1000, u(10))
	require.NoError(t, s.SetRate(500, u(7)))
	require.Len(t, s.Segments, 1)
	assert.Equal(t, uint64(1000), s.Start())
	assert.Equal(t, uint64(7), s.Current().Uint64())
}

func TestSetRate_Rewind(t *testing.T) {
	s := New(0, u(1))
	require.NoError(t, s.SetRate(10, u(2)))
	assert.ErrorIs(t, s.SetRate(5, u(3)), ErrRewindRate)
}

func TestSetRate_SameRateIsNoop(t *testing.T) {
	s := New(0, u(1))
	require.NoError(t, s.SetRate(10, u(1)))
	assert.Len(t, s.Segments, 1)
}

func TestRateAt(t *testing.T) {
	s := New(10, u(1))
	require.NoError(t, s.SetRate(20, u(2)))
	assert.True(t, s.RateAt(5).IsZero())
	assert.Equal(t, uint64(1), s.RateAt(15).Uint64())
	assert.Equal(t, uint64(2), s.RateAt(25).Uint64())
}

func TestPrune(t *testing.T) {
	s := New(0, u(1))
	require.NoError(t, s.SetRate(10, u(2)))
	require.NoError(t, s.SetRate(20, u(3)))

	before, err := s.Accrued(15, 30)
	require.NoError(t, err)

	s.Prune(15)
	require.Len(t, s.Segments, 2)

	after, err := s.Accrued(15, 30)
	require.NoError(t, err)
	assert.True(t, before.Eq(after))
}
