package farm

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
	"github.com/netswap/boost-engine/internal/rewarder"
	"github.com/netswap/boost-engine/internal/state"
)

var (
	owner = common.HexToAddress("0x0e")
	dev   = common.HexToAddress("0xde")
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	nett  = common.HexToAddress("0x4e77")
	lpA   = common.HexToAddress("0x1a")
	lpB   = common.HexToAddress("0x1b")
	bonus = common.HexToAddress("0xb0")
)

type harness struct {
	t     *testing.T
	store kv.Store
	now   uint64
}

type ledgers struct {
	farm      *Farm
	bank      *asset.Bank
	rewarders *rewarder.Registry
}

// do runs fn as one atomic operation at h.now.
func (h *harness) do(fn func(l ledgers) error) error {
	tx := kv.Begin(context.Background(), h.store)
	st := state.New(tx, h.now)
	bank := asset.New(st)
	rw := rewarder.New(st, bank)
	if err := fn(ledgers{farm: New(st, bank, rw), bank: bank, rewarders: rw}); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

func (h *harness) must(fn func(l ledgers) error) {
	h.t.Helper()
	require.NoError(h.t, h.do(fn))
}

func newHarness(t *testing.T, devPercent uint64, start uint64) *harness {
	h := &harness{t: t, store: kv.NewMemoryStore()}
	h.must(func(l ledgers) error {
		if err := l.farm.Initialize(Params{
			Owner:          owner,
			RewardToken:    nett,
			DevAddr:        dev,
			DevPercent:     devPercent,
			RewardPerSec:   uint256.NewInt(100),
			StartTimestamp: start,
		}); err != nil {
			return err
		}
		for _, who := range []common.Address{alice, bob} {
			for _, lp := range []common.Address{lpA, lpB} {
				if err := l.bank.Mint(lp, who, uint256.NewInt(10_000)); err != nil {
					return err
				}
				if err := l.bank.Approve(lp, who, Address, asset.Unlimited()); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return h
}

func (h *harness) addPool(alloc uint64, lp common.Address) uint64 {
	h.t.Helper()
	var pid uint64
	h.must(func(l ledgers) error {
		var err error
		pid, err = l.farm.Add(owner, alloc, lp, common.Address{})
		return err
	})
	return pid
}

func (h *harness) deposit(who common.Address, pid, amount uint64) {
	h.t.Helper()
	h.must(func(l ledgers) error { return l.farm.Deposit(who, pid, uint256.NewInt(amount)) })
}

func (h *harness) pending(pid uint64, who common.Address) uint64 {
	h.t.Helper()
	var out Pending
	h.must(func(l ledgers) error {
		var err error
		out, err = l.farm.PendingTokens(pid, who)
		return err
	})
	return out.Reward.Uint64()
}

func (h *harness) balance(token, who common.Address) uint64 {
	h.t.Helper()
	var v *uint256.Int
	h.must(func(l ledgers) error {
		var err error
		v, err = l.bank.BalanceOf(token, who)
		return err
	})
	return v.Uint64()
}

func TestSingleStakerHarvest(t *testing.T) {
	h := newHarness(t, 0, 0)
	pid := h.addPool(100, lpA)
	h.deposit(alice, pid, 1000)

	h.now = 10
	assert.Equal(t, uint64(1000), h.pending(pid, alice))

	h.deposit(alice, pid, 0)
	assert.Equal(t, uint64(1000), h.balance(nett, alice))
	assert.Equal(t, uint64(0), h.pending(pid, alice))
	assert.Equal(t, uint64(9000), h.balance(lpA, alice))
}

func TestStakersShareByStake(t *testing.T) {
	h := newHarness(t, 0, 0)
	pid := h.addPool(100, lpA)
	h.deposit(alice, pid, 1000)

	h.now = 10
	h.deposit(bob, pid, 1000)

	h.now = 20
	assert.Equal(t, uint64(1500), h.pending(pid, alice))
	assert.Equal(t, uint64(500), h.pending(pid, bob))

	var p poolTotals
	h.must(func(l ledgers) error { return p.read(l.farm, pid, alice, bob) })
	assert.Equal(t, p.total, p.sum, "total staked equals the sum of stakes")
}

type poolTotals struct{ total, sum uint64 }

func (p *poolTotals) read(f *Farm, pid uint64, accounts ...common.Address) error {
	pl, err := f.Pool(pid)
	if err != nil {
		return err
	}
	p.total = pl.TotalStaked.Uint64()
	for _, a := range accounts {
		u, err := f.Position(pid, a)
		if err != nil {
			return err
		}
		p.sum += u.Stake.Uint64()
	}
	return nil
}

func TestWeightedPools(t *testing.T) {
	h := newHarness(t, 0, 0)
	a := h.addPool(100, lpA)
	b := h.addPool(300, lpB)
	h.deposit(alice, a, 1000)
	h.deposit(bob, b, 1000)

	h.now = 10
	assert.Equal(t, uint64(250), h.pending(a, alice))
	assert.Equal(t, uint64(750), h.pending(b, bob))
}

func TestEmissionRateChangeIsExact(t *testing.T) {
	h := newHarness(t, 0, 0)
	pid := h.addPool(100, lpA)
	h.deposit(alice, pid, 1000)

	h.now = 10
	h.must(func(l ledgers) error { return l.farm.UpdateEmissionRate(owner, uint256.NewInt(300)) })

	h.now = 20
	assert.Equal(t, uint64(4000), h.pending(pid, alice))

	err := h.do(func(l ledgers) error { return l.farm.UpdateEmissionRate(alice, uint256.NewInt(1)) })
	assert.True(t, errors.Is(err, model.ErrUnauthorized))
}

func TestDevShare(t *testing.T) {
	h := newHarness(t, 100, 0)
	pid := h.addPool(100, lpA)
	h.deposit(alice, pid, 1000)

	h.now = 10
	assert.Equal(t, uint64(900), h.pending(pid, alice))
	h.deposit(alice, pid, 0)
	assert.Equal(t, uint64(900), h.balance(nett, alice))
	assert.Equal(t, uint64(100), h.balance(nett, dev))

	err := h.do(func(l ledgers) error { return l.farm.SetDevAddr(alice, alice) })
	assert.True(t, errors.Is(err, model.ErrUnauthorized))
	h.must(func(l ledgers) error { return l.farm.SetDevAddr(dev, bob) })
}

func TestNothingEmittedBeforeStart(t *testing.T) {
	h := newHarness(t, 0, 100)
	pid := h.addPool(100, lpA)
	h.now = 50
	h.deposit(alice, pid, 1000)

	h.now = 100
	assert.Equal(t, uint64(0), h.pending(pid, alice))
	h.now = 110
	assert.Equal(t, uint64(1000), h.pending(pid, alice))
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t, 0, 0)
	pid := h.addPool(100, lpA)
	h.deposit(alice, pid, 1000)
	h.now = 10

	err := h.do(func(l ledgers) error { return l.farm.Withdraw(alice, pid, uint256.NewInt(1001)) })
	require.True(t, errors.Is(err, model.ErrInsufficientStake))
	// The failed operation left nothing behind.
	assert.Equal(t, uint64(0), h.balance(nett, alice))

	// Zero withdraw is a harvest.
	h.must(func(l ledgers) error { return l.farm.Withdraw(alice, pid, new(uint256.Int)) })
	assert.Equal(t, uint64(1000), h.balance(nett, alice))

	h.now = 20
	h.must(func(l ledgers) error { return l.farm.Withdraw(alice, pid, uint256.NewInt(400)) })
	assert.Equal(t, uint64(2000), h.balance(nett, alice))
	assert.Equal(t, uint64(9400), h.balance(lpA, alice))
}

func TestEmergencyWithdrawForfeitsReward(t *testing.T) {
	h := newHarness(t, 0, 0)
	pid := h.addPool(100, lpA)
	h.deposit(alice, pid, 1000)
	h.now = 10

	h.must(func(l ledgers) error { return l.farm.EmergencyWithdraw(alice, pid) })
	assert.Equal(t, uint64(10_000), h.balance(lpA, alice))
	assert.Equal(t, uint64(0), h.balance(nett, alice))
	assert.Equal(t, uint64(0), h.pending(pid, alice))

	var p poolTotals
	h.must(func(l ledgers) error { return p.read(l.farm, pid) })
	assert.Equal(t, uint64(0), p.total)
}

func TestAddGuards(t *testing.T) {
	h := newHarness(t, 0, 0)
	h.addPool(100, lpA)

	err := h.do(func(l ledgers) error {
		_, err := l.farm.Add(owner, 100, lpA, common.Address{})
		return err
	})
	assert.True(t, errors.Is(err, model.ErrDuplicatePool))

	err = h.do(func(l ledgers) error {
		_, err := l.farm.Add(alice, 100, lpB, common.Address{})
		return err
	})
	assert.True(t, errors.Is(err, model.ErrUnauthorized))

	err = h.do(func(l ledgers) error { return l.farm.Deposit(alice, 7, uint256.NewInt(1)) })
	assert.True(t, errors.Is(err, model.ErrPoolNotFound))
}

func TestSetUpdatesTotalAllocPoint(t *testing.T) {
	h := newHarness(t, 0, 0)
	pid := h.addPool(100, lpA)
	h.addPool(100, lpB)
	h.must(func(l ledgers) error { return l.farm.Set(owner, pid, 1000, common.Address{}, false) })

	h.must(func(l ledgers) error {
		info, err := l.farm.Info()
		require.NoError(t, err)
		assert.Equal(t, uint64(1100), info.TotalAllocPoint)
		assert.Equal(t, uint64(2), info.PoolLength)
		return nil
	})
}

func TestPendingNeverDecreasesWithoutWithdraw(t *testing.T) {
	h := newHarness(t, 0, 0)
	pid := h.addPool(100, lpA)
	h.deposit(alice, pid, 1000)

	last := uint64(0)
	for step, who := range []common.Address{bob, bob, alice, bob} {
		h.now += 7
		got := h.pending(pid, alice)
		assert.GreaterOrEqual(t, got, last, "step %d", step)
		last = got
		if who == bob {
			h.deposit(bob, pid, 333)
			continue
		}
		// A harvest resets pending; track from zero again.
		h.deposit(alice, pid, 0)
		last = 0
	}
}

func TestRewarderPaysBonus(t *testing.T) {
	h := newHarness(t, 0, 0)
	var bonusAddr common.Address
	h.must(func(l ledgers) error {
		var err error
		bonusAddr, err = l.rewarders.Create(owner, bonus, lpA, Address, uint256.NewInt(10), 0)
		if err != nil {
			return err
		}
		return l.bank.Mint(bonus, bonusAddr, uint256.NewInt(1_000_000))
	})
	var pid uint64
	h.must(func(l ledgers) error {
		var err error
		pid, err = l.farm.Add(owner, 100, lpA, bonusAddr)
		return err
	})
	h.deposit(alice, pid, 1000)

	h.now = 10
	h.must(func(l ledgers) error {
		out, err := l.farm.PendingTokens(pid, alice)
		require.NoError(t, err)
		assert.Equal(t, bonus, out.BonusToken)
		assert.Equal(t, uint64(100), out.Bonus.Uint64())
		return nil
	})
	h.deposit(alice, pid, 0)
	assert.Equal(t, uint64(100), h.balance(bonus, alice))
}

func TestRewarderOfAnotherFarmRejected(t *testing.T) {
	h := newHarness(t, 0, 0)
	var bonusAddr common.Address
	h.must(func(l ledgers) error {
		var err error
		bonusAddr, err = l.rewarders.Create(owner, bonus, lpA, alice, uint256.NewInt(10), 0)
		return err
	})
	err := h.do(func(l ledgers) error {
		_, err := l.farm.Add(owner, 100, lpA, bonusAddr)
		return err
	})
	assert.True(t, errors.Is(err, model.ErrParameterOutOfRange))
}

func TestRewarderForAnotherAssetRejected(t *testing.T) {
	h := newHarness(t, 0, 0)
	var bonusAddr common.Address
	h.must(func(l ledgers) error {
		var err error
		bonusAddr, err = l.rewarders.Create(owner, bonus, lpB, Address, uint256.NewInt(10), 0)
		return err
	})
	err := h.do(func(l ledgers) error {
		_, err := l.farm.Add(owner, 100, lpA, bonusAddr)
		return err
	})
	assert.ErrorIs(t, err, model.ErrParameterOutOfRange)

	pid := h.addPool(100, lpA)
	err = h.do(func(l ledgers) error { return l.farm.Set(owner, pid, 100, bonusAddr, true) })
	assert.ErrorIs(t, err, model.ErrParameterOutOfRange)
}

// syncRecorder notes the farm's weights and rate each time it is synced.
type syncRecorder struct {
	farm  *Farm
	alloc []uint64
	rate  []uint64
	err   error
}

func (r *syncRecorder) SyncUpstream() error {
	info, err := r.farm.Info()
	if err != nil {
		return err
	}
	r.alloc = append(r.alloc, info.TotalAllocPoint)
	r.rate = append(r.rate, info.RewardPerSec.Uint64())
	return r.err
}

func TestDownstreamSyncedBeforeChanges(t *testing.T) {
	h := newHarness(t, 0, 0)
	pid := h.addPool(100, lpA)

	rec := &syncRecorder{}
	attached := func(fn func(f *Farm) error) error {
		return h.do(func(l ledgers) error {
			rec.farm = l.farm
			l.farm.Attach(rec)
			return fn(l.farm)
		})
	}
	require.NoError(t, attached(func(f *Farm) error {
		_, err := f.Add(owner, 50, lpB, common.Address{})
		return err
	}))
	require.NoError(t, attached(func(f *Farm) error { return f.Set(owner, pid, 300, common.Address{}, false) }))
	require.NoError(t, attached(func(f *Farm) error { return f.UpdateEmissionRate(owner, uint256.NewInt(200)) }))
	assert.Equal(t, []uint64{100, 150, 350}, rec.alloc)
	assert.Equal(t, []uint64{100, 100, 100}, rec.rate)

	rec.err = errors.New("downstream failed")
	err := attached(func(f *Farm) error { return f.Set(owner, pid, 0, common.Address{}, false) })
	assert.ErrorIs(t, err, rec.err)
	h.must(func(l ledgers) error {
		info, err := l.farm.Info()
		require.NoError(t, err)
		assert.Equal(t, uint64(350), info.TotalAllocPoint)
		return nil
	})
}
