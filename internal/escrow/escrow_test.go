package escrow

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netswap/boost-engine/internal/asset"
	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/kv"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/state"
	"github.com/netswap/boost-engine/internal/vetoken"
)

var (
	owner = common.HexToAddress("0x0e")
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	nett  = common.HexToAddress("0x4e77")
)

const start = 1000

type harness struct {
	t     *testing.T
	store kv.Store
	now   uint64
}

type ledgers struct {
	escrow *Staking
	ve     *vetoken.Token
	bank   *asset.Bank
}

func (h *harness) do(fn func(l ledgers) error) error {
	tx := kv.Begin(context.Background(), h.store)
	st := state.New(tx, h.now)
	bank := asset.New(st)
	ve := vetoken.New(st, nil)
	l := ledgers{escrow: New(st, bank, ve), ve: ve, bank: bank}
	if err := fn(l); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

func (h *harness) must(fn func(l ledgers) error) {
	h.t.Helper()
	require.NoError(h.t, h.do(fn))
}

func (h *harness) at(offset uint64) { h.now = start + offset }

func (h *harness) position(who common.Address) Position {
	h.t.Helper()
	var u Position
	h.must(func(l ledgers) (err error) {
		u, err = l.escrow.Position(who)
		return err
	})
	return u
}

func (h *harness) config() Config {
	h.t.Helper()
	var cfg Config
	h.must(func(l ledgers) (err error) {
		cfg, err = l.escrow.Config()
		return err
	})
	return cfg
}

func (h *harness) ve(who common.Address) *uint256.Int {
	h.t.Helper()
	var bal *uint256.Int
	h.must(func(l ledgers) (err error) {
		bal, err = l.ve.BalanceOf(who)
		return err
	})
	return bal
}

func (h *harness) balance(who common.Address) *uint256.Int {
	h.t.Helper()
	var bal *uint256.Int
	h.must(func(l ledgers) (err error) {
		bal, err = l.bank.BalanceOf(nett, who)
		return err
	})
	return bal
}

func (h *harness) deposit(who common.Address, ether uint64) {
	h.t.Helper()
	h.must(func(l ledgers) error { return l.escrow.Deposit(who, fixedpoint.Ether(ether)) })
}

func (h *harness) claim(who common.Address) {
	h.t.Helper()
	h.must(func(l ledgers) error { return l.escrow.Claim(who) })
}

func defaultParams() Params {
	return Params{
		Owner:                   owner,
		BaseAsset:               nett,
		VePerSharePerSec:        fixedpoint.Ether(1),
		SpeedUpVePerSharePerSec: fixedpoint.Ether(1),
		SpeedUpThreshold:        5,
		SpeedUpDuration:         50,
		MaxCapPct:               20000,
	}
}

func newHarness(t *testing.T) *harness {
	h := &harness{t: t, store: kv.NewMemoryStore(), now: start}
	h.must(func(l ledgers) error {
		if err := l.ve.Initialize(Address); err != nil {
			return err
		}
		if err := l.escrow.Initialize(defaultParams()); err != nil {
			return err
		}
		for _, who := range []common.Address{alice, bob} {
			if err := l.bank.Mint(nett, who, fixedpoint.Ether(1000)); err != nil {
				return err
			}
			if err := l.bank.Approve(nett, who, Address, asset.Unlimited()); err != nil {
				return err
			}
		}
		return nil
	})
	return h
}

func TestInitializeValidatesParams(t *testing.T) {
	cases := map[string]func(p *Params){
		"zero asset":       func(p *Params) { p.BaseAsset = common.Address{} },
		"rate above 1e36":  func(p *Params) { p.VePerSharePerSec = new(uint256.Int).Add(maxRate, uint256.NewInt(1)) },
		"zero threshold":   func(p *Params) { p.SpeedUpThreshold = 0 },
		"threshold 101":    func(p *Params) { p.SpeedUpThreshold = 101 },
		"zero cap":         func(p *Params) { p.MaxCapPct = 0 },
		"cap above limit":  func(p *Params) { p.MaxCapPct = MaxCapPctLimit + 1 },
		"missing speed up": func(p *Params) { p.SpeedUpVePerSharePerSec = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := &harness{t: t, store: kv.NewMemoryStore(), now: start}
			p := defaultParams()
			mutate(&p)
			err := h.do(func(l ledgers) error { return l.escrow.Initialize(p) })
			assert.ErrorIs(t, err, model.ErrParameterOutOfRange)
		})
	}

	h := newHarness(t)
	err := h.do(func(l ledgers) error { return l.escrow.Initialize(defaultParams()) })
	assert.ErrorIs(t, err, model.ErrAlreadyInitialized)
}

func TestDepositAccruesBaseAndSpeedUp(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 50)

	u := h.position(alice)
	assert.Equal(t, fixedpoint.Ether(50), u.Principal)
	assert.Equal(t, uint64(start), u.LastClaimTimestamp)
	assert.Equal(t, uint64(start+50), u.SpeedUpEndTimestamp)
	assert.Equal(t, fixedpoint.Ether(950), h.balance(alice))
	assert.Equal(t, fixedpoint.Ether(50), h.balance(Address))

	h.at(30)
	h.claim(alice)
	assert.Equal(t, fixedpoint.Ether(3000), h.ve(alice))
}

func TestSpeedUpStopsAtWindowEnd(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 100)

	h.at(50)
	h.claim(alice)
	assert.Equal(t, fixedpoint.Ether(10000), h.ve(alice))
	assert.Zero(t, h.position(alice).SpeedUpEndTimestamp)

	h.at(60)
	h.claim(alice)
	assert.Equal(t, fixedpoint.Ether(11000), h.ve(alice))
}

func TestRateChangesSettleAtOldRate(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 100)

	h.at(10)
	h.must(func(l ledgers) error { return l.escrow.SetVePerSharePerSec(owner, fixedpoint.Ether(2)) })
	h.at(20)
	h.must(func(l ledgers) error {
		return l.escrow.SetVePerSharePerSec(owner, new(uint256.Int).Div(fixedpoint.Ether(3), uint256.NewInt(2)))
	})
	h.at(30)

	var pending *uint256.Int
	h.must(func(l ledgers) (err error) {
		pending, err = l.escrow.PendingVe(alice)
		return err
	})
	assert.Equal(t, fixedpoint.Ether(7500), pending)

	h.claim(alice)
	assert.Equal(t, fixedpoint.Ether(7500), h.ve(alice))
}

func TestUpdateRewardVars(t *testing.T) {
	h := newHarness(t)

	h.at(10)
	h.must(func(l ledgers) error { return l.escrow.UpdateRewardVars() })
	cfg := h.config()
	assert.True(t, cfg.AccVePerShare.IsZero(), "nothing staked")
	assert.Equal(t, uint64(start+10), cfg.LastRewardTimestamp)

	h.deposit(alice, 100)
	h.at(40)
	h.must(func(l ledgers) error { return l.escrow.UpdateRewardVars() })
	cfg = h.config()
	assert.Equal(t, fixedpoint.Ether(30), cfg.AccVePerShare)
	assert.Equal(t, uint64(start+40), cfg.LastRewardTimestamp)
}

func TestClaimResetsDebt(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 100)

	h.at(25)
	h.claim(alice)
	ve := h.ve(alice)
	assert.Equal(t, fixedpoint.Ether(5000), ve)
	u := h.position(alice)
	assert.Equal(t, new(uint256.Int).Div(ve, uint256.NewInt(2)), u.RewardDebt)
	assert.Equal(t, uint64(start+25), u.LastClaimTimestamp)
}

func TestClaimWithoutStake(t *testing.T) {
	h := newHarness(t)
	err := h.do(func(l ledgers) error { return l.escrow.Claim(alice) })
	assert.ErrorIs(t, err, model.ErrNothingStaked)
}

func TestWithdrawBurnsAllVe(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 100)
	h.at(20)
	h.claim(alice)
	require.False(t, h.ve(alice).IsZero())

	h.at(30)
	h.must(func(l ledgers) error { return l.escrow.Withdraw(alice, fixedpoint.Ether(5)) })

	cfg := h.config()
	u := h.position(alice)
	assert.Equal(t, fixedpoint.Ether(95), u.Principal)
	assert.Equal(t, new(uint256.Int).Mul(cfg.AccVePerShare, uint256.NewInt(95)), u.RewardDebt)
	assert.Equal(t, uint64(start+30), u.LastClaimTimestamp)
	assert.Zero(t, u.SpeedUpEndTimestamp)
	assert.True(t, h.ve(alice).IsZero())
	assert.Equal(t, fixedpoint.Ether(905), h.balance(alice))
	assert.Equal(t, fixedpoint.Ether(95), cfg.TotalStaked)
}

func TestWithdrawRejectsBadAmounts(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 10)

	err := h.do(func(l ledgers) error { return l.escrow.Withdraw(alice, new(uint256.Int)) })
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	err = h.do(func(l ledgers) error { return l.escrow.Withdraw(alice, fixedpoint.Ether(11)) })
	assert.ErrorIs(t, err, model.ErrInsufficientStake)

	err = h.do(func(l ledgers) error { return l.escrow.Deposit(alice, new(uint256.Int)) })
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	assert.Equal(t, fixedpoint.Ether(10), h.position(alice).Principal)
}

func TestSpeedUpThreshold(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 100)

	h.at(51)
	h.claim(alice)
	assert.Zero(t, h.position(alice).SpeedUpEndTimestamp)

	// 1% of the principal does not qualify.
	h.at(52)
	h.deposit(alice, 1)
	u := h.position(alice)
	assert.Zero(t, u.SpeedUpEndTimestamp)
	assert.Equal(t, uint64(start+52), u.LastClaimTimestamp)

	// 6% does.
	h.at(53)
	h.deposit(alice, 6)
	u = h.position(alice)
	assert.Equal(t, uint64(start+53+50), u.SpeedUpEndTimestamp)
}

func TestVeBalanceIsCapped(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 100)

	// 10000 during the window, then 100 per second.
	h.at(200)
	var pending *uint256.Int
	h.must(func(l ledgers) (err error) {
		pending, err = l.escrow.PendingVe(alice)
		return err
	})
	assert.Equal(t, fixedpoint.Ether(20000), pending)

	h.claim(alice)
	assert.Equal(t, fixedpoint.Ether(20000), h.ve(alice))

	h.at(300)
	h.must(func(l ledgers) (err error) {
		pending, err = l.escrow.PendingVe(alice)
		return err
	})
	assert.True(t, pending.IsZero())

	h.deposit(alice, 1)
	assert.Equal(t, uint64(start+300), h.position(alice).LastClaimTimestamp)
	assert.Equal(t, fixedpoint.Ether(20000), h.ve(alice))
}

func TestCapRaise(t *testing.T) {
	h := newHarness(t)
	err := h.do(func(l ledgers) error { return l.escrow.SetMaxCapPct(owner, 20000) })
	assert.ErrorIs(t, err, model.ErrParameterOutOfRange)
	err = h.do(func(l ledgers) error { return l.escrow.SetMaxCapPct(owner, MaxCapPctLimit+1) })
	assert.ErrorIs(t, err, model.ErrParameterOutOfRange)
	err = h.do(func(l ledgers) error { return l.escrow.SetMaxCapPct(alice, 30000) })
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	h.must(func(l ledgers) error { return l.escrow.SetMaxCapPct(owner, 30000) })
	assert.Equal(t, uint64(30000), h.config().MaxCapPct)
}

func TestOwnerSetters(t *testing.T) {
	h := newHarness(t)

	err := h.do(func(l ledgers) error { return l.escrow.SetSpeedUpThreshold(owner, 0) })
	assert.ErrorIs(t, err, model.ErrParameterOutOfRange)
	err = h.do(func(l ledgers) error { return l.escrow.SetSpeedUpThreshold(owner, 101) })
	assert.ErrorIs(t, err, model.ErrParameterOutOfRange)
	err = h.do(func(l ledgers) error { return l.escrow.SetSpeedUpThreshold(bob, 10) })
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	err = h.do(func(l ledgers) error {
		return l.escrow.SetVePerSharePerSec(owner, new(uint256.Int).Add(maxRate, uint256.NewInt(1)))
	})
	assert.ErrorIs(t, err, model.ErrParameterOutOfRange)

	h.must(func(l ledgers) error { return l.escrow.SetSpeedUpThreshold(owner, 10) })
	h.must(func(l ledgers) error { return l.escrow.SetSpeedUpDuration(owner, 100) })
	cfg := h.config()
	assert.Equal(t, uint64(10), cfg.SpeedUpThreshold)
	assert.Equal(t, uint64(100), cfg.SpeedUpDuration)

	h.deposit(bob, 10)
	assert.Equal(t, uint64(start+100), h.position(bob).SpeedUpEndTimestamp)
}

func TestStakersAccrueIndependently(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 100)
	h.at(10)
	h.deposit(bob, 100)
	h.at(20)

	h.claim(alice)
	h.claim(bob)
	// alice: 20s base + 20s speed up; bob: 10s of each.
	assert.Equal(t, fixedpoint.Ether(4000), h.ve(alice))
	assert.Equal(t, fixedpoint.Ether(2000), h.ve(bob))
	assert.Equal(t, fixedpoint.Ether(200), h.config().TotalStaked)
}

func TestViews(t *testing.T) {
	h := newHarness(t)
	h.deposit(alice, 100)
	h.at(10)

	h.must(func(l ledgers) error {
		v, err := l.escrow.View()
		if err != nil {
			return err
		}
		assert.Equal(t, nett.Hex(), v.BaseAsset)
		assert.Equal(t, fixedpoint.Ether(100).Dec(), v.TotalStaked.Raw)
		assert.Equal(t, fixedpoint.Ether(10).Dec(), v.AccVePerShare)

		pv, err := l.escrow.PositionView(alice)
		if err != nil {
			return err
		}
		assert.Equal(t, fixedpoint.Ether(2000).Dec(), pv.PendingVe.Raw)
		assert.Equal(t, "0", pv.VeBalance.Raw)
		assert.Equal(t, uint64(start+50), pv.SpeedUpEndTimestamp)
		return nil
	})
}
