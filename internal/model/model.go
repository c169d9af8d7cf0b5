// Package model defines the domain types shared across the boost engine:
// read-side views returned by the API, immutable ledger events, and the
// error kinds every ledger reports.
//
// Ledger quantities are uint256 base units (18 decimals). Views carry them
// as decimal strings plus a shopspring/decimal display value; never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger names used in events and storage keys.
const (
	LedgerFarm     = "farm"
	LedgerBoost    = "boost"
	LedgerEscrow   = "escrow"
	LedgerVe       = "ve"
	LedgerAsset    = "asset"
	LedgerRewarder = "rewarder"
)

// Event kinds.
const (
	EventDeposit                = "Deposit"
	EventWithdraw               = "Withdraw"
	EventEmergencyWithdraw      = "EmergencyWithdraw"
	EventHarvest                = "Harvest"
	EventClaim                  = "Claim"
	EventInit                   = "Init"
	EventAddPool                = "AddPool"
	EventSetPool                = "SetPool"
	EventUpdatePool             = "UpdatePool"
	EventUpdateFactor           = "UpdateFactor"
	EventVeMint                 = "VeMint"
	EventVeBurn                 = "VeBurn"
	EventUpdateEmissionRate     = "UpdateEmissionRate"
	EventSetDevAddr             = "SetDevAddr"
	EventUpdateVePerSharePerSec = "UpdateVePerSharePerSec"
	EventUpdateMaxCapPct        = "UpdateMaxCapPct"
	EventUpdateSpeedUpThreshold = "UpdateSpeedUpThreshold"
	EventUpdateSpeedUpDuration  = "UpdateSpeedUpDuration"
	EventUpdateRewardVars       = "UpdateRewardVars"
	EventRewarderCreated        = "RewarderCreated"
	EventRewardRateUpdated      = "RewardRateUpdated"
	EventTransfer               = "Transfer"
	EventApproval               = "Approval"
	EventOwnershipTransferred   = "OwnershipTransferred"
)

// Event is an immutable record of a committed ledger operation.
// Once created, events are never modified or deleted.
type Event struct {
	Seq       uint64            `json:"seq"`
	ID        string            `json:"id"`
	Ledger    string            `json:"ledger"`
	Kind      string            `json:"kind"`
	Account   string            `json:"account,omitempty"`
	PoolID    *uint64           `json:"pool_id,omitempty"`
	Amount    string            `json:"amount,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Timestamp uint64            `json:"timestamp"`
	Committed time.Time         `json:"committed_at"`
}

// Amount is an exact base-unit quantity paired with its display value.
type Amount struct {
	Raw     string          `json:"raw"`
	Display decimal.Decimal `json:"display"`
}

// PoolView is the read model of one farm or boosted-farm pool.
type PoolView struct {
	PID                uint64 `json:"pid"`
	Asset              string `json:"asset"`
	AllocPoint         uint64 `json:"alloc_point"`
	LastRewardTime     uint64 `json:"last_reward_time"`
	AccRewardPerShare  string `json:"acc_reward_per_share"`
	TotalStaked        Amount `json:"total_staked"`
	Rewarder           string `json:"rewarder,omitempty"`
	BoostShareBp       uint32 `json:"boost_share_bp,omitempty"`
	AccRewardPerFactor string `json:"acc_reward_per_factor,omitempty"`
	TotalFactor        string `json:"total_factor,omitempty"`
}

// PositionView is the read model of one account's stake in a pool.
type PositionView struct {
	PID              uint64 `json:"pid"`
	Account          string `json:"account"`
	Stake            Amount `json:"stake"`
	RewardDebt       string `json:"reward_debt"`
	Factor           string `json:"factor,omitempty"`
	FactorRewardDebt string `json:"factor_reward_debt,omitempty"`
	Claimable        Amount `json:"claimable"`
	Pending          Amount `json:"pending"`
	BonusToken       string `json:"bonus_token,omitempty"`
	PendingBonus     Amount `json:"pending_bonus"`
}

// EscrowView is the read model of the escrow ledger's global state.
type EscrowView struct {
	BaseAsset               string `json:"base_asset"`
	TotalStaked             Amount `json:"total_staked"`
	AccVePerShare           string `json:"acc_ve_per_share"`
	LastRewardTimestamp     uint64 `json:"last_reward_timestamp"`
	VePerSharePerSec        string `json:"ve_per_share_per_sec"`
	SpeedUpVePerSharePerSec string `json:"speed_up_ve_per_share_per_sec"`
	SpeedUpThreshold        uint64 `json:"speed_up_threshold"`
	SpeedUpDuration         uint64 `json:"speed_up_duration"`
	MaxCapPct               uint64 `json:"max_cap_pct"`
}

// EscrowPositionView is the read model of one escrow staker.
type EscrowPositionView struct {
	Account             string `json:"account"`
	Principal           Amount `json:"principal"`
	RewardDebt          string `json:"reward_debt"`
	LastClaimTimestamp  uint64 `json:"last_claim_timestamp"`
	SpeedUpEndTimestamp uint64 `json:"speed_up_end_timestamp"`
	PendingVe           Amount `json:"pending_ve"`
	VeBalance           Amount `json:"ve_balance"`
}

// RewarderView is the read model of a bonus rewarder.
type RewarderView struct {
	Address             string `json:"address"`
	Owner               string `json:"owner"`
	RewardToken         string `json:"reward_token"`
	StakeAsset          string `json:"stake_asset"`
	Farm                string `json:"farm"`
	TokenPerSec         Amount `json:"token_per_sec"`
	AccTokenPerShare    string `json:"acc_token_per_share"`
	LastRewardTimestamp uint64 `json:"last_reward_timestamp"`
	TotalShares         Amount `json:"total_shares"`
}

// FarmView is the read model of a farm's global state.
type FarmView struct {
	Ledger          string  `json:"ledger"`
	Owner           string  `json:"owner"`
	RewardToken     string  `json:"reward_token"`
	RewardPerSec    *Amount `json:"reward_per_sec,omitempty"`
	DevAddr         string  `json:"dev_addr,omitempty"`
	DevPercent      uint64  `json:"dev_percent,omitempty"`
	StartTimestamp  uint64  `json:"start_timestamp,omitempty"`
	MasterPID       *uint64 `json:"master_pid,omitempty"`
	DummyToken      string  `json:"dummy_token,omitempty"`
	Initialized     bool    `json:"initialized"`
	TotalAllocPoint uint64  `json:"total_alloc_point"`
	PoolLength      uint64  `json:"pool_length"`
}
