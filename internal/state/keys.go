package state

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key prefixes.
var (
	prefixGlobal    = []byte("g/")
	prefixPool      = []byte("p/")
	prefixPosition  = []byte("u/")
	prefixEscrow    = []byte("e/")
	prefixBalance   = []byte("b/")
	prefixAllowance = []byte("a/")
	prefixVe        = []byte("v/")
	prefixRewarder  = []byte("r/")
	prefixEvent     = []byte("ev/")
)

func join(prefix []byte, parts ...[]byte) []byte {
	n := len(prefix)
	for _, p := range parts {
		n += len(p) + 1
	}
	k := make([]byte, 0, n)
	k = append(k, prefix...)
	for i, p := range parts {
		if i > 0 {
			k = append(k, '/')
		}
		k = append(k, p...)
	}
	return k
}

func u64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// GlobalKey addresses a named scalar of a ledger.
func GlobalKey(ledger, name string) []byte {
	return join(prefixGlobal, []byte(ledger), []byte(name))
}

// PoolKey addresses pool pid of a ledger.
func PoolKey(ledger string, pid uint64) []byte {
	return join(prefixPool, []byte(ledger), u64(pid))
}

// PositionKey addresses an account's position in pool pid of a ledger.
func PositionKey(ledger string, pid uint64, account common.Address) []byte {
	return join(prefixPosition, []byte(ledger), u64(pid), account.Bytes())
}

// EscrowKey addresses an escrow position.
func EscrowKey(account common.Address) []byte {
	return join(prefixEscrow, account.Bytes())
}

// BalanceKey addresses an account's balance of an asset.
func BalanceKey(asset, account common.Address) []byte {
	return join(prefixBalance, asset.Bytes(), account.Bytes())
}

// AllowanceKey addresses what spender may pull from owner.
func AllowanceKey(asset, owner, spender common.Address) []byte {
	return join(prefixAllowance, asset.Bytes(), owner.Bytes(), spender.Bytes())
}

// VeKey addresses an account's veBalance.
func VeKey(account common.Address) []byte {
	return join(prefixVe, account.Bytes())
}

// RewarderKey addresses a bonus rewarder's record.
func RewarderKey(rewarder common.Address) []byte {
	return join(prefixRewarder, rewarder.Bytes())
}

// RewarderUserKey addresses an account's position in a rewarder.
func RewarderUserKey(rewarder, account common.Address) []byte {
	return join(prefixRewarder, rewarder.Bytes(), account.Bytes())
}

// EventKey addresses the event with sequence number seq.
func EventKey(seq uint64) []byte {
	return join(prefixEvent, u64(seq))
}

// DeriveAddress returns the account address the engine uses for a named
// internal holder (a farm's custody account, a rewarder).
func DeriveAddress(label string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(label))[12:])
}
