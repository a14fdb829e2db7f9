// Package merkle builds the commitment root over the ordered user-score set
// of a snapshot. The encoding is fixed-width and order-sensitive so that any
// implementation producing the same record set produces the same root.
package merkle

import (
	"bytes"
	"math"
	"math/big"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// emptySentinel distinguishes the root of a zero-user snapshot from an
// uninitialized zero value.
const emptySentinel = "deid:snapshot:empty"

// ErrLeafOutOfRange is returned when a proof is requested for an index
// outside the user set.
var ErrLeafOutOfRange = errors.New("merkle: leaf index out of range")

// EmptyRoot is the fixed root committed to by a snapshot with no users.
func EmptyRoot() common.Hash {
	return crypto.Keccak256Hash([]byte(emptySentinel))
}

// LeafHash hashes one user record. The leaf binds the user's address, total
// score rounded to the nearest integer, rank and last-updated timestamp,
// each field in fixed-width big-endian encoding.
func LeafHash(u *types.UserScoreRecord) common.Hash {
	addr := common.HexToAddress(u.Address)
	return crypto.Keccak256Hash(
		addr.Bytes(),
		pad32(uint64(math.Round(u.TotalScore))),
		pad32(u.Rank),
		pad32(u.LastUpdated),
	)
}

// Root computes the commitment root over the ordered user set. An empty set
// yields the sentinel root; a single user's root is its leaf hash.
func Root(users []*types.UserScoreRecord) common.Hash {
	if len(users) == 0 {
		return EmptyRoot()
	}

	level := make([]common.Hash, len(users))
	for i, u := range users {
		level[i] = LeafHash(u)
	}

	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

// VerifySet recomputes the root over the full user set and compares it to
// the expected root. This is the all-or-nothing membership check downstream
// consumers rely on; it is not a path proof.
func VerifySet(users []*types.UserScoreRecord, root common.Hash) bool {
	return Root(users) == root
}

// Proof generates the sibling-hash path for the leaf at index. Because pair
// hashing sorts the two children before concatenating, the proof carries no
// direction bits.
func Proof(users []*types.UserScoreRecord, index int) ([]common.Hash, error) {
	if index < 0 || index >= len(users) {
		return nil, ErrLeafOutOfRange
	}
	if len(users) == 1 {
		return []common.Hash{}, nil
	}

	level := make([]common.Hash, len(users))
	for i, u := range users {
		level[i] = LeafHash(u)
	}

	var proof []common.Hash
	pos := index
	for len(level) > 1 {
		sibling := pos ^ 1
		if sibling >= len(level) {
			// odd level, the last node pairs with itself
			sibling = pos
		}
		proof = append(proof, level[sibling])
		level = nextLevel(level)
		pos /= 2
	}
	return proof, nil
}

// VerifyProof folds a sibling path from a leaf up to the root.
func VerifyProof(leaf common.Hash, proof []common.Hash, root common.Hash) bool {
	node := leaf
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}

func nextLevel(level []common.Hash) []common.Hash {
	next := make([]common.Hash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		left := level[i]
		right := left
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, hashPair(left, right))
	}
	return next
}

// hashPair sorts the two hashes lexicographically before concatenating, so a
// pair hashes to the same parent regardless of child order.
func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

func pad32(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32)
}
