// Package signer builds the canonical commitment message hash and signs it
// with the validator key. The packed encoding and the two-layer hashing
// (keccak over the packed fields, then the personal-message prefix inside the
// signing primitive) must stay bit-exact for ledger compatibility.
package signer

import (
	"crypto/ecdsa"
	"encoding/binary"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// SignatureLength is the expected r||s||v signature size.
const SignatureLength = 65

var ErrInvalidSignatureLength = errors.New("signer: invalid signature length")

// ContentHash hashes the raw UTF-8 bytes of a content identifier.
func ContentHash(contentID string) common.Hash {
	return crypto.Keccak256Hash([]byte(contentID))
}

// MessageHash builds the canonical signing payload hash:
// keccak256(snapshotId uint64 BE ∥ merkleRoot ∥ keccak256(contentID) ∥ timestamp uint64 BE).
func MessageHash(snapshotID uint64, merkleRoot common.Hash, contentID string, timestamp uint64) common.Hash {
	contentHash := ContentHash(contentID)

	buf := make([]byte, 0, 8+32+32+8)
	buf = binary.BigEndian.AppendUint64(buf, snapshotID)
	buf = append(buf, merkleRoot[:]...)
	buf = append(buf, contentHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, timestamp)

	return crypto.Keccak256Hash(buf)
}

// Signer holds a validator's secp256k1 signing key.
type Signer struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewSigner parses a hex encoded private key. A missing or malformed key is
// fatal for the caller; signing never fails on message content.
func NewSigner(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("signer: private key is required")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "signer: invalid private key")
	}
	return &Signer{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the validator address derived from the signing key.
func (s *Signer) Address() common.Address {
	return s.addr
}

// Sign produces a 65-byte r||s||v signature over the commitment message hash
// using the personal-message prefix convention.
func (s *Signer) Sign(snapshotID uint64, merkleRoot common.Hash, contentID string, timestamp uint64) ([]byte, error) {
	msgHash := MessageHash(snapshotID, merkleRoot, contentID, timestamp)
	sig, err := crypto.Sign(accounts.TextHash(msgHash[:]), s.key)
	if err != nil {
		return nil, errors.Wrap(err, "signer: signing failed")
	}
	return sig, nil
}

// Recover returns the address that signed the given commitment fields.
func Recover(sig []byte, snapshotID uint64, merkleRoot common.Hash, contentID string, timestamp uint64) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, ErrInvalidSignatureLength
	}

	// accept both the raw 0/1 recovery id and the 27/28 convention
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	msgHash := MessageHash(snapshotID, merkleRoot, contentID, timestamp)
	pub, err := crypto.SigToPub(accounts.TextHash(msgHash[:]), normalized)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "signer: recovery failed")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether sig over the commitment fields was produced by
// expected. Tampered fields or a foreign signer yield false, never an error.
func Verify(sig []byte, snapshotID uint64, merkleRoot common.Hash, contentID string, timestamp uint64, expected common.Address) bool {
	recovered, err := Recover(sig, snapshotID, merkleRoot, contentID, timestamp)
	if err != nil {
		return false
	}
	return recovered == expected
}
