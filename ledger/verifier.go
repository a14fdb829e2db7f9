// Package ledger implements the acceptance predicate the ledger evaluates on
// each submitted snapshot commitment: signer authorization, content-identifier
// validation, wall-clock cooldown and signature-level replay protection.
package ledger

import (
	"context"
	"sync"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/signer"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var logger = logrus.StandardLogger().WithField("module", "ledger")

// Archive is an optional durable sink for accepted commitments. Archive
// failures are logged, never rolled back; the in-memory sequence is the
// source of truth for the predicate.
type Archive interface {
	SaveCommitment(ctx context.Context, c *types.SnapshotCommitment) error
}

// Config initializes a Verifier. Owner and cooldown are required before any
// commitment can be accepted.
type Config struct {
	Owner           common.Address
	CooldownSeconds uint64

	// RequireMonotonicIDs enforces strictly increasing snapshot ids. The
	// reference deployment leaves this off: only the wall-clock cooldown
	// gates acceptance, and ids may arrive out of order.
	RequireMonotonicIDs bool

	Clock   clockwork.Clock
	Archive Archive
}

// Verifier is the ledger-side state machine over the validator set and the
// commitment sequence. All state-mutating calls are serialized, mirroring the
// single-writer semantics of the ledger execution environment.
type Verifier struct {
	mu sync.Mutex

	owner     common.Address
	cooldown  uint64
	monotonic bool
	clock     clockwork.Clock
	archive   Archive

	validators  map[common.Address]bool
	commitments map[uint64]*types.SnapshotCommitment
	ids         []uint64
	latestID    uint64
	usedSigs    map[string]bool
	lastUpdate  uint64
}

func NewVerifier(cfg Config) *Verifier {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Verifier{
		owner:       cfg.Owner,
		cooldown:    cfg.CooldownSeconds,
		monotonic:   cfg.RequireMonotonicIDs,
		clock:       clock,
		archive:     cfg.Archive,
		validators:  make(map[common.Address]bool),
		commitments: make(map[uint64]*types.SnapshotCommitment),
		usedSigs:    make(map[string]bool),
	}
}

// UpdateSnapshot is the acceptance transition. It recomputes the commitment
// message hash, recovers the signer and, if every precondition holds, appends
// the commitment to the sequence and advances the latest pointer.
func (v *Verifier) UpdateSnapshot(ctx context.Context, contentID string, merkleRoot common.Hash, snapshotID uint64, timestamp uint64, sig []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	recovered, err := signer.Recover(sig, snapshotID, merkleRoot, contentID, timestamp)
	if err != nil || !v.validators[recovered] {
		return ErrInvalidSignature
	}

	if contentID == "" {
		return ErrEmptyIdentifier
	}

	now := uint64(v.clock.Now().Unix())
	if v.lastUpdate > 0 && now < v.lastUpdate+v.cooldown {
		return &CooldownError{RemainingSeconds: v.lastUpdate + v.cooldown - now}
	}

	if v.monotonic && len(v.ids) > 0 && snapshotID <= v.latestID {
		return ErrNonMonotonicID
	}

	if v.usedSigs[string(sig)] {
		return ErrSignatureAlreadyUsed
	}

	if _, ok := v.commitments[snapshotID]; ok {
		return ErrSnapshotExists
	}

	c := &types.SnapshotCommitment{
		ID:         snapshotID,
		MerkleRoot: merkleRoot,
		ContentID:  contentID,
		Timestamp:  timestamp,
		Signature:  append([]byte(nil), sig...),
	}
	v.commitments[snapshotID] = c
	v.ids = append(v.ids, snapshotID)
	if len(v.ids) == 1 || snapshotID > v.latestID {
		v.latestID = snapshotID
	}
	v.usedSigs[string(sig)] = true
	v.lastUpdate = now

	if v.archive != nil {
		if err := v.archive.SaveCommitment(ctx, c); err != nil {
			logger.WithError(err).WithField("snapshotId", snapshotID).Error("error archiving commitment")
		}
	}

	logger.WithFields(logrus.Fields{
		"snapshotId": snapshotID,
		"merkleRoot": merkleRoot.Hex(),
		"contentId":  contentID,
		"signer":     recovered.Hex(),
	}).Info("accepted snapshot commitment")

	return nil
}

// Restore seeds the sequence with a previously accepted commitment, e.g. the
// latest archived one after a restart. The commitment was validated when it
// was first accepted and is trusted as-is: its signature counts as used and
// the cooldown resumes from its timestamp.
func (v *Verifier) Restore(c *types.SnapshotCommitment) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.commitments[c.ID]; ok {
		return
	}
	v.commitments[c.ID] = c
	v.ids = append(v.ids, c.ID)
	if len(v.ids) == 1 || c.ID > v.latestID {
		v.latestID = c.ID
	}
	v.usedSigs[string(c.Signature)] = true
	if c.Timestamp > v.lastUpdate {
		v.lastUpdate = c.Timestamp
	}
}

// GetLatestSnapshot returns the commitment with the highest accepted id.
func (v *Verifier) GetLatestSnapshot() (*types.SnapshotCommitment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.ids) == 0 {
		return nil, ErrNoSnapshot
	}
	return v.commitments[v.latestID], nil
}

// GetSnapshot returns the commitment for the given id.
func (v *Verifier) GetSnapshot(id uint64) (*types.SnapshotCommitment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.commitments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// SnapshotExists reports whether the given id has been accepted.
func (v *Verifier) SnapshotExists(id uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.commitments[id]
	return ok
}

// GetSnapshotCount returns the number of accepted commitments.
func (v *Verifier) GetSnapshotCount() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return uint64(len(v.ids))
}

// SetCooldown updates the acceptance cooldown. Owner only.
func (v *Verifier) SetCooldown(caller common.Address, seconds uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return ErrUnauthorized
	}
	v.cooldown = seconds
	return nil
}

// AddValidator authorizes an address to sign commitments. Owner only.
func (v *Verifier) AddValidator(caller, validator common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return ErrUnauthorized
	}
	v.validators[validator] = true
	return nil
}

// RemoveValidator revokes a signer. Owner only.
func (v *Verifier) RemoveValidator(caller, validator common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return ErrUnauthorized
	}
	delete(v.validators, validator)
	return nil
}

// IsValidator reports whether the address is authorized to sign.
func (v *Verifier) IsValidator(addr common.Address) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.validators[addr]
}

// GetCooldown returns the acceptance cooldown in seconds.
func (v *Verifier) GetCooldown() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cooldown
}

// GetLastUpdate returns the wall-clock time of the last accepted commitment.
func (v *Verifier) GetLastUpdate() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastUpdate
}
