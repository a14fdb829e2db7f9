package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/signer"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const (
	validatorKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	strangerKey  = "8da4ef21b864d2cc526dbdb2a120bd2874c36c9d0a1fb7f8c63d7f7a8b41de8f"
)

var owner = common.HexToAddress("0x00000000000000000000000000000000000000aa")

type verifierFixture struct {
	verifier *Verifier
	signer   *signer.Signer
	clock    clockwork.FakeClock
	testRoot common.Hash
}

func newFixture(t *testing.T, cfg Config) *verifierFixture {
	t.Helper()

	s, err := signer.NewSigner(validatorKey)
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	cfg.Owner = owner
	cfg.Clock = clock
	v := NewVerifier(cfg)
	require.NoError(t, v.AddValidator(owner, s.Address()))

	return &verifierFixture{
		verifier: v,
		signer:   s,
		clock:    clock,
		testRoot: crypto.Keccak256Hash([]byte("root")),
	}
}

func (f *verifierFixture) submit(t *testing.T, id uint64, contentID string) error {
	t.Helper()
	ts := uint64(f.clock.Now().Unix())
	sig, err := f.signer.Sign(id, f.testRoot, contentID, ts)
	require.NoError(t, err)
	return f.verifier.UpdateSnapshot(context.Background(), contentID, f.testRoot, id, ts, sig)
}

func TestVerifier_UpdateSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid commitment", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 60})
		require.NoError(t, f.submit(t, 1, "QmCid"))

		latest, err := f.verifier.GetLatestSnapshot()
		require.NoError(t, err)
		require.Equal(t, uint64(1), latest.ID)
		require.Equal(t, "QmCid", latest.ContentID)
		require.Equal(t, uint64(1), f.verifier.GetSnapshotCount())
		require.True(t, f.verifier.SnapshotExists(1))
		require.Equal(t, uint64(f.clock.Now().Unix()), f.verifier.GetLastUpdate())
	})

	t.Run("rejects unauthorized signer", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 60})
		stranger, err := signer.NewSigner(strangerKey)
		require.NoError(t, err)

		ts := uint64(f.clock.Now().Unix())
		sig, err := stranger.Sign(1, f.testRoot, "QmCid", ts)
		require.NoError(t, err)
		err = f.verifier.UpdateSnapshot(context.Background(), "QmCid", f.testRoot, 1, ts, sig)
		require.ErrorIs(t, err, ErrInvalidSignature)
		require.Equal(t, uint64(0), f.verifier.GetSnapshotCount())
	})

	t.Run("rejects unrecoverable signature", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 60})
		err := f.verifier.UpdateSnapshot(context.Background(), "QmCid", f.testRoot, 1, 1700000000, make([]byte, 65))
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects tampered fields", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 60})
		ts := uint64(f.clock.Now().Unix())
		sig, err := f.signer.Sign(1, f.testRoot, "QmCid", ts)
		require.NoError(t, err)

		// signature no longer matches the submitted id
		err = f.verifier.UpdateSnapshot(context.Background(), "QmCid", f.testRoot, 2, ts, sig)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects empty content identifier", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 60})
		err := f.submit(t, 1, "")
		require.ErrorIs(t, err, ErrEmptyIdentifier)
	})

	t.Run("cooldown boundary is inclusive", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 60})
		require.NoError(t, f.submit(t, 1, "QmCid1"))

		f.clock.Advance(59 * time.Second)
		err := f.submit(t, 2, "QmCid2")
		ce, ok := AsCooldown(err)
		require.True(t, ok, "expected cooldown error, got %v", err)
		require.Equal(t, uint64(1), ce.RemainingSeconds)

		f.clock.Advance(1 * time.Second)
		require.NoError(t, f.submit(t, 2, "QmCid2"))
	})

	t.Run("rejects signature replay", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 0})
		ts := uint64(f.clock.Now().Unix())
		sig, err := f.signer.Sign(1, f.testRoot, "QmCid", ts)
		require.NoError(t, err)

		require.NoError(t, f.verifier.UpdateSnapshot(context.Background(), "QmCid", f.testRoot, 1, ts, sig))

		// identical bytes and identical fields: the signature-level
		// guard fires, not the duplicate-id check
		err = f.verifier.UpdateSnapshot(context.Background(), "QmCid", f.testRoot, 1, ts, sig)
		require.ErrorIs(t, err, ErrSignatureAlreadyUsed)
	})

	t.Run("rejects duplicate snapshot id", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 0})
		require.NoError(t, f.submit(t, 1, "QmCid1"))
		err := f.submit(t, 1, "QmCid2")
		require.ErrorIs(t, err, ErrSnapshotExists)
	})

	t.Run("non-monotonic ids allowed by default", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 0})
		require.NoError(t, f.submit(t, 10, "QmCid10"))
		require.NoError(t, f.submit(t, 5, "QmCid5"))

		// latest pointer stays on the highest id
		latest, err := f.verifier.GetLatestSnapshot()
		require.NoError(t, err)
		require.Equal(t, uint64(10), latest.ID)
		require.Equal(t, uint64(2), f.verifier.GetSnapshotCount())
	})

	t.Run("monotonic ids enforced when configured", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 0, RequireMonotonicIDs: true})
		require.NoError(t, f.submit(t, 10, "QmCid10"))
		err := f.submit(t, 5, "QmCid5")
		require.ErrorIs(t, err, ErrNonMonotonicID)
		err = f.submit(t, 10, "QmCid10b")
		require.ErrorIs(t, err, ErrNonMonotonicID)
		require.NoError(t, f.submit(t, 11, "QmCid11"))
	})
}

func TestVerifier_Restore(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{CooldownSeconds: 60})
	ts := uint64(f.clock.Now().Unix())
	sig, err := f.signer.Sign(1, f.testRoot, "QmCid", ts)
	require.NoError(t, err)

	f.verifier.Restore(&types.SnapshotCommitment{
		ID:         1,
		MerkleRoot: f.testRoot,
		ContentID:  "QmCid",
		Timestamp:  ts,
		Signature:  sig,
	})

	t.Run("restored commitment is the latest", func(t *testing.T) {
		latest, err := f.verifier.GetLatestSnapshot()
		require.NoError(t, err)
		require.Equal(t, uint64(1), latest.ID)
		require.Equal(t, uint64(1), f.verifier.GetSnapshotCount())
		require.Equal(t, ts, f.verifier.GetLastUpdate())
	})

	t.Run("cooldown resumes from the restored timestamp", func(t *testing.T) {
		err := f.submit(t, 2, "QmCid2")
		ce, ok := AsCooldown(err)
		require.True(t, ok, "expected cooldown error, got %v", err)
		require.Equal(t, uint64(60), ce.RemainingSeconds)
	})

	t.Run("restored signature cannot be replayed", func(t *testing.T) {
		f.clock.Advance(60 * time.Second)
		err := f.verifier.UpdateSnapshot(context.Background(), "QmCid", f.testRoot, 1, ts, sig)
		require.ErrorIs(t, err, ErrSignatureAlreadyUsed)
	})

	t.Run("duplicate restore is a no-op", func(t *testing.T) {
		f.verifier.Restore(&types.SnapshotCommitment{ID: 1, Timestamp: ts})
		require.Equal(t, uint64(1), f.verifier.GetSnapshotCount())
	})

	t.Run("fresh commitments are accepted after the restored cooldown", func(t *testing.T) {
		require.NoError(t, f.submit(t, 2, "QmCid2"))
		latest, err := f.verifier.GetLatestSnapshot()
		require.NoError(t, err)
		require.Equal(t, uint64(2), latest.ID)
	})
}

func TestVerifier_Queries(t *testing.T) {
	t.Parallel()

	t.Run("empty sequence", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 0})
		_, err := f.verifier.GetLatestSnapshot()
		require.ErrorIs(t, err, ErrNoSnapshot)
		_, err = f.verifier.GetSnapshot(1)
		require.ErrorIs(t, err, ErrNotFound)
		require.False(t, f.verifier.SnapshotExists(1))
		require.Equal(t, uint64(0), f.verifier.GetSnapshotCount())
		require.Equal(t, uint64(0), f.verifier.GetLastUpdate())
	})

	t.Run("get by id", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 0})
		require.NoError(t, f.submit(t, 3, "QmCid3"))

		c, err := f.verifier.GetSnapshot(3)
		require.NoError(t, err)
		require.Equal(t, "QmCid3", c.ContentID)
		require.Equal(t, f.testRoot, c.MerkleRoot)
	})
}

func TestVerifier_OwnerTransitions(t *testing.T) {
	t.Parallel()

	stranger := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	t.Run("set cooldown", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 60})
		require.NoError(t, f.verifier.SetCooldown(owner, 120))
		require.Equal(t, uint64(120), f.verifier.GetCooldown())
		require.ErrorIs(t, f.verifier.SetCooldown(stranger, 0), ErrUnauthorized)
	})

	t.Run("add and remove validator", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 0})
		extra := common.HexToAddress("0x00000000000000000000000000000000000000cc")

		require.ErrorIs(t, f.verifier.AddValidator(stranger, extra), ErrUnauthorized)
		require.False(t, f.verifier.IsValidator(extra))

		require.NoError(t, f.verifier.AddValidator(owner, extra))
		require.True(t, f.verifier.IsValidator(extra))

		require.ErrorIs(t, f.verifier.RemoveValidator(stranger, extra), ErrUnauthorized)
		require.NoError(t, f.verifier.RemoveValidator(owner, extra))
		require.False(t, f.verifier.IsValidator(extra))
	})

	t.Run("removed validator can no longer submit", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, Config{CooldownSeconds: 0})
		require.NoError(t, f.verifier.RemoveValidator(owner, f.signer.Address()))
		err := f.submit(t, 1, "QmCid")
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
}
