// Package services orchestrates snapshot cycles: collect factors, compute
// scores, rank, commit, store, sign, submit.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/contentstore"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/ledger"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/merkle"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/metrics"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/scores"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/signer"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/Decode-Labs-Web3/deid-snapshot-engine/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var logger = logrus.StandardLogger().WithField("module", "services")

// collectConcurrency bounds the parallel per-user factor collection. Score
// computation has no ordering dependency between users.
const collectConcurrency = 8

// Ledger accepts signed commitments. In-process this is the ledger.Verifier;
// a deployment against a real chain substitutes a contract-backed submitter.
type Ledger interface {
	UpdateSnapshot(ctx context.Context, contentID string, merkleRoot common.Hash, snapshotID uint64, timestamp uint64, sig []byte) error
}

// AddressSource lists the users to score in a cycle.
type AddressSource interface {
	Addresses(ctx context.Context) ([]string, error)
}

// StaticAddressSource serves a fixed address list, e.g. from config.
type StaticAddressSource []string

func (s StaticAddressSource) Addresses(ctx context.Context) ([]string, error) {
	return s, nil
}

// SnapshotArchive is an optional durable sink for full snapshot content.
type SnapshotArchive interface {
	SaveSnapshot(ctx context.Context, snapshot *types.GlobalSnapshot) error
}

// Snapshotter drives one snapshot cycle end to end. A cycle that fails at
// any stage is simply discarded; there is no partial-commit state to resume.
type Snapshotter struct {
	collector  *scores.Collector
	calculator *scores.Calculator
	store      contentstore.Store
	signer     *signer.Signer
	ledger     Ledger
	addresses  AddressSource
	archive    SnapshotArchive
	clock      clockwork.Clock
}

func NewSnapshotter(collector *scores.Collector, calculator *scores.Calculator, store contentstore.Store, sig *signer.Signer, led Ledger, addresses AddressSource) *Snapshotter {
	return &Snapshotter{
		collector:  collector,
		calculator: calculator,
		store:      store,
		signer:     sig,
		ledger:     led,
		addresses:  addresses,
		clock:      clockwork.NewRealClock(),
	}
}

// WithClock substitutes the wall clock, for tests.
func (s *Snapshotter) WithClock(clock clockwork.Clock) *Snapshotter {
	s.clock = clock
	return s
}

// WithArchive attaches a durable snapshot sink.
func (s *Snapshotter) WithArchive(archive SnapshotArchive) *Snapshotter {
	s.archive = archive
	return s
}

// BuildSnapshot computes score records for all addresses, ranks them and
// commits to the ordered set with a merkle root. The snapshot id and
// timestamp are the cycle's unix time.
func (s *Snapshotter) BuildSnapshot(ctx context.Context, addresses []string) (*types.GlobalSnapshot, error) {
	started := time.Now()
	now := uint64(s.clock.Now().Unix())

	records := make([]*types.UserScoreRecord, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(collectConcurrency)
	for i, address := range addresses {
		i, address := i, address
		g.Go(func() error {
			normalized := utils.NormalizeAddress(address)
			factors, err := s.collector.Collect(gctx, normalized)
			if err != nil {
				return err
			}
			breakdown := s.calculator.Breakdown(factors)
			records[i] = &types.UserScoreRecord{
				Address:        normalized,
				TotalScore:     breakdown.Total(),
				Breakdown:      breakdown,
				Badges:         factors.Badges,
				SocialAccounts: factors.SocialAccounts,
				WalletActivity: types.WalletActivity{
					Balance:              factors.Balance,
					TxCount:              factors.TxCount,
					ContractInteractions: factors.ContractInteractions,
				},
				LastUpdated: now,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "error collecting score factors")
	}

	// ranks are assigned only after the whole cycle is computed; ties keep
	// their input order
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TotalScore > records[j].TotalScore
	})
	for i, record := range records {
		record.Rank = uint64(i + 1)
	}

	snapshot := &types.GlobalSnapshot{
		ID:         now,
		Timestamp:  now,
		MerkleRoot: merkle.Root(records),
		Users:      records,
		Metadata:   buildMetadata(records),
	}

	metrics.SnapshotBuildDuration.Observe(time.Since(started).Seconds())
	metrics.UsersScored.Add(float64(len(records)))

	logger.WithFields(logrus.Fields{
		"snapshotId": snapshot.ID,
		"users":      len(records),
		"merkleRoot": snapshot.MerkleRoot.Hex(),
	}).Info("built snapshot")

	return snapshot, nil
}

// Publish stores the snapshot content, signs the commitment and submits it
// to the ledger. Returns the submitted commitment on acceptance.
func (s *Snapshotter) Publish(ctx context.Context, snapshot *types.GlobalSnapshot) (*types.SnapshotCommitment, error) {
	content, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding snapshot content")
	}

	contentID, err := s.store.Store(ctx, content)
	if err != nil {
		return nil, errors.Wrap(err, "error storing snapshot content")
	}

	sig, err := s.signer.Sign(snapshot.ID, snapshot.MerkleRoot, contentID, snapshot.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "error signing commitment")
	}

	err = s.ledger.UpdateSnapshot(ctx, contentID, snapshot.MerkleRoot, snapshot.ID, snapshot.Timestamp, sig)
	if err != nil {
		metrics.CommitmentsRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, errors.Wrap(err, "commitment rejected")
	}
	metrics.CommitmentsAccepted.Inc()

	if s.archive != nil {
		if err := s.archive.SaveSnapshot(ctx, snapshot); err != nil {
			utils.LogError(err, "error archiving snapshot content", 0, fmt.Sprintf("snapshotId: %v", snapshot.ID))
		}
	}

	logger.WithFields(logrus.Fields{
		"snapshotId": snapshot.ID,
		"contentId":  contentID,
		"signer":     s.signer.Address().Hex(),
	}).Info("published snapshot commitment")

	return &types.SnapshotCommitment{
		ID:         snapshot.ID,
		MerkleRoot: snapshot.MerkleRoot,
		ContentID:  contentID,
		Timestamp:  snapshot.Timestamp,
		Signature:  sig,
	}, nil
}

// RunCycle builds and publishes one snapshot.
func (s *Snapshotter) RunCycle(ctx context.Context) (*types.SnapshotCommitment, error) {
	addresses, err := s.addresses.Addresses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error listing addresses")
	}

	snapshot, err := s.BuildSnapshot(ctx, addresses)
	if err != nil {
		return nil, err
	}
	return s.Publish(ctx, snapshot)
}

// Run executes snapshot cycles on a fixed interval until ctx is done. A
// failed cycle is logged and retried at the next tick.
func (s *Snapshotter) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunCycle(ctx); err != nil {
			utils.LogError(err, "snapshot cycle failed", 0)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

func buildMetadata(records []*types.UserScoreRecord) types.SnapshotMetadata {
	meta := types.SnapshotMetadata{TotalUsers: uint64(len(records))}
	if len(records) == 0 {
		return meta
	}

	sum := float64(0)
	for _, record := range records {
		sum += record.TotalScore
		meta.TotalBadges += uint64(len(record.Badges))
	}
	meta.AverageScore = sum / float64(len(records))
	meta.TopScore = records[0].TotalScore
	return meta
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ledger.ErrEmptyIdentifier):
		return "empty_identifier"
	case errors.Is(err, ledger.ErrSignatureAlreadyUsed):
		return "signature_replay"
	case errors.Is(err, ledger.ErrSnapshotExists):
		return "duplicate_id"
	case errors.Is(err, ledger.ErrNonMonotonicID):
		return "non_monotonic_id"
	default:
		if _, ok := ledger.AsCooldown(err); ok {
			return "cooldown"
		}
		return "other"
	}
}
