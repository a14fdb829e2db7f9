package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// BadgeAttribute is a single trait on a badge, in the shape the identity
// backend serves badge metadata in.
type BadgeAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// Badge is an identity badge owned by a user.
type Badge struct {
	TokenID    uint64           `json:"tokenId"`
	Name       string           `json:"name"`
	Attributes []BadgeAttribute `json:"attributes"`
}

// ScoreFactors are the raw per-user signals a score is computed from. They
// are recomputed every snapshot cycle and never persisted on their own.
type ScoreFactors struct {
	Badges               []Badge
	SocialAccounts       uint64
	StreakDays           uint64
	Balance              decimal.Decimal
	TxCount              uint64
	ContractInteractions uint64
	Contributions        uint64
}

// ScoreBreakdown is the per-category score split. The total of a record is
// always the sum of the five fields.
type ScoreBreakdown struct {
	BadgeScore        float64 `json:"badgeScore"`
	SocialScore       float64 `json:"socialScore"`
	StreakScore       float64 `json:"streakScore"`
	ChainScore        float64 `json:"chainScore"`
	ContributionScore float64 `json:"contributionScore"`
}

// Total returns the sum of all five score categories.
func (b *ScoreBreakdown) Total() float64 {
	return b.BadgeScore + b.SocialScore + b.StreakScore + b.ChainScore + b.ContributionScore
}

// WalletActivity captures the on-chain activity signals used for scoring.
type WalletActivity struct {
	Balance              decimal.Decimal `json:"balance"`
	TxCount              uint64          `json:"txCount"`
	ContractInteractions uint64          `json:"contractInteractions"`
}

// UserScoreRecord is one user's entry in a snapshot. Address is in canonical
// lowercase hex form. Rank is 1-based and assigned only after every record of
// the cycle has been computed and sorted descending by total score.
type UserScoreRecord struct {
	Address        string         `json:"address"`
	TotalScore     float64        `json:"totalScore"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
	Rank           uint64         `json:"rank"`
	Badges         []Badge        `json:"badges"`
	SocialAccounts uint64         `json:"socialAccounts"`
	WalletActivity WalletActivity `json:"walletActivity"`
	LastUpdated    uint64         `json:"lastUpdated"`
}

// SnapshotMetadata are the aggregate stats of a snapshot.
type SnapshotMetadata struct {
	TotalUsers   uint64  `json:"totalUsers"`
	AverageScore float64 `json:"averageScore"`
	TopScore     float64 `json:"topScore"`
	TotalBadges  uint64  `json:"totalBadges"`
}

// GlobalSnapshot is the aggregate score state for one cycle. Users are kept
// in the descending score order used for ranking; the merkle root commits to
// that exact order, so the snapshot is immutable once the root is computed.
type GlobalSnapshot struct {
	ID         uint64             `json:"id"`
	Timestamp  uint64             `json:"timestamp"`
	MerkleRoot common.Hash        `json:"merkleRoot"`
	Users      []*UserScoreRecord `json:"users"`
	Metadata   SnapshotMetadata   `json:"metadata"`
}

// SnapshotCommitment is the on-ledger record of an accepted snapshot. The
// signer address is not stored; it is recovered from the signature at
// verification time.
type SnapshotCommitment struct {
	ID         uint64      `json:"id"`
	MerkleRoot common.Hash `json:"merkleRoot"`
	ContentID  string      `json:"contentId"`
	Timestamp  uint64      `json:"timestamp"`
	Signature  []byte      `json:"signature"`
}
