package scores

import (
	"context"
	"math"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ActivitySource reads on-chain activity signals for an address. Reads may
// block on network I/O; failures are surfaced as transient errors and never
// retried inside the engine.
type ActivitySource interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	TransactionCount(ctx context.Context, address string) (uint64, error)
}

// BadgeSource lists the identity badges owned by an address.
type BadgeSource interface {
	BadgesOf(ctx context.Context, address string) ([]types.Badge, error)
}

// SocialSource reports the number of linked social accounts for an address.
type SocialSource interface {
	LinkedAccountCount(ctx context.Context, address string) (uint64, error)
}

// StreakSource reports the consecutive-streak-day count for an address.
type StreakSource interface {
	StreakDays(ctx context.Context, address string) (uint64, error)
}

// ContributionStore is the injected counter of contribution updates per
// address, replacing any process-global count map.
type ContributionStore interface {
	Count(ctx context.Context, address string) (uint64, error)
	Increment(ctx context.Context, address string) error
}

// InteractionEstimator derives a contract-interaction count from a total
// transaction count. The default is a fixed-ratio estimate; a measuring
// implementation backed by trace or log scans can be swapped in.
type InteractionEstimator interface {
	Estimate(txCount uint64) uint64
}

// RatioEstimator estimates contract interactions as a fixed share of the
// transaction count.
type RatioEstimator struct {
	Ratio float64
}

func (e RatioEstimator) Estimate(txCount uint64) uint64 {
	return uint64(math.Floor(float64(txCount) * e.Ratio))
}

// DefaultEstimator treats 30% of transactions as contract interactions.
var DefaultEstimator = RatioEstimator{Ratio: 0.3}

// Collector gathers the raw score factors for a user from the external
// collaborators.
type Collector struct {
	activity      ActivitySource
	badges        BadgeSource
	social        SocialSource
	streaks       StreakSource
	contributions ContributionStore
	estimator     InteractionEstimator
}

func NewCollector(activity ActivitySource, badges BadgeSource, social SocialSource, streaks StreakSource, contributions ContributionStore, estimator InteractionEstimator) *Collector {
	if estimator == nil {
		estimator = DefaultEstimator
	}
	return &Collector{
		activity:      activity,
		badges:        badges,
		social:        social,
		streaks:       streaks,
		contributions: contributions,
		estimator:     estimator,
	}
}

// Collect reads all raw signals for one address.
func (c *Collector) Collect(ctx context.Context, address string) (*types.ScoreFactors, error) {
	balance, err := c.activity.Balance(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading balance for %v", address)
	}

	txCount, err := c.activity.TransactionCount(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading tx count for %v", address)
	}

	badges, err := c.badges.BadgesOf(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading badges for %v", address)
	}

	socialAccounts, err := c.social.LinkedAccountCount(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading social accounts for %v", address)
	}

	streakDays, err := c.streaks.StreakDays(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading streak for %v", address)
	}

	contributions, err := c.contributions.Count(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading contribution count for %v", address)
	}

	return &types.ScoreFactors{
		Badges:               badges,
		SocialAccounts:       socialAccounts,
		StreakDays:           streakDays,
		Balance:              balance,
		TxCount:              txCount,
		ContractInteractions: c.estimator.Estimate(txCount),
		Contributions:        contributions,
	}, nil
}
