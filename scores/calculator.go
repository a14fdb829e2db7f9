package scores

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/shopspring/decimal"
)

const (
	defaultBadgePoints     = 10
	pointsPerSocialAccount = 5
	pointsPerStreakDay     = 1
	pointsPerContribution  = 1

	txCountPointsPerTx = 0.01
	txCountPointsCap   = 50
	interactionPoints  = 0.01
)

// balanceTiers is the diminishing-returns schedule for the native-unit
// balance score: the first unit earns 10 points per unit, the next 9 earn 5,
// the next 90 earn 2.5, the next 900 earn 1. Balance beyond 1000 units earns
// the tail rate of 0.5 points per unit.
var balanceTiers = []struct {
	size decimal.Decimal
	rate decimal.Decimal
}{
	{decimal.NewFromInt(1), decimal.NewFromInt(10)},
	{decimal.NewFromInt(9), decimal.NewFromInt(5)},
	{decimal.NewFromInt(90), decimal.NewFromFloat(2.5)},
	{decimal.NewFromInt(900), decimal.NewFromInt(1)},
}

var balanceTailRate = decimal.NewFromFloat(0.5)

// badgePointKeys are the attribute names recognized as badge point values,
// matched case-insensitively.
var badgePointKeys = map[string]bool{
	"points": true,
	"score":  true,
	"value":  true,
}

// Calculator deterministically maps raw score factors to a score breakdown.
// It is a pure function over its inputs and safe for concurrent use.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Breakdown computes the per-category scores for one user's factors.
func (c *Calculator) Breakdown(f *types.ScoreFactors) types.ScoreBreakdown {
	return types.ScoreBreakdown{
		BadgeScore:        c.BadgeScore(f.Badges),
		SocialScore:       c.SocialScore(f.SocialAccounts),
		StreakScore:       c.StreakScore(f.StreakDays),
		ChainScore:        c.ChainScore(f.Balance, f.TxCount, f.ContractInteractions),
		ContributionScore: c.ContributionScore(f.Contributions),
	}
}

// BadgeScore sums point values across badges. A badge with a recognized
// numeric attribute contributes that value; a badge with no attributes at all
// contributes a flat default; a badge whose attributes match no recognized
// key contributes nothing.
func (c *Calculator) BadgeScore(badges []types.Badge) float64 {
	total := float64(0)
	for _, badge := range badges {
		if len(badge.Attributes) == 0 {
			total += defaultBadgePoints
			continue
		}
		for _, attr := range badge.Attributes {
			if !badgePointKeys[strings.ToLower(attr.TraitType)] {
				continue
			}
			if points, ok := numericValue(attr.Value); ok {
				total += points
				break
			}
		}
	}
	return total
}

func (c *Calculator) SocialScore(accounts uint64) float64 {
	return float64(accounts) * pointsPerSocialAccount
}

func (c *Calculator) StreakScore(days uint64) float64 {
	return float64(days) * pointsPerStreakDay
}

func (c *Calculator) ContributionScore(updates uint64) float64 {
	return float64(updates) * pointsPerContribution
}

// ChainScore combines the tiered balance score, the capped transaction-count
// score and the contract-interaction score, floored to an integer.
func (c *Calculator) ChainScore(balance decimal.Decimal, txCount uint64, interactions uint64) float64 {
	balanceScore := balanceTierScore(balance)
	txScore := math.Min(float64(txCount)*txCountPointsPerTx, txCountPointsCap)
	interactionScore := float64(interactions) * interactionPoints
	return math.Floor(balanceScore.InexactFloat64() + txScore + interactionScore)
}

func balanceTierScore(balance decimal.Decimal) decimal.Decimal {
	if balance.Sign() <= 0 {
		return decimal.Zero
	}
	score := decimal.Zero
	remaining := balance
	for _, tier := range balanceTiers {
		take := decimal.Min(remaining, tier.size)
		score = score.Add(take.Mul(tier.rate))
		remaining = remaining.Sub(take)
		if remaining.Sign() <= 0 {
			return score
		}
	}
	return score.Add(remaining.Mul(balanceTailRate))
}

// numericValue parses a badge attribute value as a number. Malformed values
// are skipped, never an error.
func numericValue(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
