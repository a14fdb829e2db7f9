package scores

import (
	"context"
	"testing"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type mockActivity struct {
	balance decimal.Decimal
	txCount uint64
	err     error
}

func (m *mockActivity) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	return m.balance, m.err
}

func (m *mockActivity) TransactionCount(ctx context.Context, address string) (uint64, error) {
	return m.txCount, m.err
}

type mockIdentity struct {
	badges   []types.Badge
	accounts uint64
	streak   uint64
}

func (m *mockIdentity) BadgesOf(ctx context.Context, address string) ([]types.Badge, error) {
	return m.badges, nil
}

func (m *mockIdentity) LinkedAccountCount(ctx context.Context, address string) (uint64, error) {
	return m.accounts, nil
}

func (m *mockIdentity) StreakDays(ctx context.Context, address string) (uint64, error) {
	return m.streak, nil
}

type memContributions struct {
	counts map[string]uint64
}

func (m *memContributions) Count(ctx context.Context, address string) (uint64, error) {
	return m.counts[address], nil
}

func (m *memContributions) Increment(ctx context.Context, address string) error {
	if m.counts == nil {
		m.counts = make(map[string]uint64)
	}
	m.counts[address]++
	return nil
}

func TestCollector_Collect(t *testing.T) {
	t.Parallel()

	t.Run("gathers all factors", func(t *testing.T) {
		t.Parallel()

		ident := &mockIdentity{
			badges:   []types.Badge{{Name: "Verified"}},
			accounts: 3,
			streak:   7,
		}
		contributions := &memContributions{counts: map[string]uint64{"0xabc": 4}}
		collector := NewCollector(
			&mockActivity{balance: decimal.NewFromInt(5), txCount: 200},
			ident, ident, ident,
			contributions,
			nil,
		)

		factors, err := collector.Collect(context.Background(), "0xabc")
		require.NoError(t, err)
		require.Len(t, factors.Badges, 1)
		require.Equal(t, uint64(3), factors.SocialAccounts)
		require.Equal(t, uint64(7), factors.StreakDays)
		require.True(t, factors.Balance.Equal(decimal.NewFromInt(5)))
		require.Equal(t, uint64(200), factors.TxCount)
		require.Equal(t, uint64(60), factors.ContractInteractions) // default 30% estimate
		require.Equal(t, uint64(4), factors.Contributions)
	})

	t.Run("propagates source errors", func(t *testing.T) {
		t.Parallel()

		ident := &mockIdentity{}
		collector := NewCollector(
			&mockActivity{err: errors.New("rpc unreachable")},
			ident, ident, ident,
			&memContributions{},
			nil,
		)

		_, err := collector.Collect(context.Background(), "0xabc")
		require.Error(t, err)
		require.Contains(t, err.Error(), "rpc unreachable")
	})

	t.Run("custom estimator", func(t *testing.T) {
		t.Parallel()

		ident := &mockIdentity{}
		collector := NewCollector(
			&mockActivity{txCount: 10},
			ident, ident, ident,
			&memContributions{},
			RatioEstimator{Ratio: 0.5},
		)

		factors, err := collector.Collect(context.Background(), "0xabc")
		require.NoError(t, err)
		require.Equal(t, uint64(5), factors.ContractInteractions)
	})
}
