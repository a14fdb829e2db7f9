// Package chain reads activity signals from the execution layer RPC.
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// weiDecimals converts wei to the native unit used by the score schedule.
const weiDecimals = -18

// Client implements scores.ActivitySource against an RPC endpoint. Reads are
// cached for a short TTL so that one snapshot cycle does not hammer the node
// when users repeat across cycles.
type Client struct {
	ec    *ethclient.Client
	cache *gocache.Cache
}

func NewClient(endpoint string, cacheTtl time.Duration) (*Client, error) {
	ec, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to rpc endpoint %v", endpoint)
	}
	return &Client{
		ec:    ec,
		cache: gocache.New(cacheTtl, cacheTtl*2),
	}, nil
}

// Balance returns the current balance of an address in native units.
func (c *Client) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	cacheKey := fmt.Sprintf("balance:%v", address)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(decimal.Decimal), nil
	}

	wei, err := c.ec.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "error fetching balance of %v", address)
	}

	balance := decimal.NewFromBigInt(wei, weiDecimals)
	c.cache.SetDefault(cacheKey, balance)
	return balance, nil
}

// TransactionCount returns the number of transactions sent by an address.
func (c *Client) TransactionCount(ctx context.Context, address string) (uint64, error) {
	cacheKey := fmt.Sprintf("txcount:%v", address)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(uint64), nil
	}

	nonce, err := c.ec.NonceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return 0, errors.Wrapf(err, "error fetching tx count of %v", address)
	}

	c.cache.SetDefault(cacheKey, nonce)
	return nonce, nil
}

func (c *Client) Close() {
	c.ec.Close()
}
