// Package identity is the HTTP client for the identity backend, which serves
// badge ownership, linked social accounts and streak data per address.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Decode-Labs-Web3/deid-snapshot-engine/types"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// Client implements the scores badge, social and streak sources against the
// identity backend REST API. Profiles are memoized for a short TTL so that
// the three source reads of one collection pass cost a single request.
type Client struct {
	baseURL string
	client  *http.Client
	cache   *gocache.Cache
}

func NewClient(baseURL string, timeout, cacheTtl time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		cache: gocache.New(cacheTtl, cacheTtl*2),
	}
}

type profileResponse struct {
	Badges         []types.Badge `json:"badges"`
	SocialAccounts uint64        `json:"socialAccounts"`
	StreakDays     uint64        `json:"streakDays"`
}

func (c *Client) profile(ctx context.Context, address string) (*profileResponse, error) {
	if cached, ok := c.cache.Get(address); ok {
		return cached.(*profileResponse), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/profile/%s", c.baseURL, address), nil)
	if err != nil {
		return nil, errors.Wrap(err, "error creating profile request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "error fetching profile of %v", address)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request for %v failed, status code: %d", address, resp.StatusCode)
	}

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, errors.Wrap(err, "error decoding profile response")
	}
	c.cache.SetDefault(address, &profile)
	return &profile, nil
}

func (c *Client) BadgesOf(ctx context.Context, address string) ([]types.Badge, error) {
	profile, err := c.profile(ctx, address)
	if err != nil {
		return nil, err
	}
	return profile.Badges, nil
}

func (c *Client) LinkedAccountCount(ctx context.Context, address string) (uint64, error) {
	profile, err := c.profile(ctx, address)
	if err != nil {
		return 0, err
	}
	return profile.SocialAccounts, nil
}

func (c *Client) StreakDays(ctx context.Context, address string) (uint64, error) {
	profile, err := c.profile(ctx, address)
	if err != nil {
		return 0, err
	}
	return profile.StreakDays, nil
}
