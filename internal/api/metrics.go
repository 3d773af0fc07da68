package api

import (
	"context"
	"fmt"

	"github.com/rickgao/aviarycare/internal/model"
)

// Endpoint paths.
const (
	ActiveUsersPath         = "/api/metrics/active-users"
	ActiveSubscriptionsPath = "/api/metrics/active-subscriptions"
)

// GetActiveUsers fetches the active users metric.
func (c *Client) GetActiveUsers(ctx context.Context) (model.ActiveUsers, error) {
	var resp ActiveUsersResponse
	if err := c.get(ctx, ActiveUsersPath, &resp); err != nil {
		return model.ActiveUsers{}, fmt.Errorf("get active users: %w", err)
	}

	m, err := resp.ToModel()
	if err != nil {
		return model.ActiveUsers{}, fmt.Errorf("get active users: %w", err)
	}
	return m, nil
}

// GetActiveSubscriptions fetches the active subscriptions metric.
func (c *Client) GetActiveSubscriptions(ctx context.Context) (model.ActiveSubscriptions, error) {
	var resp ActiveSubscriptionsResponse
	if err := c.get(ctx, ActiveSubscriptionsPath, &resp); err != nil {
		return model.ActiveSubscriptions{}, fmt.Errorf("get active subscriptions: %w", err)
	}

	m, err := resp.ToModel()
	if err != nil {
		return model.ActiveSubscriptions{}, fmt.Errorf("get active subscriptions: %w", err)
	}
	return m, nil
}
