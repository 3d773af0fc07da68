package api

// Pointer fields distinguish a missing value from zero.

// ActiveUsersResponse from GET /api/metrics/active-users
type ActiveUsersResponse struct {
	Value            *int64 `json:"value"`
	ExpiresInSeconds *int64 `json:"expires_in_seconds"`
}

// ActiveSubscriptionsResponse from GET /api/metrics/active-subscriptions
type ActiveSubscriptionsResponse struct {
	Value       *int64  `json:"value"`
	LastUpdated *string `json:"last_updated"` // ISO 8601
}
