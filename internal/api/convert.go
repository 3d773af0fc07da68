package api

import (
	"fmt"
	"time"

	"github.com/rickgao/aviarycare/internal/model"
)

// ToModel validates the response and converts it to model.ActiveUsers.
func (r ActiveUsersResponse) ToModel() (model.ActiveUsers, error) {
	if r.Value == nil {
		return model.ActiveUsers{}, fmt.Errorf("%w: missing value", ErrMalformedResponse)
	}
	if *r.Value < 0 {
		return model.ActiveUsers{}, fmt.Errorf("%w: negative value %d", ErrMalformedResponse, *r.Value)
	}

	m := model.ActiveUsers{Value: *r.Value}
	if r.ExpiresInSeconds != nil {
		m.ExpiresInSeconds = *r.ExpiresInSeconds
	}
	return m, nil
}

// ToModel validates the response and converts it to model.ActiveSubscriptions.
func (r ActiveSubscriptionsResponse) ToModel() (model.ActiveSubscriptions, error) {
	if r.Value == nil {
		return model.ActiveSubscriptions{}, fmt.Errorf("%w: missing value", ErrMalformedResponse)
	}
	if *r.Value < 0 {
		return model.ActiveSubscriptions{}, fmt.Errorf("%w: negative value %d", ErrMalformedResponse, *r.Value)
	}

	m := model.ActiveSubscriptions{Value: *r.Value}
	if r.LastUpdated != nil && *r.LastUpdated != "" {
		ts, err := parseTimestamp(*r.LastUpdated)
		if err != nil {
			return model.ActiveSubscriptions{}, fmt.Errorf("%w: last_updated: %v", ErrMalformedResponse, err)
		}
		m.LastUpdated = ts
	}
	return m, nil
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds.
func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// FromActiveUsers builds the wire response for m.
func FromActiveUsers(m model.ActiveUsers) ActiveUsersResponse {
	v, exp := m.Value, m.ExpiresInSeconds
	return ActiveUsersResponse{Value: &v, ExpiresInSeconds: &exp}
}

// FromActiveSubscriptions builds the wire response for m.
func FromActiveSubscriptions(m model.ActiveSubscriptions) ActiveSubscriptionsResponse {
	v := m.Value
	ts := m.LastUpdated.UTC().Format(time.RFC3339)
	return ActiveSubscriptionsResponse{Value: &v, LastUpdated: &ts}
}
