package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://birds.example.com/", "test-token")

		if c.baseURL != "https://birds.example.com" {
			t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
		}
		if c.token != "test-token" {
			t.Errorf("token = %q, want %q", c.token, "test-token")
		}
		if c.httpClient.Timeout != 10*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 10*time.Second)
		}
		if c.maxRetries != 0 {
			t.Errorf("maxRetries = %d, want 0", c.maxRetries)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		hc := &http.Client{}
		c := NewClient("https://birds.example.com", "",
			WithHTTPClient(hc),
			WithTimeout(3*time.Second),
			WithRetries(2, 10*time.Millisecond),
			WithLogger(logger),
		)
		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
		if hc.Timeout != 3*time.Second {
			t.Errorf("Timeout = %v, want %v", hc.Timeout, 3*time.Second)
		}
		if c.maxRetries != 2 || c.retryBackoff != 10*time.Millisecond {
			t.Errorf("retries = %d/%v, want 2/10ms", c.maxRetries, c.retryBackoff)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 503, Message: "Service Unavailable"}
	if got, want := err.Error(), "metrics api error 503: Service Unavailable"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	tests := []struct {
		code int
		want bool
	}{
		{500, true},
		{502, true},
		{429, true},
		{400, false},
		{404, false},
	}
	for _, tt := range tests {
		e := &APIError{StatusCode: tt.code}
		if got := e.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func newTestServer(t *testing.T, path, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("path = %q, want %q", r.URL.Path, path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetActiveUsers(t *testing.T) {
	server := newTestServer(t, ActiveUsersPath, `{"value": 37, "expires_in_seconds": 45}`, http.StatusOK)
	c := NewClient(server.URL, "")

	got, err := c.GetActiveUsers(context.Background())
	if err != nil {
		t.Fatalf("GetActiveUsers failed: %v", err)
	}
	if got.Value != 37 {
		t.Errorf("Value = %d, want 37", got.Value)
	}
	if got.ExpiresInSeconds != 45 {
		t.Errorf("ExpiresInSeconds = %d, want 45", got.ExpiresInSeconds)
	}
}

func TestGetActiveSubscriptions(t *testing.T) {
	server := newTestServer(t, ActiveSubscriptionsPath,
		`{"value": 1050, "last_updated": "2024-01-15T12:30:45.123+02:00"}`, http.StatusOK)
	c := NewClient(server.URL, "")

	got, err := c.GetActiveSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("GetActiveSubscriptions failed: %v", err)
	}
	if got.Value != 1050 {
		t.Errorf("Value = %d, want 1050", got.Value)
	}
	want := time.Date(2024, 1, 15, 10, 30, 45, 123_000_000, time.UTC)
	if !got.LastUpdated.Equal(want) {
		t.Errorf("LastUpdated = %v, want %v", got.LastUpdated, want)
	}
	if got.LastUpdated.Location() != time.UTC {
		t.Errorf("LastUpdated location = %v, want UTC", got.LastUpdated.Location())
	}
}

func TestMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"users not json", ActiveUsersPath, `<html>oops</html>`},
		{"users missing value", ActiveUsersPath, `{"expires_in_seconds": 30}`},
		{"users negative", ActiveUsersPath, `{"value": -4}`},
		{"users fractional", ActiveUsersPath, `{"value": 12.5}`},
		{"users string value", ActiveUsersPath, `{"value": "12"}`},
		{"subs missing value", ActiveSubscriptionsPath, `{"last_updated": "2024-01-15T12:00:00Z"}`},
		{"subs bad timestamp", ActiveSubscriptionsPath, `{"value": 3, "last_updated": "yesterday"}`},
		{"subs null value", ActiveSubscriptionsPath, `{"value": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.path, tt.body, http.StatusOK)
			c := NewClient(server.URL, "")

			var err error
			if tt.path == ActiveUsersPath {
				_, err = c.GetActiveUsers(context.Background())
			} else {
				_, err = c.GetActiveSubscriptions(context.Background())
			}
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestHTTPErrorIsAPIError(t *testing.T) {
	server := newTestServer(t, ActiveUsersPath, `{"error":"down"}`, http.StatusBadGateway)
	c := NewClient(server.URL, "")

	_, err := c.GetActiveUsers(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, http.StatusBadGateway)
	}
	if string(apiErr.Body) != `{"error":"down"}` {
		t.Errorf("Body = %q", apiErr.Body)
	}
}

func TestNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	if _, err := c.GetActiveSubscriptions(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"value": 9}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
	got, err := c.GetActiveUsers(context.Background())
	if err != nil {
		t.Fatalf("GetActiveUsers failed: %v", err)
	}
	if got.Value != 9 {
		t.Errorf("Value = %d, want 9", got.Value)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestBearerToken(t *testing.T) {
	var auth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"value": 1}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "s3cret")
	if _, err := c.GetActiveUsers(context.Background()); err != nil {
		t.Fatalf("GetActiveUsers failed: %v", err)
	}
	if got := auth.Load(); got != "Bearer s3cret" {
		t.Errorf("Authorization = %v, want %q", got, "Bearer s3cret")
	}
}

func TestContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.GetActiveUsers(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}
