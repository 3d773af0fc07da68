package metricsapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/aviarycare/internal/api"
	"github.com/rickgao/aviarycare/internal/model"
	"github.com/rickgao/aviarycare/internal/version"
)

const healthTimeout = 5 * time.Second

// Reader answers metric queries.
type Reader interface {
	ActiveUsers(ctx context.Context) (model.ActiveUsers, error)
	ActiveSubscriptions(ctx context.Context) (model.ActiveSubscriptions, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// API is the metrics backend HTTP handler.
type API struct {
	http.Handler

	reader Reader
	db     Pinger
	logger *slog.Logger
}

// ErrorResponse is returned when a query fails.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Options holds optional handlers mounted by New.
type Options struct {
	Metrics    http.Handler                      // Mounted at /metrics when set
	Middleware []func(http.Handler) http.Handler // Applied after the defaults
}

// New builds the router.
func New(reader Reader, db Pinger, logger *slog.Logger, opts Options) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{reader: reader, db: db, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	for _, mw := range opts.Middleware {
		r.Use(mw)
	}

	r.Get("/health", a.health)
	r.Get(api.ActiveUsersPath, a.activeUsers)
	r.Get(api.ActiveSubscriptionsPath, a.activeSubscriptions)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	a.Handler = r
	return a
}

func (a *API) activeUsers(w http.ResponseWriter, r *http.Request) {
	m, err := a.reader.ActiveUsers(r.Context())
	if err != nil {
		a.queryFailed(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, api.FromActiveUsers(m))
}

func (a *API) activeSubscriptions(w http.ResponseWriter, r *http.Request) {
	m, err := a.reader.ActiveSubscriptions(r.Context())
	if err != nil {
		a.queryFailed(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, api.FromActiveSubscriptions(m))
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	health := struct {
		Status     string            `json:"status"`
		Version    string            `json:"version"`
		Components map[string]string `json:"components"`
	}{
		Status:     "healthy",
		Version:    version.String(),
		Components: map[string]string{"postgres": "connected"},
	}

	code := http.StatusOK
	if err := a.db.Ping(ctx); err != nil {
		health.Status = "unhealthy"
		health.Components["postgres"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	a.writeJSON(w, r, code, health)
}

// queryFailed hides database details from callers.
func (a *API) queryFailed(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("metric query failed",
		"path", r.URL.Path,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	a.writeJSON(w, r, http.StatusServiceUnavailable, ErrorResponse{Error: "metric temporarily unavailable"})
}

func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("failed to encode json response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		a.logger.Debug("failed to write json response", "error", err, "path", r.URL.Path)
	}
}
