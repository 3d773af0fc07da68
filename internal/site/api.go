package site

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/aviarycare/internal/hooks"
	"github.com/rickgao/aviarycare/internal/model"
	"github.com/rickgao/aviarycare/internal/version"
)

const maxBodyBytes = 4 << 10

// Widget is the widget surface the HTTP handlers use.
type Widget interface {
	Snapshot() model.Snapshot
	SetVisible(visible bool)
	SetHovered(hovered bool)
}

// Triggerer fires refresh hooks.
type Triggerer interface {
	Trigger(topic hooks.Topic)
}

// Options holds optional handlers mounted by New.
type Options struct {
	Stream     http.Handler                      // Mounted at /ws/metrics when set
	Metrics    http.Handler                      // Mounted at /metrics when set
	Middleware []func(http.Handler) http.Handler // Applied after the defaults
}

// API is the site HTTP handler.
type API struct {
	http.Handler

	widget    Widget
	hooks     Triggerer
	logger    *slog.Logger
	startedAt time.Time
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	StartedAt  time.Time                  `json:"started_at"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth describes one card's data source.
type ComponentHealth struct {
	Source string `json:"source"`
	Value  int64  `json:"value"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// New builds the router.
func New(widget Widget, triggerer Triggerer, logger *slog.Logger, opts Options) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		widget:    widget,
		hooks:     triggerer,
		logger:    logger,
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests(logger))
	r.Use(middleware.Recoverer)
	for _, mw := range opts.Middleware {
		r.Use(mw)
	}

	r.Get("/health", a.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/widget/metrics", a.snapshot)
		r.Post("/widget/visibility", a.visibility)
		r.Post("/widget/hover", a.hover)
		r.Post("/payments/success", a.paymentSuccess)
	})
	if opts.Stream != nil {
		r.Method(http.MethodGet, "/ws/metrics", opts.Stream)
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	a.Handler = r
	return a
}

// health reports degraded while either card still shows its fallback.
func (a *API) health(w http.ResponseWriter, r *http.Request) {
	s := a.widget.Snapshot()
	resp := HealthResponse{
		Status:    "healthy",
		Version:   version.String(),
		StartedAt: a.startedAt,
		Components: map[string]ComponentHealth{
			string(model.ActiveUsersKey):         {Source: s.ActiveUsers.Source, Value: s.ActiveUsers.Target},
			string(model.ActiveSubscriptionsKey): {Source: s.ActiveSubscriptions.Source, Value: s.ActiveSubscriptions.Target},
		},
	}
	for _, c := range resp.Components {
		if c.Source != model.SourceFetched {
			resp.Status = "degraded"
		}
	}
	a.writeJSON(w, r, http.StatusOK, resp)
}

func (a *API) snapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	a.writeJSON(w, r, http.StatusOK, a.widget.Snapshot())
}

// paymentSuccess is called once checkout completes. The body is ignored; the
// only effect is an off-schedule subscriptions refresh.
func (a *API) paymentSuccess(w http.ResponseWriter, r *http.Request) {
	if _, err := io.Copy(io.Discard, http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		a.logger.Debug("payment callback body not fully read", "error", err)
	}

	a.hooks.Trigger(hooks.RefetchActiveSubscriptions)
	a.logger.Info("payment completed, refreshing subscriptions",
		"request_id", middleware.GetReqID(r.Context()),
	)
	a.writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

func (a *API) visibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Visible == nil {
		a.writeError(w, r, http.StatusBadRequest, errors.New("visible is required"))
		return
	}
	a.widget.SetVisible(*req.Visible)
	w.WriteHeader(http.StatusNoContent)
}

type hoverRequest struct {
	Hovered *bool `json:"hovered"`
}

func (a *API) hover(w http.ResponseWriter, r *http.Request) {
	var req hoverRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Hovered == nil {
		a.writeError(w, r, http.StatusBadRequest, errors.New("hovered is required"))
		return
	}
	a.widget.SetHovered(*req.Hovered)
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	a.writeJSON(w, r, code, ErrorResponse{Error: err.Error()})
}

func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("failed to encode json response",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		a.logger.Debug("failed to write json response", "error", err)
	}
}
