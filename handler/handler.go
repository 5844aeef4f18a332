package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/roamingbanjara/urgency-timer/pkg/billing"
	"github.com/roamingbanjara/urgency-timer/pkg/clientip"
	"github.com/roamingbanjara/urgency-timer/pkg/httpserver"
	"github.com/roamingbanjara/urgency-timer/pkg/ratelimit"
	"github.com/roamingbanjara/urgency-timer/pkg/tenantstore"
	"github.com/roamingbanjara/urgency-timer/pkg/viewcache"
	"github.com/roamingbanjara/urgency-timer/pkg/views"
)

// Handler exposes the metering engine over HTTP: the public collector
// endpoints hit by the storefront widget, the dashboard endpoints and the
// billing webhooks.
type Handler struct {
	views         *views.Service
	reconciler    *billing.Reconciler
	store         tenantstore.Store
	viewers       viewcache.ViewerCounter
	sessions      viewcache.SessionTracker
	limiter       *ratelimit.Bucket
	webhookSecret string
	log           *slog.Logger
	healthChecks  []func(context.Context) error
}

// Option configures the Handler.
type Option func(*Handler)

// WithViewerCounter enables the active-viewer counts in status responses.
func WithViewerCounter(v viewcache.ViewerCounter) Option {
	return func(h *Handler) { h.viewers = v }
}

// WithSessionTracker records which storefront each visitor session belongs
// to, so repeat requests can be attributed without re-sending the shop.
func WithSessionTracker(s viewcache.SessionTracker) Option {
	return func(h *Handler) { h.sessions = s }
}

// WithRateLimiter throttles the public collector endpoints per client IP.
func WithRateLimiter(b *ratelimit.Bucket) Option {
	return func(h *Handler) { h.limiter = b }
}

// WithWebhookSecret sets the shared secret for webhook HMAC verification.
// Without it the webhook endpoints reject every delivery.
func WithWebhookSecret(secret string) Option {
	return func(h *Handler) { h.webhookSecret = secret }
}

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithHealthChecks registers readiness checks for the health endpoint.
func WithHealthChecks(checks ...func(context.Context) error) Option {
	return func(h *Handler) { h.healthChecks = append(h.healthChecks, checks...) }
}

// New returns a Handler over the given services.
func New(viewsSvc *views.Service, reconciler *billing.Reconciler, store tenantstore.Store, opts ...Option) *Handler {
	if viewsSvc == nil {
		panic("handler: views service is required")
	}
	if reconciler == nil {
		panic("handler: billing reconciler is required")
	}
	if store == nil {
		panic("handler: tenant store is required")
	}
	h := &Handler{
		views:      viewsSvc,
		reconciler: reconciler,
		store:      store,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router assembles the chi route tree.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(h.log, h.healthChecks...))

	// Public collector endpoints, called cross-origin from storefronts.
	r.Group(func(r chi.Router) {
		r.Use(corsAllowAll)
		if h.limiter != nil {
			r.Use(ratelimit.Middleware(h.limiter, clientip.ClientIP))
		}
		// Preflight requests are answered by the CORS middleware itself.
		r.Options("/api/*", func(http.ResponseWriter, *http.Request) {})
		r.Post("/api/register-view", h.registerView)
		r.Get("/api/status", h.status)
	})

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/stats", h.dashboardStats)
		r.Get("/settings", h.getSettings)
		r.Post("/settings", h.updateSettings)
	})

	r.Route("/api/webhooks", func(r chi.Router) {
		r.Use(h.verifyWebhook)
		r.Post("/subscription-update", h.subscriptionUpdate)
		r.Post("/app-uninstalled", h.appUninstalled)
	})

	return r
}

type registerViewRequest struct {
	Shop      string `json:"shop"`
	ProductID string `json:"productId"`
	SessionID string `json:"sessionId"`
}

type registerViewResponse struct {
	Registered bool   `json:"registered"`
	Duplicate  bool   `json:"duplicate"`
	SessionID  string `json:"sessionId"`
}

func (h *Handler) registerView(w http.ResponseWriter, r *http.Request) {
	var req registerViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// A visitor's first request carries no session yet; mint one and hand it
	// back so the widget persists it for subsequent views.
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	res, err := h.views.RegisterView(r.Context(), req.Shop, req.ProductID, req.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, views.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "shop and productId are required")
		return
	case errors.Is(err, views.ErrUnknownTenant):
		writeError(w, http.StatusNotFound, "shop not found")
		return
	default:
		h.log.ErrorContext(r.Context(), "view registration failed",
			slog.String("shop", req.Shop), slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "temporarily unable to register view")
		return
	}

	// Session attribution and viewer counts are best effort; neither may
	// fail a registration that already counted.
	if h.sessions != nil {
		if err := h.sessions.MarkSession(r.Context(), req.SessionID, req.Shop); err != nil {
			h.log.WarnContext(r.Context(), "session tracker unavailable", slog.Any("error", err))
		}
	}
	if h.viewers != nil && res.Registered {
		if _, err := h.viewers.IncrementActiveViewers(r.Context(), req.ProductID); err != nil {
			h.log.WarnContext(r.Context(), "active viewer counter unavailable", slog.Any("error", err))
		}
	}

	writeJSON(w, http.StatusOK, registerViewResponse{
		Registered: res.Registered,
		Duplicate:  res.Duplicate,
		SessionID:  req.SessionID,
	})
}

type statusResponse struct {
	Locked         bool            `json:"locked"`
	Warning        bool            `json:"warning"`
	ViewsUsed      int64           `json:"viewsUsed"`
	ViewsRemaining int64           `json:"viewsRemaining"`
	TotalViews     int64           `json:"totalViews"`
	IsPaid         bool            `json:"isPaid"`
	Plan           string          `json:"plan"`
	Settings       settingsPayload `json:"settings"`
	ActiveViewers  int64           `json:"activeViewers,omitempty"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")

	status, err := h.views.GetStatus(r.Context(), shop)
	switch {
	case err == nil:
	case errors.Is(err, views.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "shop parameter required")
		return
	default:
		h.log.ErrorContext(r.Context(), "status query failed",
			slog.String("shop", shop), slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "temporarily unable to fetch status")
		return
	}

	resp := statusResponse{
		Locked:         status.Locked,
		Warning:        status.Warning,
		ViewsUsed:      status.ViewsUsed,
		ViewsRemaining: status.ViewsRemaining,
		TotalViews:     status.TotalViews,
		IsPaid:         status.IsPaid,
		Plan:           string(status.Plan),
		Settings:       toSettingsPayload(status.Settings),
	}

	if h.viewers != nil {
		if productID := r.URL.Query().Get("productId"); productID != "" {
			if n, err := h.viewers.ActiveViewers(r.Context(), productID); err == nil {
				resp.ActiveViewers = n
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type dashboardStatsResponse struct {
	ViewsUsed  int64  `json:"viewsUsed"`
	TotalViews int64  `json:"totalViews"`
	Locked     bool   `json:"locked"`
	Warning    bool   `json:"warning"`
	IsPaid     bool   `json:"isPaid"`
	Plan       string `json:"plan"`
}

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")

	status, err := h.views.GetStatus(r.Context(), shop)
	switch {
	case err == nil:
	case errors.Is(err, views.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "shop parameter required")
		return
	default:
		h.log.ErrorContext(r.Context(), "dashboard stats failed",
			slog.String("shop", shop), slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "temporarily unable to fetch stats")
		return
	}

	writeJSON(w, http.StatusOK, dashboardStatsResponse{
		ViewsUsed:  status.ViewsUsed,
		TotalViews: status.TotalViews,
		Locked:     status.Locked,
		Warning:    status.Warning,
		IsPaid:     status.IsPaid,
		Plan:       string(status.Plan),
	})
}
