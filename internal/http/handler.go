package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/promptlyprinted/forge/internal/domain"
	"github.com/promptlyprinted/forge/internal/metrics"
	"github.com/promptlyprinted/forge/internal/observability"
)

// Handler handles HTTP requests.
type Handler struct {
	gateway  *domain.GatewayService
	resolver *CallerResolver
	metrics  *metrics.Metrics
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(gateway *domain.GatewayService, resolver *CallerResolver, m *metrics.Metrics) *Handler {
	return &Handler{
		gateway:  gateway,
		resolver: resolver,
		metrics:  m,
	}
}

// errorEnvelope is the uniform error response shape: a short label and a
// longer human-readable detail, plus path-specific fields.
type errorEnvelope struct {
	Error          string     `json:"error"`
	Details        string     `json:"details"`
	CreditsNeeded  *int       `json:"creditsNeeded,omitempty"`
	CurrentBalance *int       `json:"currentBalance,omitempty"`
	Remaining      *int       `json:"remaining,omitempty"`
	ResetsIn       string     `json:"resetsIn,omitempty"`
	ResetsAt       *time.Time `json:"resetsAt,omitempty"`
	SignupOffer    string     `json:"signupOffer,omitempty"`
}

// HandleGeneration processes metered image generation requests.
func (h *Handler) HandleGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, errorEnvelope{
			Error:   "Method not allowed",
			Details: "use POST",
		})
		return
	}

	caller := h.resolver.Resolve(w, r)
	ctx = observability.WithCaller(ctx, caller.Identity())

	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RequestsTotal.WithLabelValues("bad_request").Inc()
		h.writeError(w, http.StatusBadRequest, errorEnvelope{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	logger := observability.FromContext(ctx)
	logger.Info("generation request received",
		observability.String("model", req.TargetModel),
		observability.Bool("guest", !caller.Authenticated()),
		observability.Int("models", len(req.Models)))

	result, err := h.gateway.Generate(ctx, caller, &req)
	if err != nil {
		h.respondError(ctx, w, err)
		return
	}

	h.metrics.RequestsTotal.WithLabelValues("success").Inc()
	h.metrics.GenerationDuration.Observe(float64(result.GenerationTimeMs) / 1000)
	if result.Credits != nil {
		h.metrics.CreditsCharged.Add(float64(result.Credits.Charged))
	}

	logger.Info("generation request completed",
		observability.Int64("generation_time_ms", result.GenerationTimeMs))

	h.writeJSON(w, http.StatusOK, result)
}

// respondError maps gateway errors to status codes and envelopes. Every
// path terminates in exactly one terminal response type.
func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, err error) {
	observability.FromContext(ctx).Warn("generation request failed", observability.Error(err))

	var insufficient *domain.InsufficientCreditsError
	var exhausted *domain.QuotaExceededError
	var provider *domain.ProviderError

	switch {
	case errors.Is(err, domain.ErrValidation):
		h.metrics.RequestsTotal.WithLabelValues("bad_request").Inc()
		h.writeError(w, http.StatusBadRequest, errorEnvelope{
			Error:   "Invalid request",
			Details: err.Error(),
		})

	case errors.Is(err, domain.ErrNoBaseModel):
		h.metrics.RequestsTotal.WithLabelValues("bad_request").Inc()
		h.writeError(w, http.StatusBadRequest, errorEnvelope{
			Error:   "Invalid model selection",
			Details: "exactly one base model is required",
		})

	case errors.As(err, &insufficient):
		h.metrics.RequestsTotal.WithLabelValues("payment_required").Inc()
		h.metrics.RejectionsTotal.WithLabelValues("insufficient_credits").Inc()
		h.writeError(w, http.StatusPaymentRequired, errorEnvelope{
			Error:          "Insufficient credits",
			Details:        "purchase more credits to keep generating",
			CreditsNeeded:  &insufficient.Required,
			CurrentBalance: &insufficient.Balance,
		})

	case errors.As(err, &exhausted):
		h.metrics.RequestsTotal.WithLabelValues("too_many_requests").Inc()
		h.metrics.RejectionsTotal.WithLabelValues("guest_quota").Inc()
		zero := 0
		h.writeError(w, http.StatusTooManyRequests, errorEnvelope{
			Error:       "Free limit reached",
			Details:     "guest generations are limited, come back later or sign up",
			Remaining:   &zero,
			ResetsIn:    formatResetsIn(exhausted.ResetsAt),
			ResetsAt:    &exhausted.ResetsAt,
			SignupOffer: "Sign up to get credits and keep generating",
		})

	case errors.As(err, &provider):
		h.metrics.RequestsTotal.WithLabelValues("provider_error").Inc()
		h.writeError(w, http.StatusInternalServerError, errorEnvelope{
			Error:   "Failed to generate image",
			Details: provider.Message,
		})

	default:
		h.metrics.RequestsTotal.WithLabelValues("internal_error").Inc()
		h.writeError(w, http.StatusInternalServerError, errorEnvelope{
			Error:   "Internal error",
			Details: "something went wrong, try again",
		})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Status already written, nothing left to do.
		return
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, envelope errorEnvelope) {
	h.writeJSON(w, status, envelope)
}

// formatResetsIn renders the time until quota reset as whole hours.
func formatResetsIn(resetsAt time.Time) string {
	hours := int(time.Until(resetsAt).Hours())
	if hours < 1 {
		return "less than an hour"
	}
	return fmt.Sprintf("%d hours", hours)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		// Status already written, nothing left to do.
		return
	}
}
