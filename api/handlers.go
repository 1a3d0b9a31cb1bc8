package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/subflowhq/gateway/pkg/billing"
	"github.com/subflowhq/gateway/pkg/captcha"
	"github.com/subflowhq/gateway/pkg/logger"
	"github.com/subflowhq/gateway/pkg/userstore"
)

// Stripe caps webhook payloads well below this; anything larger is abuse.
const maxWebhookBody = 1 << 20

// CaptchaVerifier checks a client-solved captcha token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) (captcha.Result, error)
}

// SessionBroker creates hosted billing sessions for a user.
type SessionBroker interface {
	CreateCheckoutSession(ctx context.Context, userID string, plan userstore.SubscriptionPlan) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
}

// EventSink processes a raw billing webhook delivery.
type EventSink interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error
}

type handlers struct {
	captcha CaptchaVerifier
	broker  SessionBroker
	events  EventSink
	log     *slog.Logger
}

type verifyCaptchaRequest struct {
	Token string `json:"token"`
}

type verifyCaptchaResponse struct {
	Accepted bool    `json:"accepted"`
	Score    float64 `json:"score,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

func (h *handlers) verifyCaptcha(w http.ResponseWriter, r *http.Request) {
	var req verifyCaptchaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidBody)
		return
	}

	result, err := h.captcha.Verify(r.Context(), req.Token)
	if err != nil {
		h.log.ErrorContext(r.Context(), "captcha verification failed", logger.Error(err))
		writeError(w, err)
		return
	}
	if !result.Accepted {
		writeJSON(w, http.StatusForbidden, verifyCaptchaResponse{
			Accepted: false,
			Score:    result.Score,
			Detail:   result.Detail,
		})
		return
	}
	writeJSON(w, http.StatusOK, verifyCaptchaResponse{Accepted: true, Score: result.Score})
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

type sessionResponse struct {
	URL string `json:"url"`
}

func (h *handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, errMissingIdentity)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidBody)
		return
	}

	url, err := h.broker.CreateCheckoutSession(r.Context(), userID, userstore.SubscriptionPlan(req.Plan))
	if err != nil {
		h.log.ErrorContext(r.Context(), "checkout session creation failed", logger.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{URL: url})
}

func (h *handlers) createPortal(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, errMissingIdentity)
		return
	}

	url, err := h.broker.CreatePortalSession(r.Context(), userID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "portal session creation failed", logger.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{URL: url})
}

type webhookResponse struct {
	Received bool `json:"received"`
}

// handleWebhook acknowledges with care: a 2xx suppresses provider redelivery,
// anything else triggers it. Unresolvable events are acknowledged because no
// retry can fix them; transient store failures are not.
func (h *handlers) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, errInvalidBody)
		return
	}

	err = h.events.HandleEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, webhookResponse{Received: true})
	case errors.Is(err, billing.ErrInvalidSignature):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: billing.ErrInvalidSignature.Error()})
	case errors.Is(err, billing.ErrUnresolvableUser):
		writeJSON(w, http.StatusOK, webhookResponse{Received: true})
	default:
		h.log.ErrorContext(r.Context(), "billing event processing failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "event processing failed"})
	}
}
