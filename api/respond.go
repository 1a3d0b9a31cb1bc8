package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/subflowhq/gateway/pkg/billing"
	"github.com/subflowhq/gateway/pkg/captcha"
	"github.com/subflowhq/gateway/pkg/userstore"
)

// errInvalidBody marks request bodies that cannot be decoded or fail basic
// shape validation.
var errInvalidBody = errors.New("invalid request body")

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: publicMessage(err)})
}

// statusFor maps component errors to HTTP status codes. Webhook-specific
// acknowledgment semantics are handled in the webhook handler, not here.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidBody),
		errors.Is(err, captcha.ErrEmptyToken),
		errors.Is(err, billing.ErrInvalidPlan):
		return http.StatusBadRequest
	case errors.Is(err, errMissingIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, userstore.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, billing.ErrNoBillingCustomer):
		return http.StatusPreconditionFailed
	case errors.Is(err, captcha.ErrServiceUnavailable),
		errors.Is(err, billing.ErrProviderFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps wrapped internals (provider responses, driver errors)
// out of client-facing bodies.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		errInvalidBody,
		errMissingIdentity,
		captcha.ErrEmptyToken,
		captcha.ErrServiceUnavailable,
		billing.ErrInvalidPlan,
		billing.ErrNoBillingCustomer,
		billing.ErrProviderFailure,
		userstore.ErrUserNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}
