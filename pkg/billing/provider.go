package billing

import "context"

// Provider is the minimal interface to the external billing provider. It
// keeps the broker and reconciler vendor-agnostic: all provider-specific
// quirks (metadata placement, signature schemes, payload shapes) live in the
// implementation.
type Provider interface {
	// CreateCustomer provisions a billing customer for the user, tagging it
	// with correlation metadata so webhook events can be mapped back.
	CreateCustomer(ctx context.Context, email, userID string) (customerID string, err error)

	// CreateCheckoutSession creates a hosted, subscription-mode checkout
	// session and returns its redirect URL.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (url string, err error)

	// CreatePortalSession creates a customer self-service portal session and
	// returns its URL.
	CreatePortalSession(ctx context.Context, customerID string) (url string, err error)

	// ParseWebhook authenticates a raw webhook delivery against the shared
	// signing secret and returns the normalized event. Any signature or
	// payload problem yields ErrInvalidSignature.
	ParseWebhook(payload []byte, signatureHeader string) (*Event, error)
}
