package billing

import (
	"time"

	"github.com/subflowhq/gateway/pkg/userstore"
)

// Metadata keys used to correlate provider-side entities back to internal
// user records. The user-ID key matches what the client application has
// historically written, so in-flight subscriptions keep resolving.
const (
	MetadataUserIDKey = "firebaseUserId"
	MetadataPlanKey   = "plan"
)

// Config holds billing provider settings. All secrets and identifiers are
// externally supplied.
type Config struct {
	StripeSecretKey    string        `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret      string        `env:"STRIPE_WEBHOOK_SECRET,required"`
	PriceMonthly       string        `env:"STRIPE_PRICE_MONTHLY,required"`
	PriceAnnual        string        `env:"STRIPE_PRICE_ANNUAL,required"`
	CheckoutSuccessURL string        `env:"CHECKOUT_SUCCESS_URL,required"`
	CheckoutCancelURL  string        `env:"CHECKOUT_CANCEL_URL,required"`
	PortalReturnURL    string        `env:"PORTAL_RETURN_URL,required"`
	DedupeTTL          time.Duration `env:"WEBHOOK_DEDUPE_TTL" envDefault:"72h"`
}

// PriceID resolves a subscription plan to the provider-side price identifier.
func (c Config) PriceID(plan userstore.SubscriptionPlan) (string, bool) {
	switch plan {
	case userstore.PlanMonthly:
		return c.PriceMonthly, true
	case userstore.PlanAnnual:
		return c.PriceAnnual, true
	default:
		return "", false
	}
}

// EventKind is the normalized billing event classification.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
	EventIgnored EventKind = "ignored"
)

// Event is a normalized, authenticated billing lifecycle event.
type Event struct {
	ID             string                       // provider event ID, replay-guard key
	Kind           EventKind                    // normalized classification
	ProviderType   string                       // original provider event name
	SubscriptionID string                       // provider subscription ID
	CustomerID     string                       // provider customer ID
	Status         userstore.SubscriptionStatus // provider-reported status, verbatim
	Plan           userstore.SubscriptionPlan   // from correlation metadata
	UserID         string                       // internal user ID from correlation metadata
	PeriodEnd      *time.Time                   // absolute end of the current billing period
	OccurredAt     time.Time                    // provider-side event time, staleness watermark
}

// CheckoutRequest contains the data needed to create a hosted checkout session.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	UserID     string
	Plan       userstore.SubscriptionPlan
	SuccessURL string
	CancelURL  string
}
