package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/subflowhq/gateway/pkg/userstore"
)

// StripeProvider implements Provider on the Stripe API. The client is
// constructed once at startup and passed in; there is no package-level key.
type StripeProvider struct {
	api             *client.API
	webhookSecret   string
	portalReturnURL string
}

// NewStripeProvider creates a Stripe-backed billing provider.
func NewStripeProvider(cfg Config) (*StripeProvider, error) {
	if cfg.StripeSecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}

	return &StripeProvider{
		api:             client.New(cfg.StripeSecretKey, nil),
		webhookSecret:   cfg.WebhookSecret,
		portalReturnURL: cfg.PortalReturnURL,
	}, nil
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata(MetadataUserIDKey, userID)

	cust, err := p.api.Customers.New(params)
	if err != nil {
		return "", errors.Join(ErrProviderFailure, err)
	}
	return cust.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(req.CustomerID),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		// Correlation metadata goes onto the subscription itself so every
		// later lifecycle event carries it.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				MetadataUserIDKey: req.UserID,
				MetadataPlanKey:   string(req.Plan),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, req.UserID)
	params.AddMetadata(MetadataPlanKey, string(req.Plan))

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", errors.Join(ErrProviderFailure, err)
	}
	if sess.URL == "" {
		return "", errors.Join(ErrProviderFailure, errors.New("no checkout URL returned"))
	}
	return sess.URL, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(p.portalReturnURL),
	}
	params.Context = ctx

	sess, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", errors.Join(ErrProviderFailure, err)
	}
	return sess.URL, nil
}

// subscriptionPayload mirrors the fields of a Stripe subscription object this
// service consumes.
type subscriptionPayload struct {
	ID               string            `json:"id"`
	Customer         string            `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
}

func (p *StripeProvider) ParseWebhook(payload []byte, signatureHeader string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	normalized := &Event{
		ID:           event.ID,
		Kind:         classifyEventType(string(event.Type)),
		ProviderType: string(event.Type),
		OccurredAt:   time.Unix(event.Created, 0).UTC(),
	}
	if normalized.Kind == EventIgnored {
		return normalized, nil
	}

	var sub subscriptionPayload
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	normalized.SubscriptionID = sub.ID
	normalized.CustomerID = sub.Customer
	normalized.Status = userstore.SubscriptionStatus(sub.Status)
	normalized.UserID = sub.Metadata[MetadataUserIDKey]
	normalized.Plan = normalizePlan(sub.Metadata[MetadataPlanKey])
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		normalized.PeriodEnd = &end
	}

	return normalized, nil
}

// normalizePlan keeps the record's plan vocabulary closed: correlation
// metadata that is missing or unrecognized becomes PlanNone instead of
// leaking raw metadata onto the user record.
func normalizePlan(raw string) userstore.SubscriptionPlan {
	switch plan := userstore.SubscriptionPlan(raw); plan {
	case userstore.PlanMonthly, userstore.PlanAnnual:
		return plan
	default:
		return userstore.PlanNone
	}
}

func classifyEventType(providerType string) EventKind {
	switch providerType {
	case "customer.subscription.created":
		return EventCreated
	case "customer.subscription.updated":
		return EventUpdated
	case "customer.subscription.deleted":
		return EventDeleted
	default:
		return EventIgnored
	}
}
