package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/subflowhq/gateway/pkg/logger"
	"github.com/subflowhq/gateway/pkg/userstore"
)

// Broker creates hosted checkout and customer portal sessions, lazily
// provisioning a billing customer identity on first checkout.
type Broker struct {
	cfg      Config
	provider Provider
	store    userstore.Store
	log      *slog.Logger
}

// NewBroker creates a Broker. Panics on nil dependencies to fail fast during
// initialization.
func NewBroker(cfg Config, provider Provider, store userstore.Store, log *slog.Logger) *Broker {
	if provider == nil {
		panic("billing: Provider is required")
	}
	if store == nil {
		panic("billing: userstore.Store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Broker{cfg: cfg, provider: provider, store: store, log: log}
}

// CreateCheckoutSession resolves the plan to a provider price, ensures the
// user has a billing customer identity, and returns the hosted checkout URL.
func (b *Broker) CreateCheckoutSession(ctx context.Context, userID string, plan userstore.SubscriptionPlan) (string, error) {
	priceID, ok := b.cfg.PriceID(plan)
	if !ok {
		return "", ErrInvalidPlan
	}

	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	customerID, err := b.ensureBillingCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	url, err := b.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     userID,
		Plan:       plan,
		SuccessURL: b.cfg.CheckoutSuccessURL,
		CancelURL:  b.cfg.CheckoutCancelURL,
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// CreatePortalSession returns a customer self-service portal URL. The user
// must already have a billing customer identity.
func (b *Broker) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.HasBillingCustomer() {
		return "", ErrNoBillingCustomer
	}
	return b.provider.CreatePortalSession(ctx, *user.BillingCustomerID)
}

// ensureBillingCustomer returns the user's billing customer ID, provisioning
// one at most once. Two concurrent first-checkouts may both create a provider
// customer, but the conditional claim ensures only one is ever persisted; the
// loser is logged so the orphaned provider record can be cleaned up.
func (b *Broker) ensureBillingCustomer(ctx context.Context, user *userstore.User) (string, error) {
	if user.HasBillingCustomer() {
		return *user.BillingCustomerID, nil
	}

	created, err := b.provider.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", err
	}

	winner, err := b.store.ClaimBillingCustomerID(ctx, user.ID, created)
	if err != nil {
		return "", err
	}
	if winner != created {
		b.log.WarnContext(ctx, "lost billing customer provisioning race, provider customer orphaned",
			logger.UserID(user.ID),
			logger.CustomerID(created),
			slog.String("winning_customer_id", winner),
		)
	}
	return winner, nil
}

// IsNotFound reports whether err means the referenced user record is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, userstore.ErrUserNotFound)
}
