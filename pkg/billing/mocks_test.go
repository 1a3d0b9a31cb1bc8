package billing_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/subflowhq/gateway/pkg/billing"
	"github.com/subflowhq/gateway/pkg/userstore"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	args := m.Called(ctx, email, userID)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) ParseWebhook(payload []byte, signatureHeader string) (*billing.Event, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetUser(ctx context.Context, id string) (*userstore.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userstore.User), args.Error(1)
}

func (m *mockStore) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *mockStore) ClaimBillingCustomerID(ctx context.Context, id, customerID string) (string, error) {
	args := m.Called(ctx, id, customerID)
	return args.String(0), args.Error(1)
}

func (m *mockStore) ApplySubscriptionState(ctx context.Context, id string, fields map[string]any, eventTime time.Time) error {
	args := m.Called(ctx, id, fields, eventTime)
	return args.Error(0)
}

type mockDeduper struct {
	mock.Mock
}

func (m *mockDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockDeduper) MarkSeen(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func testConfig() billing.Config {
	return billing.Config{
		StripeSecretKey:    "sk_test_123",
		WebhookSecret:      "whsec_test",
		PriceMonthly:       "price_monthly_123",
		PriceAnnual:        "price_annual_456",
		CheckoutSuccessURL: "https://app.example.com/billing/success",
		CheckoutCancelURL:  "https://app.example.com/billing/cancel",
		PortalReturnURL:    "https://app.example.com/account",
	}
}
