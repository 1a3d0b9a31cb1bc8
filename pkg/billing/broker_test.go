package billing_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/subflowhq/gateway/pkg/billing"
	"github.com/subflowhq/gateway/pkg/userstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBroker_CreateCheckoutSession(t *testing.T) {
	t.Parallel()

	t.Run("provisions billing customer on first checkout", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)
		cfg := testConfig()

		store.On("GetUser", mock.Anything, "user-1").
			Return(&userstore.User{ID: "user-1", Email: "u@example.com"}, nil)
		provider.On("CreateCustomer", mock.Anything, "u@example.com", "user-1").
			Return("cus_new", nil)
		store.On("ClaimBillingCustomerID", mock.Anything, "user-1", "cus_new").
			Return("cus_new", nil)
		provider.On("CreateCheckoutSession", mock.Anything, billing.CheckoutRequest{
			CustomerID: "cus_new",
			PriceID:    cfg.PriceMonthly,
			UserID:     "user-1",
			Plan:       userstore.PlanMonthly,
			SuccessURL: cfg.CheckoutSuccessURL,
			CancelURL:  cfg.CheckoutCancelURL,
		}).Return("https://checkout.example.com/s/abc", nil)

		broker := billing.NewBroker(cfg, provider, store, discardLogger())
		url, err := broker.CreateCheckoutSession(context.Background(), "user-1", userstore.PlanMonthly)

		require.NoError(t, err)
		assert.Equal(t, "https://checkout.example.com/s/abc", url)
		provider.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("reuses existing billing customer", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)
		cfg := testConfig()

		existing := "cus_existing"
		store.On("GetUser", mock.Anything, "user-2").
			Return(&userstore.User{ID: "user-2", BillingCustomerID: &existing}, nil)
		provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req billing.CheckoutRequest) bool {
			return req.CustomerID == existing && req.PriceID == cfg.PriceAnnual
		})).Return("https://checkout.example.com/s/def", nil)

		broker := billing.NewBroker(cfg, provider, store, discardLogger())
		url, err := broker.CreateCheckoutSession(context.Background(), "user-2", userstore.PlanAnnual)

		require.NoError(t, err)
		assert.Equal(t, "https://checkout.example.com/s/def", url)
		provider.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "ClaimBillingCustomerID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("uses winning customer ID after lost provisioning race", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)

		store.On("GetUser", mock.Anything, "user-3").
			Return(&userstore.User{ID: "user-3", Email: "u3@example.com"}, nil)
		provider.On("CreateCustomer", mock.Anything, "u3@example.com", "user-3").
			Return("cus_loser", nil)
		store.On("ClaimBillingCustomerID", mock.Anything, "user-3", "cus_loser").
			Return("cus_winner", nil)
		provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req billing.CheckoutRequest) bool {
			return req.CustomerID == "cus_winner"
		})).Return("https://checkout.example.com/s/ghi", nil)

		broker := billing.NewBroker(testConfig(), provider, store, discardLogger())
		_, err := broker.CreateCheckoutSession(context.Background(), "user-3", userstore.PlanMonthly)

		require.NoError(t, err)
		provider.AssertExpectations(t)
	})

	t.Run("rejects unknown plan before any lookup", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)

		broker := billing.NewBroker(testConfig(), provider, store, discardLogger())
		_, err := broker.CreateCheckoutSession(context.Background(), "user-1", userstore.SubscriptionPlan("lifetime"))

		require.ErrorIs(t, err, billing.ErrInvalidPlan)
		store.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("propagates unknown user", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)
		store.On("GetUser", mock.Anything, "ghost").Return(nil, userstore.ErrUserNotFound)

		broker := billing.NewBroker(testConfig(), provider, store, discardLogger())
		_, err := broker.CreateCheckoutSession(context.Background(), "ghost", userstore.PlanMonthly)

		require.ErrorIs(t, err, userstore.ErrUserNotFound)
		provider.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("does not persist a customer the provider never created", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)
		providerErr := errors.New("stripe down")

		store.On("GetUser", mock.Anything, "user-4").
			Return(&userstore.User{ID: "user-4"}, nil)
		provider.On("CreateCustomer", mock.Anything, "", "user-4").Return("", providerErr)

		broker := billing.NewBroker(testConfig(), provider, store, discardLogger())
		_, err := broker.CreateCheckoutSession(context.Background(), "user-4", userstore.PlanMonthly)

		require.ErrorIs(t, err, providerErr)
		store.AssertNotCalled(t, "ClaimBillingCustomerID", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBroker_CreatePortalSession(t *testing.T) {
	t.Parallel()

	t.Run("returns portal URL for provisioned customer", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)

		customerID := "cus_123"
		store.On("GetUser", mock.Anything, "user-1").
			Return(&userstore.User{ID: "user-1", BillingCustomerID: &customerID}, nil)
		provider.On("CreatePortalSession", mock.Anything, customerID).
			Return("https://portal.example.com/p/abc", nil)

		broker := billing.NewBroker(testConfig(), provider, store, discardLogger())
		url, err := broker.CreatePortalSession(context.Background(), "user-1")

		require.NoError(t, err)
		assert.Equal(t, "https://portal.example.com/p/abc", url)
	})

	t.Run("fails when no billing customer exists", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)
		store.On("GetUser", mock.Anything, "user-1").
			Return(&userstore.User{ID: "user-1"}, nil)

		broker := billing.NewBroker(testConfig(), provider, store, discardLogger())
		_, err := broker.CreatePortalSession(context.Background(), "user-1")

		require.ErrorIs(t, err, billing.ErrNoBillingCustomer)
		provider.AssertNotCalled(t, "CreatePortalSession", mock.Anything, mock.Anything)
	})

	t.Run("treats empty stored customer ID as unprovisioned", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)
		empty := ""
		store.On("GetUser", mock.Anything, "user-1").
			Return(&userstore.User{ID: "user-1", BillingCustomerID: &empty}, nil)

		broker := billing.NewBroker(testConfig(), provider, store, discardLogger())
		_, err := broker.CreatePortalSession(context.Background(), "user-1")

		require.ErrorIs(t, err, billing.ErrNoBillingCustomer)
	})

	t.Run("propagates unknown user", func(t *testing.T) {
		t.Parallel()

		provider := new(mockProvider)
		store := new(mockStore)
		store.On("GetUser", mock.Anything, "ghost").Return(nil, userstore.ErrUserNotFound)

		broker := billing.NewBroker(testConfig(), provider, store, discardLogger())
		_, err := broker.CreatePortalSession(context.Background(), "ghost")

		require.ErrorIs(t, err, userstore.ErrUserNotFound)
	})
}
