package billing

import "errors"

var (
	// ErrInvalidPlan is returned for a plan outside {monthly, annual}.
	ErrInvalidPlan = errors.New("invalid subscription plan")

	// ErrNoBillingCustomer is returned when an operation requires a
	// provisioned billing customer and the user never started checkout.
	ErrNoBillingCustomer = errors.New("user has no billing customer yet")

	// ErrInvalidSignature is returned when webhook authenticity cannot be
	// established. No state is mutated; the sender may redeliver.
	ErrInvalidSignature = errors.New("webhook signature verification failed")

	// ErrUnresolvableUser is returned when an authenticated event carries no
	// resolvable internal user ID. The event is dropped rather than guessed at.
	ErrUnresolvableUser = errors.New("billing event has no resolvable user")

	// ErrProviderFailure wraps failures reported by the billing provider.
	ErrProviderFailure = errors.New("billing provider request failed")
)
