package userstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned when no record exists for the given ID.
	ErrUserNotFound = errors.New("user record not found")

	// ErrStaleEvent is returned when an update is rejected because a newer
	// billing event was already applied to the record.
	ErrStaleEvent = errors.New("billing event is older than the last applied event")

	// ErrStoreFailure wraps lower-level database failures.
	ErrStoreFailure = errors.New("user record store failure")
)

// Store is the gateway to the external user-record collection. All mutations
// set lastUpdated server-side as part of the same atomic write.
type Store interface {
	// GetUser retrieves a user record by ID.
	// Returns ErrUserNotFound if no record exists.
	GetUser(ctx context.Context, id string) (*User, error)

	// UpdateUser merges only the given fields into the record.
	// Returns ErrUserNotFound if no record exists.
	UpdateUser(ctx context.Context, id string, fields map[string]any) error

	// ClaimBillingCustomerID sets the billing customer ID only if the record
	// does not have one yet, making provisioning at-most-once under
	// concurrency. It returns the winning value: customerID when the claim
	// succeeded, or the previously stored ID when another writer won.
	ClaimBillingCustomerID(ctx context.Context, id, customerID string) (string, error)

	// ApplySubscriptionState atomically merges the given subscription fields,
	// but only if no newer billing event has been applied to the record.
	// eventTime becomes the record's new billing-event watermark. Returns
	// ErrStaleEvent when the guard rejects the write and ErrUserNotFound when
	// the record is absent.
	ApplySubscriptionState(ctx context.Context, id string, fields map[string]any, eventTime time.Time) error
}
