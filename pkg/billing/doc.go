// Package billing brokers subscription billing between this service, the
// external payment provider, and the user-record store.
//
// The Broker creates hosted checkout and customer portal sessions, lazily
// provisioning a billing customer identity on first checkout with an
// at-most-once conditional claim. The Reconciler consumes asynchronous
// webhook events — authenticated, replay-guarded, and correlated back to a
// user record — and applies idempotent subscription state transitions that
// can never regress a record to a stale state, regardless of delivery order.
//
// The Provider interface isolates all vendor specifics; the shipped
// implementation targets Stripe.
package billing
