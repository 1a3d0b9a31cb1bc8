// Package redis provides connection bootstrap and health checking for the
// Redis instance used as the billing webhook replay guard.
package redis
