// Package userstore is the gateway to the external user-record collection.
//
// The store exposes read-one and partial-update operations plus two
// conditional primitives the billing components rely on: an at-most-once
// claim of the billing customer ID and a watermark-guarded merge of
// subscription state. Every mutation refreshes lastUpdated server-side in
// the same atomic write.
package userstore
