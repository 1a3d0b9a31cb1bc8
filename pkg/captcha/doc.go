// Package captcha verifies bot-protection tokens against an external
// scoring service (reCAPTCHA siteverify wire contract).
//
// A token is accepted when the service reports success and the returned
// score meets the configured threshold. Rejections carry the service's
// error codes as a human-readable detail; service outages surface as
// ErrServiceUnavailable so transport can map them to a 5xx rather than a
// verification failure.
package captcha
