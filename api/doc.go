// Package api exposes the HTTP surface of the gateway: captcha verification,
// billing session creation, the billing webhook sink, and health probes.
//
// Handlers depend on narrow interfaces so transports and core components stay
// independently testable. Identity is asserted upstream by the fronting auth
// proxy via trusted headers; this package only enforces its presence.
package api
