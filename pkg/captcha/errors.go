package captcha

import "errors"

var (
	// ErrEmptyToken is returned when no token was supplied by the caller.
	ErrEmptyToken = errors.New("captcha token is empty")

	// ErrMissingSecret is returned when the shared verification secret is not configured.
	ErrMissingSecret = errors.New("captcha secret is required")

	// ErrInvalidConfig is returned for out-of-range policy settings.
	ErrInvalidConfig = errors.New("invalid captcha configuration")

	// ErrServiceUnavailable is returned when the verification service could not
	// be reached or gave an unusable response. Distinct from a rejection.
	ErrServiceUnavailable = errors.New("captcha verification service unavailable")
)
