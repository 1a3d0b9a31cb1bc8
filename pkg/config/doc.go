// Package config loads application configuration from environment variables
// into typed structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11 behind a
// small generic API: annotate a struct with `env` tags, then call Load or
// MustLoad. A .env file in the working directory is picked up automatically
// for local development. Each configuration type is parsed once and cached
// for the lifetime of the process, which keeps startup deterministic even
// when several components load the same config concurrently.
//
// All secrets used by this service (Stripe keys, webhook signing secret,
// CAPTCHA secret) are supplied exclusively through this package; nothing is
// embedded in source.
package config
