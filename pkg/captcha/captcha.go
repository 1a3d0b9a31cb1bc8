package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/subflowhq/gateway/pkg/logger"
)

// Config holds settings for the external verification service.
// The shared secret must come from the environment; the score threshold is a
// policy knob, not a constant.
type Config struct {
	Secret         string        `env:"CAPTCHA_SECRET,required"`
	VerifyURL      string        `env:"CAPTCHA_VERIFY_URL" envDefault:"https://www.google.com/recaptcha/api/siteverify"`
	ScoreThreshold float64       `env:"CAPTCHA_SCORE_THRESHOLD" envDefault:"0.5"`
	Timeout        time.Duration `env:"CAPTCHA_TIMEOUT" envDefault:"10s"`
}

// Result is the outcome of a verification attempt that reached the service.
type Result struct {
	Accepted bool
	Score    float64
	Detail   string // provider error codes when not accepted
}

// Verifier checks client-supplied CAPTCHA tokens against the external
// verification service. A single outbound attempt is made per call; retry
// policy belongs to the caller.
type Verifier struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// NewVerifier creates a Verifier. A nil httpClient falls back to a client
// bounded by cfg.Timeout.
func NewVerifier(cfg Config, httpClient *http.Client, log *slog.Logger) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.ScoreThreshold <= 0 || cfg.ScoreThreshold > 1 {
		return nil, fmt.Errorf("%w: score threshold %v out of (0,1]", ErrInvalidConfig, cfg.ScoreThreshold)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{cfg: cfg, client: httpClient, log: log}, nil
}

// verifyResponse mirrors the service's siteverify payload.
type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify submits the token with the pre-shared secret and applies the score
// policy. An empty token fails with ErrEmptyToken before any outbound call.
// Transport failures and non-2xx responses are reported as
// ErrServiceUnavailable, distinct from a verification rejection.
func (v *Verifier) Verify(ctx context.Context, token string) (Result, error) {
	if token == "" {
		return Result{}, ErrEmptyToken
	}

	form := url.Values{
		"secret":   {v.cfg.Secret},
		"response": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, errors.Join(ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, errors.Join(ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: verification service returned status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, errors.Join(ErrServiceUnavailable, err)
	}

	result := Result{Score: body.Score}
	if body.Success && body.Score >= v.cfg.ScoreThreshold {
		result.Accepted = true
		return result, nil
	}

	result.Detail = "unknown error"
	if len(body.ErrorCodes) > 0 {
		result.Detail = strings.Join(body.ErrorCodes, ", ")
	}
	v.log.InfoContext(ctx, "captcha verification rejected",
		slog.Float64("score", body.Score),
		slog.String("detail", result.Detail),
		logger.Component("captcha"),
	)
	return result, nil
}
