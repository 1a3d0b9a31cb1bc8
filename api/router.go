package api

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/subflowhq/gateway/pkg/httpserver"
)

// RouterOptions carries the components the router mounts. Captcha, Broker,
// and Events are required; ReadinessChecks are executed by GET /ready.
type RouterOptions struct {
	Captcha CaptchaVerifier
	Broker  SessionBroker
	Events  EventSink

	Log             *slog.Logger
	ReadinessChecks []func(context.Context) error
}

// NewRouter assembles the gateway's HTTP routes.
func NewRouter(opts RouterOptions) chi.Router {
	if opts.Captcha == nil {
		panic("api: CaptchaVerifier is required")
	}
	if opts.Broker == nil {
		panic("api: SessionBroker is required")
	}
	if opts.Events == nil {
		panic("api: EventSink is required")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	h := &handlers{
		captcha: opts.Captcha,
		broker:  opts.Broker,
		events:  opts.Events,
		log:     opts.Log,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(identity)
	r.Use(requestLogger(opts.Log))

	r.Get("/health", httpserver.HealthCheckHandler(context.Background(), opts.Log))
	r.Get("/ready", httpserver.HealthCheckHandler(context.Background(), opts.Log, opts.ReadinessChecks...))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/captcha/verify", h.verifyCaptcha)
		v1.Route("/billing", func(b chi.Router) {
			b.Post("/checkout", h.createCheckout)
			b.Post("/portal", h.createPortal)
			b.Post("/webhook", h.handleWebhook)
		})
	})

	return r
}
