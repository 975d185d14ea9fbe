package backend

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// TransportOptions configures the HTTP stack used for backend calls
type TransportOptions struct {
	Timeout time.Duration
	// RateLimit is requests per second; zero disables limiting
	RateLimit float64
	Burst     int
	// Credentials wraps the transport to inject service credentials
	Credentials func(http.RoundTripper) (http.RoundTripper, error)
	// TracerProvider and Propagators fall back to the otel globals
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
}

// NewHTTPClient builds the production client: credentials are injected
// below the tracing transport so spans cover the whole round-trip
func NewHTTPClient(opts TransportOptions) (*http.Client, error) {
	var rt http.RoundTripper = http.DefaultTransport
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		rt = &limitedTransport{base: rt, limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burst)}
	}
	if opts.Credentials != nil {
		wrapped, err := opts.Credentials(rt)
		if err != nil {
			return nil, fmt.Errorf("backend credentials: %w", err)
		}
		rt = wrapped
	}
	var otelOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	if opts.Propagators != nil {
		otelOpts = append(otelOpts, otelhttp.WithPropagators(opts.Propagators))
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: otelhttp.NewTransport(rt, otelOpts...),
	}, nil
}

type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
