// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/absmach/qstash/ratelimit"
)

// Default values.
const (
	DefaultBaseURL = "https://qstash.upstash.io"
	DefaultTimeout = 30 * time.Second
)

// Version selects the QStash REST API version used as the first path
// segment of every request.
type Version string

// Supported API versions.
const (
	V1 Version = "v1"
	V2 Version = "v2"
)

// Options configures the QStash client.
type Options struct {
	// Credentials
	Token string // Bearer token sent as the Authorization header

	// Endpoint
	BaseURL string  // Service base URL
	Version Version // API version path segment

	// Transport
	Timeout    time.Duration // Timeout for the default HTTP client
	HTTPClient *http.Client  // Custom HTTP client (overrides Timeout)

	// Observability
	Logger         *slog.Logger         // Structured logger (nil uses slog.Default)
	TracerProvider trace.TracerProvider // Tracer provider for publish spans (nil disables tracing)

	// Resilience
	Limiter                 *ratelimit.PublishLimiter // Client-side publish rate limiter (nil disables)
	BreakerFailureThreshold uint32                    // Consecutive transport failures before the breaker opens (0 disables)
	BreakerResetTimeout     time.Duration             // How long the breaker stays open
}

// NewOptions creates Options with sensible defaults. The token must be set
// before the options are usable.
func NewOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		Version: V2,
		Timeout: DefaultTimeout,
	}
}

// SetToken sets the bearer token.
func (o *Options) SetToken(token string) *Options {
	o.Token = token
	return o
}

// SetBaseURL sets the service base URL.
func (o *Options) SetBaseURL(u string) *Options {
	o.BaseURL = u
	return o
}

// SetVersion sets the API version.
func (o *Options) SetVersion(v Version) *Options {
	o.Version = v
	return o
}

// SetTimeout sets the timeout of the default HTTP client.
func (o *Options) SetTimeout(d time.Duration) *Options {
	o.Timeout = d
	return o
}

// SetHTTPClient sets a custom HTTP client.
func (o *Options) SetHTTPClient(c *http.Client) *Options {
	o.HTTPClient = c
	return o
}

// SetLogger sets the structured logger.
func (o *Options) SetLogger(l *slog.Logger) *Options {
	o.Logger = l
	return o
}

// SetTracerProvider sets the tracer provider used for publish spans.
func (o *Options) SetTracerProvider(tp trace.TracerProvider) *Options {
	o.TracerProvider = tp
	return o
}

// SetRateLimiter sets a client-side publish rate limiter.
func (o *Options) SetRateLimiter(l *ratelimit.PublishLimiter) *Options {
	o.Limiter = l
	return o
}

// SetCircuitBreaker enables a circuit breaker around outbound calls. The
// breaker opens after failureThreshold consecutive transport failures and
// half-opens after resetTimeout.
func (o *Options) SetCircuitBreaker(failureThreshold uint32, resetTimeout time.Duration) *Options {
	o.BreakerFailureThreshold = failureThreshold
	o.BreakerResetTimeout = resetTimeout
	return o
}

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	if o.Token == "" {
		return ErrNoToken
	}
	if o.Version != V1 && o.Version != V2 {
		return ErrInvalidVersion
	}
	u, err := url.Parse(o.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidBaseURL
	}
	return nil
}
