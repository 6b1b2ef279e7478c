// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package client provides a client for the QStash hosted message-publishing
// service. Messages are published to a direct URL or to a topic, with
// delivery directives (delay, deduplication, retries, callback) expressed
// as Upstash-* request headers.
package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const userAgent = "qstash-go/0.1.0"

// Client is a QStash REST API client. It is safe for concurrent use; all
// configuration is fixed at construction and every call issues exactly one
// outbound request.
type Client struct {
	opts    *Options
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

// New creates a QStash client with the given options.
func New(opts *Options) (*Client, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: opts.Timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		opts:    opts,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		http:    httpc,
		logger:  logger,
	}

	if opts.BreakerFailureThreshold > 0 {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "qstash",
			MaxRequests: 1,
			Timeout:     opts.BreakerResetTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.BreakerFailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		})
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	c.tracer = tp.Tracer("github.com/absmach/qstash/client")

	return c, nil
}

// endpoint builds the full request URL for a path suffix. The path may
// contain percent-escaped segments, which must survive unchanged.
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/" + string(c.opts.Version) + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do issues a single request and returns the response status code and body.
// Transport-level failures are logged and returned as *TransportError; any
// HTTP response, success or not, is handed back to the caller.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body io.Reader) (int, []byte, error) {
	target := c.endpoint(path, query)

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		c.logger.Error("request construction failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err))
		return 0, nil, &TransportError{Err: err}
	}

	if headers != nil {
		req.Header = headers.Clone()
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)

	res, err := c.roundTrip(req)
	if err != nil {
		c.logger.Error("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err))
		return 0, nil, &TransportError{Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.Error("response read failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err))
		return 0, nil, &TransportError{Err: err}
	}

	c.logger.Debug("request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", res.StatusCode))

	return res.StatusCode, raw, nil
}

// roundTrip sends the request, going through the circuit breaker when one
// is configured. Only transport failures count against the breaker; HTTP
// error statuses are application-level responses.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}
