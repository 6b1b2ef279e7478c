// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http/httpguts"
)

// Delivery directive headers.
const (
	HeaderMethod       = "Upstash-Method"
	HeaderDelay        = "Upstash-Delay"
	HeaderNotBefore    = "Upstash-Not-Before"
	HeaderDedupID      = "Upstash-Deduplication-Id"
	HeaderContentDedup = "Upstash-Content-Based-Deduplication"
	HeaderRetries      = "Upstash-Retries"
	HeaderCallback     = "Upstash-Callback"
)

// PublishOptions carries the optional per-publish delivery directives. The
// zero value uses the service defaults for everything.
type PublishOptions struct {
	// Headers are forwarded to the destination unchanged. A Content-Type
	// header describing the body is strongly recommended. Directive headers
	// overwrite colliding names.
	Headers http.Header

	// Delay postpones delivery by the given duration, at second
	// granularity. Ignored when NotBefore is set.
	Delay time.Duration

	// NotBefore postpones delivery until the given Unix timestamp in
	// seconds. Overrides Delay: only Upstash-Not-Before is sent when both
	// are set.
	NotBefore int64

	// DeduplicationID identifies duplicate messages explicitly. A duplicate
	// is accepted but not enqueued. Ids are retained by the service for 90
	// days.
	DeduplicationID string

	// ContentBasedDeduplication hashes the message content into a
	// deduplication id when true.
	ContentBasedDeduplication *bool

	// Retries caps server-side delivery retries. Nil uses the account
	// default; zero disables retries. Retries are executed by the service,
	// never by this client.
	Retries *int

	// Callback is a publicly reachable URL that receives the destination
	// server's response.
	Callback string

	// Method is the HTTP method the service uses when calling the
	// destination. Defaults to POST.
	Method string
}

// PublishRequest describes a single publish call. It is consumed once.
type PublishRequest struct {
	// Destination is the publish target. Required.
	Destination Destination

	// Body is the raw message payload, attached to the request unchanged.
	// Nil sends a bodyless message.
	Body []byte

	// Options holds the optional delivery directives.
	Options PublishOptions
}

// PublishResponse is the per-target outcome reported by the service. A
// successful enqueue carries a message id; a deduplicated message carries
// Deduplicated without an id; a per-target delivery failure carries Error.
type PublishResponse struct {
	MessageID    string `json:"messageId,omitempty"`
	URL          string `json:"url,omitempty"`
	Error        string `json:"error,omitempty"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
}

// Failed reports whether the service rejected this target. Error is
// authoritative even if a message id is also present.
func (r PublishResponse) Failed() bool { return r.Error != "" }

// NewDeduplicationID returns a random deduplication id, for callers that
// want explicit deduplication without deriving an id from message content.
func NewDeduplicationID() string { return uuid.NewString() }

// Publish sends a message to the given destination. It returns one outcome
// per target: exactly one element for a URL destination, one element per
// fanned-out subscriber for a topic destination, in the order the service
// reports them.
//
// A non-2xx status is not an error here; the service reports per-target
// delivery failures inside the decoded outcomes (see PublishResponse.Error).
func (c *Client) Publish(ctx context.Context, req PublishRequest) ([]PublishResponse, error) {
	ctx, span := c.tracer.Start(ctx, "qstash.publish",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("qstash.destination", req.Destination.String()),
			attribute.Bool("qstash.topic", req.Destination.Topic()),
		))
	defer span.End()

	out, err := c.publish(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

func (c *Client) publish(ctx context.Context, req PublishRequest) ([]PublishResponse, error) {
	path, err := req.Destination.publishPath()
	if err != nil {
		c.logger.Error("publish destination rejected",
			slog.String("destination", req.Destination.String()),
			slog.Any("error", err))
		return nil, err
	}

	headers, err := encodeHeaders(req.Options)
	if err != nil {
		c.logger.Error("publish options rejected",
			slog.String("destination", req.Destination.String()),
			slog.Any("error", err))
		return nil, err
	}

	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx, req.Destination.String()); err != nil {
			return nil, &TransportError{Err: err}
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	// The transport-level verb is always POST; the method directive only
	// tells the service which verb to use toward the destination.
	_, raw, err := c.do(ctx, http.MethodPost, path, nil, headers, body)
	if err != nil {
		return nil, err
	}

	return decodePublishResponse(req.Destination.Topic(), raw)
}

// PublishJSON marshals body to JSON and publishes it with a JSON content
// type. Apart from serialization it follows the exact raw-body pipeline.
func (c *Client) PublishJSON(ctx context.Context, dest Destination, body any, opts PublishOptions) ([]PublishResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		c.logger.Error("publish body serialization failed",
			slog.String("destination", dest.String()),
			slog.Any("error", err))
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	h := opts.Headers.Clone()
	if h == nil {
		h = make(http.Header)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	opts.Headers = h

	return c.Publish(ctx, PublishRequest{Destination: dest, Body: data, Options: opts})
}

// encodeHeaders maps delivery options onto wire directive headers. It is a
// pure function: it yields either a complete header set or the first
// field-level encoding failure. Caller headers are merged first, so a
// caller-supplied header colliding with a directive name is overwritten.
func encodeHeaders(opts PublishOptions) (http.Header, error) {
	h := make(http.Header, len(opts.Headers)+4)
	for name, values := range opts.Headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, &EncodingError{Field: "Headers[" + name + "]"}
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, &EncodingError{Field: "Headers[" + name + "]"}
			}
			h.Add(name, v)
		}
	}

	method := opts.Method
	if method == "" {
		method = http.MethodPost
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, &EncodingError{Field: "Method"}
	}
	h.Set(HeaderMethod, method)

	switch {
	case opts.NotBefore < 0:
		return nil, &EncodingError{Field: "NotBefore"}
	case opts.NotBefore > 0:
		h.Set(HeaderNotBefore, strconv.FormatInt(opts.NotBefore, 10))
	case opts.Delay < 0:
		return nil, &EncodingError{Field: "Delay"}
	case opts.Delay > 0:
		h.Set(HeaderDelay, strconv.Itoa(int(opts.Delay/time.Second))+"s")
	}

	if opts.DeduplicationID != "" {
		if !httpguts.ValidHeaderFieldValue(opts.DeduplicationID) {
			return nil, &EncodingError{Field: "DeduplicationID"}
		}
		h.Set(HeaderDedupID, opts.DeduplicationID)
	}

	if opts.ContentBasedDeduplication != nil {
		h.Set(HeaderContentDedup, strconv.FormatBool(*opts.ContentBasedDeduplication))
	}

	if opts.Retries != nil {
		if *opts.Retries < 0 {
			return nil, &EncodingError{Field: "Retries"}
		}
		h.Set(HeaderRetries, strconv.Itoa(*opts.Retries))
	}

	if opts.Callback != "" {
		if !httpguts.ValidHeaderFieldValue(opts.Callback) {
			return nil, &EncodingError{Field: "Callback"}
		}
		h.Set(HeaderCallback, opts.Callback)
	}

	return h, nil
}

// decodePublishResponse decodes the raw body into outcome records. The
// shape is keyed by the destination kind captured at request time, never by
// sniffing the response, so a single-target response wrapped in an array
// server side cannot flip the result shape.
func decodePublishResponse(topic bool, raw []byte) ([]PublishResponse, error) {
	if topic {
		var out []PublishResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, &DecodeError{Err: err}
		}
		return out, nil
	}

	var out PublishResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return []PublishResponse{out}, nil
}
