// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrNoToken        = errors.New("no token configured")
	ErrInvalidBaseURL = errors.New("invalid base URL")
	ErrInvalidVersion = errors.New("invalid API version (must be v1 or v2)")
)

// Operation errors.
var (
	ErrInvalidDestination = errors.New("destination cannot be encoded into a publish path")
	ErrNoMessageID        = errors.New("message id cannot be empty")
)

// EncodingError reports a delivery option that cannot be represented as a
// valid header value. Field names the offending option so callers can tell
// which part of the request was malformed.
type EncodingError struct {
	Field string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("delivery option %s cannot be encoded as a header value", e.Field)
}

// TransportError reports an outbound call that could not complete: the
// connection failed, timed out, or the response could not be read. An HTTP
// error status is not a transport error; the service reports per-target
// failures in the response body.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "request could not be completed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that does not match the shape implied
// by the destination kind used for the request.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "unexpected response shape: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// APIError reports a non-2xx status from one of the read-side endpoints
// (events, messages, DLQ). The publish path never returns it: there the
// service legitimately pairs error statuses with structured bodies.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}
