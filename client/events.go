// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// State describes the delivery lifecycle stage of a message in the event
// log.
type State string

// Message lifecycle states.
const (
	StateCreated   State = "CREATED"
	StateActive    State = "ACTIVE"
	StateDelivered State = "DELIVERED"
	StateError     State = "ERROR"
	StateCanceled  State = "CANCELED"
	StateRetry     State = "RETRY"
	StateFailed    State = "FAILED"
)

// UnmarshalJSON collapses unrecognized states to StateError, tolerating
// lifecycle states added server side.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := State(raw); v {
	case StateCreated, StateActive, StateDelivered, StateError, StateCanceled, StateRetry, StateFailed:
		*s = v
	default:
		*s = StateError
	}
	return nil
}

// Event is one entry of the delivery event log.
type Event struct {
	Time             int64  `json:"time"`
	State            State  `json:"state"`
	MessageID        string `json:"messageId"`
	NextDeliveryTime int64  `json:"nextDeliveryTime,omitempty"`
	Error            string `json:"error,omitempty"`
	URL              string `json:"url,omitempty"`
	TopicName        string `json:"topicName,omitempty"`
	EndpointName     string `json:"endpointName,omitempty"`
}

// GetEventsResponse is one page of the event log. Cursor, when non-empty,
// selects the next page.
type GetEventsResponse struct {
	Cursor string  `json:"cursor,omitempty"`
	Events []Event `json:"events"`
}

// GetEvents retrieves a page of the delivery event log. The log is
// paginated; pass an empty cursor for the most recent page and the returned
// cursor to continue.
func (c *Client) GetEvents(ctx context.Context, cursor string) (*GetEventsResponse, error) {
	var query url.Values
	if cursor != "" {
		query = url.Values{"cursor": []string{cursor}}
	}

	status, raw, err := c.do(ctx, http.MethodGet, "events", query, nil, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Body: string(raw)}
	}

	var out GetEventsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &out, nil
}
