// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// DLQMessage is a message parked in the dead letter queue after the service
// exhausted its delivery retries.
type DLQMessage struct {
	DLQID string `json:"dlqId"`
	Message
}

// ListDLQResponse is one page of the dead letter queue.
type ListDLQResponse struct {
	Cursor   string       `json:"cursor,omitempty"`
	Messages []DLQMessage `json:"messages"`
}

// ListDLQ retrieves a page of the dead letter queue. Pass an empty cursor
// for the first page and the returned cursor to continue.
func (c *Client) ListDLQ(ctx context.Context, cursor string) (*ListDLQResponse, error) {
	var query url.Values
	if cursor != "" {
		query = url.Values{"cursor": []string{cursor}}
	}

	status, raw, err := c.do(ctx, http.MethodGet, "dlq", query, nil, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Body: string(raw)}
	}

	var out ListDLQResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &out, nil
}
