// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Message is a queued message as reported by the lookup endpoint.
type Message struct {
	MessageID    string              `json:"messageId"`
	URL          string              `json:"url"`
	TopicName    string              `json:"topicName,omitempty"`
	EndpointName string              `json:"endpointName,omitempty"`
	Key          string              `json:"key,omitempty"`
	Method       string              `json:"method,omitempty"`
	Header       map[string][]string `json:"header,omitempty"`
	Body         string              `json:"body,omitempty"`
	MaxRetries   int                 `json:"maxRetries,omitempty"`
	NotBefore    int64               `json:"notBefore,omitempty"`
	CreatedAt    int64               `json:"createdAt"`
	Callback     string              `json:"callback,omitempty"`
}

// GetMessage retrieves a queued message by id.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	if messageID == "" {
		return nil, ErrNoMessageID
	}

	status, raw, err := c.do(ctx, http.MethodGet, "messages/"+url.PathEscape(messageID), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Body: string(raw)}
	}

	var out Message
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &out, nil
}

// CancelMessage cancels the message with the given id, removing it from the
// queue and stopping future delivery attempts. A message already in flight
// may be delivered regardless.
func (c *Client) CancelMessage(ctx context.Context, messageID string) error {
	if messageID == "" {
		return ErrNoMessageID
	}

	status, raw, err := c.do(ctx, http.MethodDelete, "messages/"+url.PathEscape(messageID), nil, nil, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &APIError{StatusCode: status, Body: string(raw)}
	}
	return nil
}
