// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMessage(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{
			"messageId": "msg_123",
			"url": "https://example.com/hook",
			"topicName": "orders",
			"method": "POST",
			"header": {"Content-Type": ["application/json"]},
			"body": "{\"order_id\":42}",
			"maxRetries": 3,
			"notBefore": 1700000060,
			"createdAt": 1700000000,
			"callback": "https://example.com/callback"
		}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	msg, err := c.GetMessage(context.Background(), "msg_123")
	require.NoError(t, err)

	assert.Equal(t, "/v2/messages/msg_123", gotPath)
	assert.Equal(t, "msg_123", msg.MessageID)
	assert.Equal(t, "https://example.com/hook", msg.URL)
	assert.Equal(t, "orders", msg.TopicName)
	assert.Equal(t, []string{"application/json"}, msg.Header["Content-Type"])
	assert.Equal(t, 3, msg.MaxRetries)
	assert.Equal(t, int64(1700000000), msg.CreatedAt)
}

func TestGetMessageEmptyID(t *testing.T) {
	c := newTestClient(t, "https://qstash.invalid")
	_, err := c.GetMessage(context.Background(), "")
	require.ErrorIs(t, err, ErrNoMessageID)
}

func TestGetMessageNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`message not found`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.GetMessage(context.Background(), "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestCancelMessage(t *testing.T) {
	var gotMethod, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	require.NoError(t, c.CancelMessage(context.Background(), "msg_123"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/v2/messages/msg_123", gotPath)
}

func TestCancelMessageFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	err := c.CancelMessage(context.Background(), "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)

	require.ErrorIs(t, c.CancelMessage(context.Background(), ""), ErrNoMessageID)
}
