// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEvents(t *testing.T) {
	var gotPath, gotCursor string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCursor = r.URL.Query().Get("cursor")
		w.Write([]byte(`{
			"cursor": "1700000000123",
			"events": [
				{"time": 1700000000000, "state": "DELIVERED", "messageId": "m1", "url": "https://example.com"},
				{"time": 1700000001000, "state": "RETRY", "messageId": "m2", "nextDeliveryTime": 1700000060000, "error": "connection refused"}
			]
		}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	page, err := c.GetEvents(context.Background(), "1699999999999")
	require.NoError(t, err)

	assert.Equal(t, "/v2/events", gotPath)
	assert.Equal(t, "1699999999999", gotCursor)
	assert.Equal(t, "1700000000123", page.Cursor)

	require.Len(t, page.Events, 2)
	assert.Equal(t, StateDelivered, page.Events[0].State)
	assert.Equal(t, "m1", page.Events[0].MessageID)
	assert.Equal(t, StateRetry, page.Events[1].State)
	assert.Equal(t, int64(1700000060000), page.Events[1].NextDeliveryTime)
	assert.Equal(t, "connection refused", page.Events[1].Error)
}

func TestGetEventsNoCursor(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"events": []}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	page, err := c.GetEvents(context.Background(), "")
	require.NoError(t, err)

	assert.Empty(t, gotQuery)
	assert.Empty(t, page.Events)
	assert.Empty(t, page.Cursor)
}

func TestGetEventsAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`rate limit exceeded`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.GetEvents(context.Background(), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "rate limit")
}

func TestGetEventsDecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.GetEvents(context.Background(), "")
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
}

func TestStateUnmarshalTolerant(t *testing.T) {
	cases := map[string]State{
		`"CREATED"`:   StateCreated,
		`"ACTIVE"`:    StateActive,
		`"DELIVERED"`: StateDelivered,
		`"ERROR"`:     StateError,
		`"CANCELED"`:  StateCanceled,
		`"RETRY"`:     StateRetry,
		`"FAILED"`:    StateFailed,
		`"SOMETHING"`: StateError, // unknown states collapse to error
		`"delivered"`: StateError, // states are case-sensitive on the wire
	}

	for raw, want := range cases {
		var s State
		require.NoError(t, json.Unmarshal([]byte(raw), &s), raw)
		assert.Equal(t, want, s, raw)
	}

	var s State
	assert.Error(t, json.Unmarshal([]byte(`42`), &s))
}
