// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name string
		opts *Options
		err  error
	}{
		{"missing token", NewOptions(), ErrNoToken},
		{"bad version", NewOptions().SetToken("t").SetVersion("v3"), ErrInvalidVersion},
		{"bad base url", NewOptions().SetToken("t").SetBaseURL("://nope"), ErrInvalidBaseURL},
		{"relative base url", NewOptions().SetToken("t").SetBaseURL("qstash.upstash.io"), ErrInvalidBaseURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.opts)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestNewDefaults(t *testing.T) {
	c, err := New(NewOptions().SetToken("t"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, V2, c.opts.Version)
	assert.Nil(t, c.breaker)
}

func TestEndpointVersionSegment(t *testing.T) {
	for _, v := range []Version{V1, V2} {
		c, err := New(NewOptions().SetToken("t").SetVersion(v))
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL+"/"+string(v)+"/events", c.endpoint("events", nil))
	}
}

func TestDoSetsAuthAndUserAgent(t *testing.T) {
	var gotAuth, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	status, _, err := c.do(context.Background(), http.MethodGet, "events", nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, userAgent, gotUA)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // every dial fails

	opts := NewOptions().
		SetToken("test-token").
		SetBaseURL(ts.URL).
		SetCircuitBreaker(2, time.Minute)
	c, err := New(opts)
	require.NoError(t, err)

	req := PublishRequest{Destination: DestinationURL("https://example.com")}

	for i := 0; i < 2; i++ {
		_, err = c.Publish(context.Background(), req)
		var trErr *TransportError
		require.ErrorAs(t, err, &trErr)
		require.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	// Threshold reached: the breaker now fails fast without dialing.
	_, err = c.Publish(context.Background(), req)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreakerIgnoresHTTPErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer ts.Close()

	opts := NewOptions().
		SetToken("test-token").
		SetBaseURL(ts.URL).
		SetCircuitBreaker(2, time.Minute)
	c, err := New(opts)
	require.NoError(t, err)

	req := PublishRequest{Destination: DestinationURL("https://example.com")}

	// Error statuses are application responses; they never trip the breaker.
	for i := 0; i < 5; i++ {
		out, err := c.Publish(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.True(t, out[0].Failed())
	}
}

func TestConcurrentPublish(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messageId":"abc"}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := c.Publish(context.Background(), PublishRequest{
				Destination: DestinationURL("https://example.com"),
			})
			assert.NoError(t, err)
			assert.Len(t, out, 1)
		}()
	}
	wg.Wait()
}
