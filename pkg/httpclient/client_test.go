package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowd-io/flowd/pkg/httpclient"
	"github.com/flowd-io/flowd/pkg/protocol"
)

func TestCallDefaultsToGET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("X-Request-Id", "abc")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := httpclient.NewClient()

	resp, err := client.Call(context.Background(), protocol.CallRequest{URL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, resp.Body)
	assert.Equal(t, "abc", resp.Headers["X-Request-Id"])
}

func TestCallSetsJSONContentTypeWhenBodyPresent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := httpclient.NewClient()

	resp, err := client.Call(context.Background(), protocol.CallRequest{
		URL:    server.URL,
		Method: "post",
		Body:   `{"k":"v"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCallExplicitContentTypeWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
	}))
	defer server.Close()

	client := httpclient.NewClient()

	_, err := client.Call(context.Background(), protocol.CallRequest{
		URL:     server.URL,
		Method:  "POST",
		Headers: map[string]string{"Content-Type": "text/plain"},
		Body:    "hello",
	})
	require.NoError(t, err)
}

func TestCallErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := httpclient.NewClient()

	resp, err := client.Call(context.Background(), protocol.CallRequest{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestCallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := httpclient.NewClient()

	_, err := client.Call(context.Background(), protocol.CallRequest{
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
	})
	assert.Error(t, err)
}
