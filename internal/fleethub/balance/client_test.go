package balance

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

func newTestClient(url string) *Client {
	return NewClient(&options.BalanceOptions{
		BaseURL:  url + "/",
		Timeout:  50 * time.Millisecond,
		Attempts: 3,
		Delay:    10 * time.Millisecond,
	}, nil)
}

// stall blocks until the client gives up on the request.
func stall(r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(2 * time.Second):
	}
}

func TestCheckBalanceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/controller/checkbalance", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		assert.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "SN-1", body["serialNumber"])

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"balance":42}`))
	}))
	defer srv.Close()

	out := newTestClient(srv.URL).CheckBalance(context.Background(), "SN-1")

	assert.Equal(t, model.BalanceSuccess, out.Status)
	assert.JSONEq(t, `{"balance":42}`, string(out.Data))
}

func TestCheckBalanceRetriesTimeouts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			stall(r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	out := newTestClient(srv.URL).CheckBalance(context.Background(), "SN-1")

	assert.Equal(t, model.BalanceSuccess, out.Status)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCheckBalanceGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		stall(r)
	}))
	defer srv.Close()

	out := newTestClient(srv.URL).CheckBalance(context.Background(), "SN-1")

	assert.Equal(t, model.BalanceError, out.Status)
	assert.Contains(t, out.Message, "after 3 attempt(s)")
	assert.EqualValues(t, 3, calls.Load())
}

func TestCheckBalanceDoesNotRetryCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		stall(r)
	}))
	defer srv.Close()

	out := newTestClient(srv.URL).CheckBalance(ctx, "SN-1")

	assert.Equal(t, model.BalanceError, out.Status)
	assert.Contains(t, out.Message, "aborted")
	assert.EqualValues(t, 1, calls.Load())
}

func TestCheckBalanceClassification(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		contentType string
		body        string
		want        model.BalanceStatus
	}{
		{"no data message", http.StatusBadRequest, "application/json", `{"message":"don't exist data"}`, model.BalanceNotFound},
		{"server error", http.StatusBadGateway, "text/plain", "upstream down", model.BalanceNotFound},
		{"internal error json", http.StatusInternalServerError, "application/json", `{"message":"boom"}`, model.BalanceNotFound},
		{"client error", http.StatusUnauthorized, "application/json", `{"message":"bad token"}`, model.BalanceError},
		{"plain text no data", http.StatusNotFound, "text/plain", "don't exist data", model.BalanceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			out := newTestClient(srv.URL).CheckBalance(context.Background(), "SN-9")

			assert.Equal(t, tt.want, out.Status)
			assert.NotEmpty(t, out.Message)
			assert.EqualValues(t, 1, calls.Load(), "http responses are never retried")
		})
	}
}

func TestDecodeBodyWrapsText(t *testing.T) {
	data, msg := decodeBody(&reply{code: 200, contentType: "text/html", body: []byte("hello")})

	require.Equal(t, "hello", msg)
	assert.JSONEq(t, `{"message":"hello"}`, string(data))
}
