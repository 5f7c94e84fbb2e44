// Package balance talks to the external balance-check service.
package balance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetpulse/internal/pkg/metrics"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

const (
	checkPath = "/controller/checkbalance"

	// noDataMessage is how the service says it has never seen a serial number.
	noDataMessage = "don't exist data"

	maxBodyBytes = 1 << 20
)

var _ core.BalanceChecker = (*Client)(nil)

// Client posts balance checks with a per-attempt timeout and a fixed number
// of attempts. It never returns an error; every failure ends up in the outcome.
type Client struct {
	url      string
	http     *http.Client
	timeout  time.Duration
	attempts int
	delay    time.Duration
	logger   log.Logger
}

// NewClient builds a client from options. A nil httpClient uses a fresh
// http.Client; timeouts come from the per-attempt context.
func NewClient(opts *options.BalanceOptions, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		url:      strings.TrimRight(opts.BaseURL, "/") + checkPath,
		http:     httpClient,
		timeout:  opts.Timeout,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		logger:   log.WithName("balance"),
	}
}

type reply struct {
	code        int
	contentType string
	body        []byte
}

// CheckBalance asks the service about serialNumber.
//
// A timed out or failed attempt is retried after the configured delay until
// the attempts run out. Cancellation of ctx stops immediately.
func (c *Client) CheckBalance(ctx context.Context, serialNumber string) model.BalanceOutcome {
	start := time.Now()
	outcome := c.check(ctx, serialNumber)

	metrics.BalanceChecksTotal.WithLabelValues(string(outcome.Status)).Inc()
	metrics.BalanceCheckLatency.Observe(time.Since(start).Seconds())

	switch outcome.Status {
	case model.BalanceSuccess:
		c.logger.Info("Balance check succeeded", "serialNumber", serialNumber)
	case model.BalanceNotFound:
		c.logger.Warn("Balance check found no data", "serialNumber", serialNumber, "message", outcome.Message)
	default:
		c.logger.Error(errors.New(outcome.Message), "Balance check failed", "serialNumber", serialNumber)
	}
	return outcome
}

func (c *Client) check(ctx context.Context, serialNumber string) model.BalanceOutcome {
	body, err := json.Marshal(map[string]string{"serialNumber": serialNumber})
	if err != nil {
		return model.BalanceOutcome{Status: model.BalanceError, Message: err.Error()}
	}

	backoff := wait.Backoff{
		Duration: c.delay,
		Factor:   1,
		Steps:    c.attempts,
	}

	var (
		resp    *reply
		lastErr error
		attempt int
	)
	err = wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempt++
		r, err := c.post(ctx, body)
		if err == nil {
			resp = r
			return true, nil
		}
		if ctx.Err() != nil {
			// Cancelled by the caller, not by the attempt timeout.
			return false, err
		}
		lastErr = err
		c.logger.Debug("Balance check attempt failed", "serialNumber", serialNumber,
			"attempt", attempt, "attempts", c.attempts, "error", err.Error())
		return false, nil
	})

	if resp != nil {
		return classify(serialNumber, resp)
	}
	if ctx.Err() != nil {
		return model.BalanceOutcome{
			Status:  model.BalanceError,
			Message: fmt.Sprintf("balance check aborted after %d attempt(s): %v", attempt, ctx.Err()),
		}
	}
	if lastErr == nil {
		lastErr = err
	}
	return model.BalanceOutcome{
		Status:  model.BalanceError,
		Message: fmt.Sprintf("balance check failed after %d attempt(s): %v", attempt, lastErr),
	}
}

func (c *Client) post(ctx context.Context, body []byte) (*reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &reply{
		code:        resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

func classify(serialNumber string, r *reply) model.BalanceOutcome {
	data, message := decodeBody(r)

	if r.code >= 200 && r.code < 300 {
		return model.BalanceOutcome{Status: model.BalanceSuccess, Data: data}
	}

	if message == noDataMessage || r.code >= 500 {
		return model.BalanceOutcome{
			Status:  model.BalanceNotFound,
			Message: fmt.Sprintf("serial number %s not found", serialNumber),
		}
	}

	return model.BalanceOutcome{
		Status:  model.BalanceError,
		Message: fmt.Sprintf("unexpected status %d: %s", r.code, data),
	}
}

// decodeBody returns the body as JSON, wrapping non-JSON text in
// {"message": ...}, along with the body's message field if it has one.
func decodeBody(r *reply) (json.RawMessage, string) {
	mediaType, _, _ := mime.ParseMediaType(r.contentType)
	if mediaType == "application/json" && json.Valid(r.body) {
		var m struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(r.body, &m)
		return json.RawMessage(r.body), m.Message
	}

	text := string(r.body)
	wrapped, _ := json.Marshal(map[string]string{"message": text})
	return wrapped, text
}
