// Package jito submits single-transaction bundles to a Jito block engine and
// waits for them to finalize.
package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58"
	"golang.org/x/time/rate"

	"github.com/Fragment-Software/grass-claimer/internal/metrics"
)

const (
	BundlePath = "/api/v1/bundles"

	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 100 * time.Second
)

var (
	ErrMissingBlockEngineURL = errors.New("missing block engine url")
	ErrRelayError            = errors.New("relay rpc error")
	ErrBundleTimeout         = errors.New("timed out waiting for bundle finalization")
)

type Status string

const (
	StatusProcessed Status = "processed"
	StatusConfirmed Status = "confirmed"
	StatusFinalized Status = "finalized"
)

type Config struct {
	Logger         *slog.Logger
	BlockEngineURL string
	HTTP           *http.Client
	Limiter        *rate.Limiter
	Clock          clockwork.Clock
	PollInterval   time.Duration
	Timeout        time.Duration
}

func (c *Config) Validate() error {
	c.BlockEngineURL = strings.TrimRight(strings.TrimSpace(c.BlockEngineURL), "/")
	if c.BlockEngineURL == "" {
		return ErrMissingBlockEngineURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

type Client struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{log: cfg.Logger, cfg: cfg}, nil
}

// WithHTTPClient returns a copy of the client that sends through h.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h == nil {
		return c
	}
	cp := *c
	cp.cfg.HTTP = h
	return &cp
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// BundleStatus is one entry of getBundleStatuses. The relay has shipped both
// snake_case and camelCase keys for the status field.
type BundleStatus struct {
	BundleID     string   `json:"bundle_id"`
	Transactions []string `json:"transactions"`
	Slot         uint64   `json:"slot"`
	Status       Status   `json:"confirmation_status"`
	StatusCamel  Status   `json:"confirmationStatus"`
	Err          any      `json:"err"`
}

func (s BundleStatus) ConfirmationStatus() Status {
	if s.Status != "" {
		return s.Status
	}
	return s.StatusCamel
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}
	if c.cfg.Limiter != nil {
		if err := c.cfg.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BlockEngineURL+BundlePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cfg.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s http %d: %s", ErrRelayError, method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("%w: %s code=%d message=%s", ErrRelayError, method, rr.Error.Code, rr.Error.Message)
	}
	if len(rr.Result) == 0 || string(rr.Result) == "null" {
		return fmt.Errorf("%w: %s returned no result", ErrRelayError, method)
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("%w: unexpected %s result: %v", ErrRelayError, method, err)
	}
	return nil
}

// SendBundle submits the signed wire transactions as one bundle and returns
// the relay-assigned bundle id.
func (c *Client) SendBundle(ctx context.Context, txs ...[]byte) (string, error) {
	if len(txs) == 0 {
		return "", errors.New("empty bundle")
	}
	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		encoded = append(encoded, base58.Encode(tx))
	}
	var id string
	if err := c.call(ctx, "sendBundle", []any{encoded}, &id); err != nil {
		return "", err
	}
	return id, nil
}

// BundleStatus returns nil when the relay does not know the bundle yet.
func (c *Client) BundleStatus(ctx context.Context, bundleID string) (*BundleStatus, error) {
	var res struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value []*BundleStatus `json:"value"`
	}
	if err := c.call(ctx, "getBundleStatuses", []any{[]string{bundleID}}, &res); err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

// ConfirmBundle polls until the bundle is finalized. It gives up with
// ErrBundleTimeout once the configured timeout elapses; the bundle may still
// land afterwards. Request errors end the wait immediately.
func (c *Client) ConfirmBundle(ctx context.Context, bundleID string) error {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	timedOut := make(chan struct{})
	deadline := c.cfg.Clock.NewTimer(c.cfg.Timeout)
	defer deadline.Stop()
	go func() {
		select {
		case <-deadline.Chan():
			close(timedOut)
			cancel()
		case <-pollCtx.Done():
		}
	}()

	timeoutErr := func() error {
		select {
		case <-timedOut:
			return fmt.Errorf("%w: bundle %s after %s", ErrBundleTimeout, bundleID, c.cfg.Timeout)
		default:
			return nil
		}
	}

	for {
		st, err := c.BundleStatus(pollCtx, bundleID)
		if err != nil {
			if terr := timeoutErr(); terr != nil {
				return terr
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("poll bundle %s: %w", bundleID, err)
		}
		status := Status("unknown")
		if st != nil {
			status = st.ConfirmationStatus()
		}
		metrics.BundlePollsTotal.WithLabelValues(string(status)).Inc()
		c.log.Debug("jito: bundle status", "bundle_id", bundleID, "status", status)
		if status == StatusFinalized {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timedOut:
			return timeoutErr()
		case <-c.cfg.Clock.After(c.cfg.PollInterval):
		}
	}
}

// SendAndConfirm sends tx as a single-transaction bundle and waits for it
// to finalize.
func (c *Client) SendAndConfirm(ctx context.Context, tx []byte) (string, error) {
	id, err := c.SendBundle(ctx, tx)
	if err != nil {
		return "", err
	}
	c.log.Info("jito: bundle sent", "bundle_id", id)
	if err := c.ConfirmBundle(ctx, id); err != nil {
		return id, err
	}
	return id, nil
}
