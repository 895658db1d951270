package solanarpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

var (
	ErrMissingRPCURL   = errors.New("missing rpc url")
	ErrRPCError        = errors.New("solana rpc error")
	ErrAccountNotFound = errors.New("account not found")
)

type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrRPCError.Error(), e.Code, e.Message)
}

func (e *RPCError) Unwrap() error { return ErrRPCError }

type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

type Client struct {
	rpcURL     string
	http       *http.Client
	limiter    *rate.Limiter
	commitment Commitment
}

// New builds a client reading at processed commitment. A nil httpClient gets
// a 60s timeout.
func New(rpcURL string, httpClient *http.Client) *Client {
	rpcURL = strings.TrimSpace(rpcURL)
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		rpcURL:     rpcURL,
		http:       httpClient,
		commitment: CommitmentProcessed,
	}
}

// WithRateLimit caps outgoing requests; rps <= 0 disables the cap.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

func (c *Client) URL() string { return c.rpcURL }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func isRateLimitedRPCError(code int, message string) bool {
	if code == 429 || code == -32429 {
		return true
	}
	msg := strings.ToLower(strings.TrimSpace(message))
	return strings.Contains(msg, "rate") && strings.Contains(msg, "limit")
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const (
	maxAttempts = 7
	baseBackoff = 1 * time.Second
	maxBackoff  = 10 * time.Second
)

// Call issues a raw JSON-RPC request, for node extensions this client does
// not wrap. It shares the rate limit and backoff of the typed methods.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	return c.rpcCall(ctx, method, params, out)
}

func (c *Client) rpcCall(ctx context.Context, method string, params any, out any) error {
	if c == nil {
		return errors.New("nil rpc client")
	}
	if c.rpcURL == "" {
		return ErrMissingRPCURL
	}

	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "1",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	backoff := baseBackoff
	retry := func() error {
		if err := sleepWithContext(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, maxBackoff)
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		raw, status, err := c.post(ctx, reqBody)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: http status=%d", ErrRPCError, status)
			if attempt < maxAttempts {
				if err := retry(); err != nil {
					return err
				}
				continue
			}
			return lastErr
		}

		var rr rpcResponse
		if err := json.Unmarshal(raw, &rr); err != nil {
			lastErr = fmt.Errorf("decode %s response (http %d): %w", method, status, err)
			if attempt < maxAttempts {
				if err := retry(); err != nil {
					return err
				}
				continue
			}
			return lastErr
		}
		if rr.Error != nil {
			lastErr = &RPCError{Code: rr.Error.Code, Message: rr.Error.Message}
			if isRateLimitedRPCError(rr.Error.Code, rr.Error.Message) && attempt < maxAttempts {
				if err := retry(); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("%s: %w", method, lastErr)
		}
		if out == nil {
			return nil
		}
		if len(rr.Result) == 0 {
			return fmt.Errorf("%w: empty result", ErrRPCError)
		}
		if err := json.Unmarshal(rr.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("%w: no response", ErrRPCError)
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, 0, err
	}
	return raw, resp.StatusCode, nil
}

// Blockhash is a recent blockhash plus the last block height at which a
// transaction referencing it is still accepted.
type Blockhash struct {
	Hash                 [32]byte
	LastValidBlockHeight uint64
}

func (c *Client) LatestBlockhash(ctx context.Context) (Blockhash, error) {
	var out Blockhash
	var resp struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	// Finalized avoids "Blockhash not found" on load-balanced public RPCs.
	if err := c.rpcCall(ctx, "getLatestBlockhash", []any{map[string]any{"commitment": CommitmentFinalized}}, &resp); err != nil {
		return out, err
	}

	bh, err := solana.ParsePubkey(resp.Value.Blockhash)
	if err != nil {
		return out, fmt.Errorf("invalid blockhash: %w", err)
	}
	out.Hash = bh
	out.LastValidBlockHeight = resp.Value.LastValidBlockHeight
	return out, nil
}

func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	var resp uint64
	if err := c.rpcCall(ctx, "getBlockHeight", []any{map[string]any{"commitment": CommitmentConfirmed}}, &resp); err != nil {
		return 0, err
	}
	return resp, nil
}

// SendTransaction submits a signed wire transaction and returns its signature.
func (c *Client) SendTransaction(ctx context.Context, tx []byte, skipPreflight bool) (string, error) {
	if len(tx) == 0 {
		return "", errors.New("empty tx")
	}
	b64 := base64.StdEncoding.EncodeToString(tx)
	var resp string
	params := []any{
		b64,
		map[string]any{
			"encoding":            "base64",
			"skipPreflight":       skipPreflight,
			"preflightCommitment": c.commitment,
		},
	}
	if err := c.rpcCall(ctx, "sendTransaction", params, &resp); err != nil {
		return "", err
	}
	return resp, nil
}

// AccountData returns the raw account data, or ErrAccountNotFound when the
// node reports no account at that address.
func (c *Client) AccountData(ctx context.Context, pubkey solana.Pubkey) ([]byte, error) {
	var resp struct {
		Value *struct {
			Data []any `json:"data"`
		} `json:"value"`
	}
	params := []any{
		pubkey.Base58(),
		map[string]any{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}
	if err := c.rpcCall(ctx, "getAccountInfo", params, &resp); err != nil {
		return nil, err
	}
	if resp.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey.Base58())
	}
	if len(resp.Value.Data) < 1 {
		return nil, errors.New("missing account data")
	}
	s, ok := resp.Value.Data[0].(string)
	if !ok {
		return nil, errors.New("unexpected account data encoding")
	}
	return base64.StdEncoding.DecodeString(s)
}

func (c *Client) AccountExists(ctx context.Context, pubkey solana.Pubkey) (bool, error) {
	_, err := c.AccountData(ctx, pubkey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAccountNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (c *Client) BalanceLamports(ctx context.Context, pubkey solana.Pubkey) (uint64, error) {
	var resp struct {
		Value uint64 `json:"value"`
	}
	if err := c.rpcCall(ctx, "getBalance", []any{pubkey.Base58(), map[string]any{"commitment": c.commitment}}, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

func (c *Client) MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error) {
	var resp uint64
	if err := c.rpcCall(ctx, "getMinimumBalanceForRentExemption", []any{dataLen}, &resp); err != nil {
		return 0, err
	}
	return resp, nil
}

type TokenAmount struct {
	Amount   uint64
	Decimals uint8
}

func (c *Client) TokenAccountBalance(ctx context.Context, account solana.Pubkey) (TokenAmount, error) {
	var resp struct {
		Value struct {
			Amount   string `json:"amount"`
			Decimals uint8  `json:"decimals"`
		} `json:"value"`
	}
	if err := c.rpcCall(ctx, "getTokenAccountBalance", []any{account.Base58(), map[string]any{"commitment": c.commitment}}, &resp); err != nil {
		return TokenAmount{}, err
	}
	amount, err := strconv.ParseUint(resp.Value.Amount, 10, 64)
	if err != nil {
		return TokenAmount{}, fmt.Errorf("parse token amount %q: %w", resp.Value.Amount, err)
	}
	return TokenAmount{Amount: amount, Decimals: resp.Value.Decimals}, nil
}

type SignatureStatus struct {
	Slot               uint64     `json:"slot"`
	Confirmations      *uint64    `json:"confirmations"`
	Err                any        `json:"err"`
	ConfirmationStatus Commitment `json:"confirmationStatus"`
}

// SignatureStatuses returns one entry per signature; nil entries are
// signatures the node has not seen.
func (c *Client) SignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	if len(signatures) == 0 {
		return nil, errors.New("signatures required")
	}
	var resp struct {
		Value []*SignatureStatus `json:"value"`
	}
	if err := c.rpcCall(ctx, "getSignatureStatuses", []any{signatures, map[string]any{"searchTransactionHistory": false}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Value) != len(signatures) {
		return nil, fmt.Errorf("%w: %d statuses for %d signatures", ErrRPCError, len(resp.Value), len(signatures))
	}
	return resp.Value, nil
}
