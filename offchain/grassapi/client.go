// Package grassapi fetches airdrop claim receipts (allocation + merkle proof)
// from the GRASS web API.
package grassapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

const (
	DefaultReceiptURL = "https://api.getgrass.io/claimReceipt"

	// ClusterMainnet is the only cluster the receipt endpoint serves.
	ClusterMainnet = "mainnet"
)

var ErrIncompleteReceipt = errors.New("incomplete receipt")

type Client struct {
	ReceiptURL string
	HTTP       *http.Client
	Limiter    *rate.Limiter
}

func (c *Client) httpClient() *http.Client {
	if c != nil && c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// WithHTTPClient returns a copy of the client that sends through h.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	cp := Client{}
	if c != nil {
		cp = *c
	}
	if h != nil {
		cp.HTTP = h
	}
	return &cp
}

func (c *Client) receiptURL() string {
	if c != nil && strings.TrimSpace(c.ReceiptURL) != "" {
		return strings.TrimSpace(c.ReceiptURL)
	}
	return DefaultReceiptURL
}

type receiptQuery struct {
	WalletAddress string `json:"walletAddress"`
	Cluster       string `json:"cluster"`
}

// ReceiptData mirrors the API payload; every field is optional on the wire.
type ReceiptData struct {
	VersionNumber *uint32 `json:"versionNumber"`
	ClaimProof    *string `json:"claimProof"`
	Allocation    *uint64 `json:"allocation"`
}

type Receipt struct {
	Data *ReceiptData `json:"data"`
}

type apiResponse struct {
	Result *Receipt `json:"result"`
}

// Claim is a receipt with every field present and the proof decoded.
type Claim struct {
	Version    uint32
	Allocation uint64
	Proof      [][32]byte
}

// FetchReceipt requests the raw receipt for wallet. A missing result is
// returned as a nil receipt without error.
func (c *Client) FetchReceipt(ctx context.Context, wallet string) (*Receipt, error) {
	query, err := json.Marshal(receiptQuery{WalletAddress: wallet, Cluster: ClusterMainnet})
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(c.receiptURL())
	if err != nil {
		return nil, fmt.Errorf("receipt url: %w", err)
	}
	q := u.Query()
	q.Set("input", string(query))
	u.RawQuery = q.Encode()

	if c != nil && c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch receipt: http %d", resp.StatusCode)
	}
	var decoded apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return decoded.Result, nil
}

// FetchClaim fetches and validates the receipt for wallet.
func (c *Client) FetchClaim(ctx context.Context, wallet string) (Claim, error) {
	r, err := c.FetchReceipt(ctx, wallet)
	if err != nil {
		return Claim{}, err
	}
	return r.Claim()
}

// Claim validates that every field is present. The proof itself is not
// checked beyond decoding; the program verifies it.
func (r *Receipt) Claim() (Claim, error) {
	switch {
	case r == nil:
		return Claim{}, fmt.Errorf("%w: result is missing", ErrIncompleteReceipt)
	case r.Data == nil:
		return Claim{}, fmt.Errorf("%w: data is missing", ErrIncompleteReceipt)
	case r.Data.VersionNumber == nil:
		return Claim{}, fmt.Errorf("%w: version number is missing", ErrIncompleteReceipt)
	case r.Data.ClaimProof == nil:
		return Claim{}, fmt.Errorf("%w: claim proof is missing", ErrIncompleteReceipt)
	case r.Data.Allocation == nil:
		return Claim{}, fmt.Errorf("%w: allocation is missing", ErrIncompleteReceipt)
	}
	return Claim{
		Version:    *r.Data.VersionNumber,
		Allocation: *r.Data.Allocation,
		Proof:      DecodeProof(*r.Data.ClaimProof),
	}, nil
}
