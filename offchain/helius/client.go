// Package helius wraps the priority fee extension of a Helius RPC node.
package helius

import (
	"context"
	"errors"
	"math"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

var ErrNoAccounts = errors.New("priority fee estimate needs account keys")

// Caller issues raw JSON-RPC requests against the node.
type Caller interface {
	Call(ctx context.Context, method string, params any, out any) error
}

type Client struct {
	node Caller
}

// New extends node with the Helius-only methods.
func New(node Caller) *Client {
	return &Client{node: node}
}

type PriorityLevel string

const (
	PriorityMin       PriorityLevel = "Min"
	PriorityLow       PriorityLevel = "Low"
	PriorityMedium    PriorityLevel = "Medium"
	PriorityHigh      PriorityLevel = "High"
	PriorityVeryHigh  PriorityLevel = "VeryHigh"
	PriorityUnsafeMax PriorityLevel = "UnsafeMax"
)

type PriorityFeeOptions struct {
	PriorityLevel               PriorityLevel `json:"priorityLevel,omitempty"`
	IncludeAllPriorityFeeLevels bool          `json:"includeAllPriorityFeeLevels,omitempty"`
	LookbackSlots               int           `json:"lookbackSlots,omitempty"`
	Recommended                 bool          `json:"recommended,omitempty"`
}

// PriorityFeeLevels is filled when IncludeAllPriorityFeeLevels is set.
type PriorityFeeLevels struct {
	Min       float64 `json:"min,omitempty"`
	Low       float64 `json:"low,omitempty"`
	Medium    float64 `json:"medium,omitempty"`
	High      float64 `json:"high,omitempty"`
	VeryHigh  float64 `json:"veryHigh,omitempty"`
	UnsafeMax float64 `json:"unsafeMax,omitempty"`
}

type PriorityFeeEstimate struct {
	// MicroLamports is the compute-unit price to pass to SetComputeUnitPrice.
	MicroLamports uint64
	Levels        *PriorityFeeLevels
}

type estimateParams struct {
	AccountKeys []string            `json:"accountKeys"`
	Options     *PriorityFeeOptions `json:"options,omitempty"`
}

// PriorityFeeEstimate asks for a compute-unit price for a transaction that
// writes the given accounts.
func (c *Client) PriorityFeeEstimate(ctx context.Context, accounts []solana.Pubkey, opts *PriorityFeeOptions) (PriorityFeeEstimate, error) {
	if len(accounts) == 0 {
		return PriorityFeeEstimate{}, ErrNoAccounts
	}
	params := estimateParams{AccountKeys: make([]string, len(accounts)), Options: opts}
	for i, a := range accounts {
		params.AccountKeys[i] = a.Base58()
	}

	var out struct {
		Estimate float64            `json:"priorityFeeEstimate"`
		Levels   *PriorityFeeLevels `json:"priorityFeeLevels,omitempty"`
	}
	if err := c.node.Call(ctx, "getPriorityFeeEstimate", []any{params}, &out); err != nil {
		return PriorityFeeEstimate{}, err
	}
	return PriorityFeeEstimate{MicroLamports: microLamports(out.Estimate), Levels: out.Levels}, nil
}

// microLamports rounds a fractional estimate up and clamps it to uint64.
func microLamports(v float64) uint64 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= math.MaxUint64:
		return math.MaxUint64
	}
	return uint64(math.Ceil(v))
}
