package solanafees

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/Fragment-Software/grass-claimer/offchain/helius"
	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

const (
	DefaultLamportsPerSignature = 5000
	DefaultComputeUnitLimit     = 200_000
)

var ErrOverflow = errors.New("overflow")

type TxFeeEstimate struct {
	LamportsPerSignature uint64 `json:"lamports_per_signature"`
	Signatures           uint64 `json:"signatures"`
	BaseFeeLamports      uint64 `json:"base_fee_lamports"`

	ComputeUnitLimit    uint32 `json:"compute_unit_limit"`
	MicroLamportsPerCU  uint64 `json:"micro_lamports_per_cu"`
	PriorityFeeLamports uint64 `json:"priority_fee_lamports"`

	TotalLamports uint64 `json:"total_lamports"`
}

func PriorityFeeLamports(computeUnitLimit uint32, microLamportsPerCU uint64) (uint64, error) {
	if computeUnitLimit == 0 || microLamportsPerCU == 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(uint64(computeUnitLimit), microLamportsPerCU)
	if hi != 0 {
		return 0, ErrOverflow
	}
	const denom = uint64(1_000_000)
	return (lo + denom - 1) / denom, nil
}

func BaseFeeLamports(lamportsPerSignature uint64, signatures uint64) (uint64, error) {
	hi, lo := bits.Mul64(lamportsPerSignature, signatures)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

// Estimate totals the base and priority fee of a transaction with the given
// signature count and compute budget.
func Estimate(signatures uint64, computeUnitLimit uint32, microLamportsPerCU uint64) (TxFeeEstimate, error) {
	base, err := BaseFeeLamports(DefaultLamportsPerSignature, signatures)
	if err != nil {
		return TxFeeEstimate{}, err
	}
	priority, err := PriorityFeeLamports(computeUnitLimit, microLamportsPerCU)
	if err != nil {
		return TxFeeEstimate{}, err
	}
	total, carry := bits.Add64(base, priority, 0)
	if carry != 0 {
		return TxFeeEstimate{}, ErrOverflow
	}
	return TxFeeEstimate{
		LamportsPerSignature: DefaultLamportsPerSignature,
		Signatures:           signatures,
		BaseFeeLamports:      base,
		ComputeUnitLimit:     computeUnitLimit,
		MicroLamportsPerCU:   microLamportsPerCU,
		PriorityFeeLamports:  priority,
		TotalLamports:        total,
	}, nil
}

type PriceEstimator interface {
	PriorityFeeEstimate(ctx context.Context, accounts []solana.Pubkey, opts *helius.PriorityFeeOptions) (helius.PriorityFeeEstimate, error)
}

// Policy decides the compute budget attached to every transaction. A fixed
// ComputeUnitPrice wins; otherwise Estimator, when set, supplies one.
type Policy struct {
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	Estimator        PriceEstimator
	Level            helius.PriorityLevel
}

// Price returns the compute-unit price in micro-lamports, 0 meaning no
// compute budget instructions.
func (p Policy) Price(ctx context.Context, accounts []solana.Pubkey) (uint64, error) {
	if p.ComputeUnitPrice > 0 || p.Estimator == nil {
		return p.ComputeUnitPrice, nil
	}
	level := p.Level
	if level == "" {
		level = helius.PriorityMedium
	}
	est, err := p.Estimator.PriorityFeeEstimate(ctx, accounts, &helius.PriorityFeeOptions{PriorityLevel: level})
	if err != nil {
		return 0, fmt.Errorf("priority fee estimate: %w", err)
	}
	return est.MicroLamports, nil
}

func (p Policy) Limit() uint32 {
	if p.ComputeUnitLimit == 0 {
		return DefaultComputeUnitLimit
	}
	return p.ComputeUnitLimit
}

// Budget returns the compute budget instructions for price, or nil when the
// price is 0.
func (p Policy) Budget(price uint64) []solana.Instruction {
	if price == 0 {
		return nil
	}
	return []solana.Instruction{
		solana.ComputeBudgetSetComputeUnitLimit(p.Limit()),
		solana.ComputeBudgetSetComputeUnitPrice(price),
	}
}

// Reserve estimates the lamports a transaction with the given signature count
// burns at price.
func (p Policy) Reserve(signatures uint64, price uint64) (TxFeeEstimate, error) {
	if price == 0 {
		return Estimate(signatures, 0, 0)
	}
	return Estimate(signatures, p.Limit(), price)
}

func (e TxFeeEstimate) String() string {
	return fmt.Sprintf("total=%d lamports (base=%d, priority=%d @ %d microLamports/CU, limit=%d)",
		e.TotalLamports,
		e.BaseFeeLamports,
		e.PriorityFeeLamports,
		e.MicroLamportsPerCU,
		e.ComputeUnitLimit,
	)
}
