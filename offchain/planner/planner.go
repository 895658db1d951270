// Package planner turns one wallet's on-chain state into the instruction list
// for a mode: claim, close, collect, or collect-and-close.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Fragment-Software/grass-claimer/offchain/airdrop"
	"github.com/Fragment-Software/grass-claimer/offchain/solana"
	"github.com/Fragment-Software/grass-claimer/offchain/solanafees"
	"github.com/Fragment-Software/grass-claimer/offchain/solanarpc"
)

// ErrSkipped marks a precondition that is not met yet. The wallet is left
// unfinished and retried on a later run.
var ErrSkipped = errors.New("skipped")

// Chain is the node read surface the planners depend on.
type Chain interface {
	AccountData(ctx context.Context, pubkey solana.Pubkey) ([]byte, error)
	AccountExists(ctx context.Context, pubkey solana.Pubkey) (bool, error)
	BalanceLamports(ctx context.Context, pubkey solana.Pubkey) (uint64, error)
	MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)
	TokenAccountBalance(ctx context.Context, account solana.Pubkey) (solanarpc.TokenAmount, error)
}

type Config struct {
	Logger *slog.Logger
	Chain  Chain
	Fees   solanafees.Policy

	// ExternalPayer funds fees and rent when set; otherwise each wallet pays
	// for itself.
	ExternalPayer solana.Keypair
	Collector     solana.Pubkey
	SkimTo        solana.Pubkey
	WithdrawToCex bool
}

func (c *Config) Validate() error {
	if c.Chain == nil {
		return errors.New("planner: chain required")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

type Planner struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Planner{log: cfg.Logger, cfg: cfg}, nil
}

// Plan is the outcome of planning one wallet. A plan without instructions
// means the work is already settled on chain.
type Plan struct {
	Instructions []solana.Instruction
	FeePayer     solana.Pubkey
	Signers      []solana.Keypair

	// Allocation is the claimable amount in base units, set by Claim.
	Allocation uint64
}

func (p Plan) Settled() bool { return len(p.Instructions) == 0 }

// payer returns the keypair that funds fees and rent for wallet.
func (p *Planner) payer(wallet solana.Keypair) solana.Keypair {
	if p.selfPaid() {
		return wallet
	}
	return p.cfg.ExternalPayer
}

func (p *Planner) selfPaid() bool { return p.cfg.ExternalPayer.IsZero() }

func (p *Planner) signers(wallet solana.Keypair) []solana.Keypair {
	if p.selfPaid() {
		return []solana.Keypair{wallet}
	}
	return []solana.Keypair{p.cfg.ExternalPayer, wallet}
}

func (p *Planner) price(ctx context.Context, accounts ...solana.Pubkey) (uint64, error) {
	return p.cfg.Fees.Price(ctx, accounts)
}

// feeReserve is what a self-paid wallet must keep back for the transaction fee.
func (p *Planner) feeReserve(price uint64) (uint64, error) {
	signatures := uint64(2)
	if p.selfPaid() {
		signatures = 1
	}
	est, err := p.cfg.Fees.Reserve(signatures, price)
	if err != nil {
		return 0, err
	}
	return est.TotalLamports, nil
}

// finish wraps ixs with the compute budget and signer set. Empty ixs stay
// empty so the caller can treat the wallet as settled.
func (p *Planner) finish(wallet solana.Keypair, ixs []solana.Instruction, price uint64) Plan {
	plan := Plan{
		FeePayer: p.payer(wallet).PublicKey(),
		Signers:  p.signers(wallet),
	}
	if len(ixs) == 0 {
		return plan
	}
	plan.Instructions = append(p.cfg.Fees.Budget(price), ixs...)
	return plan
}

func (p *Planner) tokenAccount(ctx context.Context, owner solana.Pubkey) (solana.Pubkey, bool, error) {
	ata, err := airdrop.DeriveTokenAccount(owner)
	if err != nil {
		return solana.Pubkey{}, false, err
	}
	exists, err := p.cfg.Chain.AccountExists(ctx, ata)
	if err != nil {
		return solana.Pubkey{}, false, fmt.Errorf("token account %s: %w", ata, err)
	}
	return ata, exists, nil
}

func skipped(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSkipped, fmt.Sprintf(format, args...))
}
