package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fragment-Software/grass-claimer/offchain/airdrop"
	"github.com/Fragment-Software/grass-claimer/offchain/grassapi"
	"github.com/Fragment-Software/grass-claimer/offchain/solana"
	"github.com/Fragment-Software/grass-claimer/offchain/solanarpc"
)

type ClaimRequest struct {
	Wallet solana.Keypair
	Claim  grassapi.Claim
	// Cex receives the claimed tokens when forwarding is enabled.
	Cex solana.Pubkey
}

// Claim plans the claim of req.Claim for req.Wallet. A claim status that is
// already settled yields an empty plan.
func (p *Planner) Claim(ctx context.Context, req ClaimRequest) (Plan, error) {
	wallet := req.Wallet.PublicKey()
	payer := p.payer(req.Wallet).PublicKey()

	addrs, err := airdrop.DeriveClaimAddresses(wallet, req.Claim.Version)
	if err != nil {
		return Plan{}, err
	}

	data, err := p.cfg.Chain.AccountData(ctx, addrs.ClaimStatus)
	switch {
	case err == nil:
		status, err := airdrop.DecodeClaimStatus(data)
		if err != nil {
			return Plan{}, err
		}
		if status.Settled() {
			p.log.Info("planner: already claimed", "wallet", wallet, "allocation", airdrop.UIAmount(status.Allocation))
			plan := p.finish(req.Wallet, nil, 0)
			plan.Allocation = req.Claim.Allocation
			return plan, nil
		}
	case errors.Is(err, solanarpc.ErrAccountNotFound):
	default:
		return Plan{}, fmt.Errorf("claim status %s: %w", addrs.ClaimStatus, err)
	}

	walletTokensExist, err := p.cfg.Chain.AccountExists(ctx, addrs.WalletTokens)
	if err != nil {
		return Plan{}, fmt.Errorf("token account %s: %w", addrs.WalletTokens, err)
	}
	var cexTokens solana.Pubkey
	cexTokensExist := true
	if p.cfg.WithdrawToCex {
		if req.Cex.IsZero() {
			return Plan{}, errors.New("cex address required when forwarding claimed tokens")
		}
		if cexTokens, cexTokensExist, err = p.tokenAccount(ctx, req.Cex); err != nil {
			return Plan{}, err
		}
	}

	rent, err := p.cfg.Chain.MinimumBalanceForRentExemption(ctx, airdrop.ClaimStatusRentSize)
	if err != nil {
		return Plan{}, fmt.Errorf("claim status rent: %w", err)
	}
	balance, err := p.cfg.Chain.BalanceLamports(ctx, wallet)
	if err != nil {
		return Plan{}, fmt.Errorf("wallet balance: %w", err)
	}
	if p.selfPaid() {
		// A self-paid wallet also funds every token account it creates.
		need := rent
		if created := uncreated(walletTokensExist, cexTokensExist); created > 0 {
			tokenRent, err := p.cfg.Chain.MinimumBalanceForRentExemption(ctx, solana.TokenAccountSize)
			if err != nil {
				return Plan{}, fmt.Errorf("token account rent: %w", err)
			}
			need += created * tokenRent
		}
		if balance < need {
			return Plan{}, skipped("wallet holds %s SOL, needs %s SOL for new account rent", airdrop.SOL(balance), airdrop.SOL(need))
		}
	}

	var ixs []solana.Instruction
	if !walletTokensExist {
		ixs = append(ixs, airdrop.CreateTokenAccount(payer, wallet, addrs.WalletTokens))
	}
	if !p.selfPaid() && balance < rent {
		ixs = append(ixs, solana.SystemTransfer(payer, wallet, rent))
	}

	claimIx, err := airdrop.ClaimInstruction(addrs, wallet, airdrop.ClaimInput{
		Allocation: req.Claim.Allocation,
		Proof:      req.Claim.Proof,
	})
	if err != nil {
		return Plan{}, err
	}
	ixs = append(ixs, claimIx)

	if p.cfg.WithdrawToCex {
		if !cexTokensExist {
			ixs = append(ixs, airdrop.CreateTokenAccount(payer, req.Cex, cexTokens))
		}
		ixs = append(ixs, airdrop.TransferTokens(addrs.WalletTokens, cexTokens, wallet, req.Claim.Allocation))
	}

	price, err := p.price(ctx, wallet, addrs.ClaimStatus, addrs.WalletTokens)
	if err != nil {
		return Plan{}, err
	}
	plan := p.finish(req.Wallet, ixs, price)
	plan.Allocation = req.Claim.Allocation
	return plan, nil
}

func uncreated(exists ...bool) uint64 {
	var n uint64
	for _, e := range exists {
		if !e {
			n++
		}
	}
	return n
}
