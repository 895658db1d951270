package planner

import (
	"context"
	"fmt"

	"github.com/Fragment-Software/grass-claimer/offchain/airdrop"
	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

// Close plans closing the wallet's empty GRASS token account. The reclaimed
// rent goes to the payer, which forwards the skim.
func (p *Planner) Close(ctx context.Context, wallet solana.Keypair) (Plan, error) {
	owner := wallet.PublicKey()
	if p.cfg.SkimTo.IsZero() {
		return Plan{}, fmt.Errorf("skim address required to close token accounts")
	}

	ata, exists, err := p.tokenAccount(ctx, owner)
	if err != nil {
		return Plan{}, err
	}
	if !exists {
		return Plan{}, skipped("token account %s already closed or never created", ata)
	}
	tokens, err := p.cfg.Chain.TokenAccountBalance(ctx, ata)
	if err != nil {
		return Plan{}, fmt.Errorf("token balance %s: %w", ata, err)
	}
	if tokens.Amount != 0 {
		return Plan{}, skipped("token account %s still holds %s GRASS", ata, airdrop.UIAmount(tokens.Amount))
	}

	rent, err := p.cfg.Chain.MinimumBalanceForRentExemption(ctx, solana.TokenAccountSize)
	if err != nil {
		return Plan{}, fmt.Errorf("token account rent: %w", err)
	}
	payer := p.payer(wallet).PublicKey()
	ixs := airdrop.CloseTokenAccount(ata, owner, payer, p.cfg.SkimTo, rent)

	price, err := p.price(ctx, owner, ata)
	if err != nil {
		return Plan{}, err
	}
	return p.finish(wallet, ixs, price), nil
}
