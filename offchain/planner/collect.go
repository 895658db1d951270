package planner

import (
	"context"
	"fmt"

	"github.com/Fragment-Software/grass-claimer/offchain/airdrop"
	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

func (p *Planner) requireCollector() error {
	if p.cfg.Collector.IsZero() {
		return fmt.Errorf("collector address required")
	}
	return nil
}

// Collect plans sweeping the wallet's SOL to the collector. A self-paid
// wallet keeps back the transaction fee.
func (p *Planner) Collect(ctx context.Context, wallet solana.Keypair) (Plan, error) {
	if err := p.requireCollector(); err != nil {
		return Plan{}, err
	}
	owner := wallet.PublicKey()

	balance, err := p.cfg.Chain.BalanceLamports(ctx, owner)
	if err != nil {
		return Plan{}, fmt.Errorf("wallet balance: %w", err)
	}
	price, err := p.price(ctx, owner, p.cfg.Collector)
	if err != nil {
		return Plan{}, err
	}

	var reserve uint64
	if p.selfPaid() {
		if reserve, err = p.feeReserve(price); err != nil {
			return Plan{}, err
		}
	}
	if balance <= reserve {
		return Plan{}, skipped("wallet holds %s SOL, needs more than %s SOL to withdraw", airdrop.SOL(balance), airdrop.SOL(reserve))
	}

	ixs := []solana.Instruction{solana.SystemTransfer(owner, p.cfg.Collector, balance-reserve)}
	return p.finish(wallet, ixs, price), nil
}

// CollectAndClose forwards any GRASS left in the wallet to the collector,
// closes the token account and sweeps the remaining SOL in one transaction.
func (p *Planner) CollectAndClose(ctx context.Context, wallet solana.Keypair) (Plan, error) {
	if err := p.requireCollector(); err != nil {
		return Plan{}, err
	}
	if p.cfg.SkimTo.IsZero() {
		return Plan{}, fmt.Errorf("skim address required to close token accounts")
	}
	owner := wallet.PublicKey()
	payer := p.payer(wallet).PublicKey()

	rent, err := p.cfg.Chain.MinimumBalanceForRentExemption(ctx, solana.TokenAccountSize)
	if err != nil {
		return Plan{}, fmt.Errorf("token account rent: %w", err)
	}

	ata, exists, err := p.tokenAccount(ctx, owner)
	if err != nil {
		return Plan{}, err
	}
	balance, err := p.cfg.Chain.BalanceLamports(ctx, owner)
	if err != nil {
		return Plan{}, fmt.Errorf("wallet balance: %w", err)
	}
	price, err := p.price(ctx, owner, ata, p.cfg.Collector)
	if err != nil {
		return Plan{}, err
	}
	reserve, err := p.feeReserve(price)
	if err != nil {
		return Plan{}, err
	}

	var ixs []solana.Instruction
	var reclaimed, funded uint64
	if exists {
		if p.selfPaid() {
			reclaimed = rent - airdrop.SkimLamports(rent)
		}
		tokens, err := p.cfg.Chain.TokenAccountBalance(ctx, ata)
		if err != nil {
			return Plan{}, fmt.Errorf("token balance %s: %w", ata, err)
		}
		if tokens.Amount != 0 {
			collectorTokens, collectorExists, err := p.tokenAccount(ctx, p.cfg.Collector)
			if err != nil {
				return Plan{}, err
			}
			if !collectorExists {
				// The create runs before the close credits anything.
				if p.selfPaid() {
					if balance < rent+reserve {
						return Plan{}, skipped("wallet holds %s SOL, needs %s SOL to open the collector token account", airdrop.SOL(balance), airdrop.SOL(rent+reserve))
					}
					funded = rent
				}
				ixs = append(ixs, airdrop.CreateTokenAccount(payer, p.cfg.Collector, collectorTokens))
			}
			ixs = append(ixs, airdrop.TransferTokens(ata, collectorTokens, owner, tokens.Amount))
		}
		ixs = append(ixs, airdrop.CloseTokenAccount(ata, owner, payer, p.cfg.SkimTo, rent)...)
	}

	withdrawable := balance + reclaimed - funded
	if withdrawable <= reserve {
		p.log.Warn("planner: balance too low to withdraw", "wallet", owner, "sol", airdrop.SOL(withdrawable), "reserve", airdrop.SOL(reserve))
		return p.finish(wallet, ixs, price), nil
	}
	amount := withdrawable
	if p.selfPaid() {
		amount -= reserve
	}
	ixs = append(ixs, solana.SystemTransfer(owner, p.cfg.Collector, amount))
	return p.finish(wallet, ixs, price), nil
}
