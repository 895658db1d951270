package airdrop

import (
	"github.com/shopspring/decimal"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

var skimFraction = decimal.RequireFromString("0.03")

// SkimLamports is the operator share taken from a reclaimed token-account
// rent, truncated to whole lamports.
func SkimLamports(rent uint64) uint64 {
	return uint64(decimalFromUint64(rent).Mul(skimFraction).Floor().IntPart())
}

// CloseTokenAccount closes ata into payer and forwards the skim from payer
// to the operator address.
func CloseTokenAccount(ata, wallet, payer, skimTo solana.Pubkey, rent uint64) []solana.Instruction {
	return []solana.Instruction{
		solana.TokenCloseAccount(solana.TokenProgramID, ata, payer, wallet),
		solana.SystemTransfer(payer, skimTo, SkimLamports(rent)),
	}
}
