// Package airdrop encodes the merkle-distributor claim program interactions
// for the GRASS airdrop: address derivation, the claim instruction, the
// on-chain claim status and the token-account close with its rent skim.
package airdrop

import (
	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

var (
	ClaimProgramID = solana.MustParsePubkey("Eohp5jrnGQgP74oD7ij9EuCSYnQDLLHgsuAmtSTuxABk")
	GrassMint      = solana.MustParsePubkey("Grass7B4RdKfBCjTKgSqnXkqjwiGvQyFbuSCUJr3XXjs")
)

const (
	// TokenDecimals is the GRASS mint precision.
	TokenDecimals uint8 = 9

	// ClaimStatusRentSize is the data length used to size the rent
	// shortfall check before a claim.
	ClaimStatusRentSize uint64 = 64

	distributorSeed = "MerkleDistributor"
	claimStatusSeed = "ClaimStatus"
)
