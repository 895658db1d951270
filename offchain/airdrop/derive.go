package airdrop

import (
	"encoding/binary"
	"fmt"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

// DeriveDistributor returns the distributor account for a receipt version.
func DeriveDistributor(version uint32) (solana.Pubkey, uint8, error) {
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], version)
	pda, bump, err := solana.FindProgramAddress([][]byte{[]byte(distributorSeed), GrassMint[:], v[:]}, ClaimProgramID)
	if err != nil {
		return solana.Pubkey{}, 0, fmt.Errorf("derive distributor v%d: %w", version, err)
	}
	return pda, bump, nil
}

// DeriveClaimStatus returns the per-wallet claim status account.
func DeriveClaimStatus(wallet, distributor solana.Pubkey) (solana.Pubkey, uint8, error) {
	pda, bump, err := solana.FindProgramAddress([][]byte{[]byte(claimStatusSeed), wallet[:], distributor[:]}, ClaimProgramID)
	if err != nil {
		return solana.Pubkey{}, 0, fmt.Errorf("derive claim status: %w", err)
	}
	return pda, bump, nil
}

// DeriveTokenAccount returns owner's GRASS associated token account.
func DeriveTokenAccount(owner solana.Pubkey) (solana.Pubkey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, GrassMint, solana.TokenProgramID)
	if err != nil {
		return solana.Pubkey{}, fmt.Errorf("derive token account for %s: %w", owner, err)
	}
	return ata, nil
}

// Addresses is the full set of derived accounts one claim touches.
type Addresses struct {
	Distributor  solana.Pubkey
	ClaimStatus  solana.Pubkey
	Vault        solana.Pubkey
	WalletTokens solana.Pubkey
}

func DeriveClaimAddresses(wallet solana.Pubkey, version uint32) (Addresses, error) {
	var out Addresses
	var err error
	if out.Distributor, _, err = DeriveDistributor(version); err != nil {
		return out, err
	}
	if out.ClaimStatus, _, err = DeriveClaimStatus(wallet, out.Distributor); err != nil {
		return out, err
	}
	if out.Vault, err = DeriveTokenAccount(out.Distributor); err != nil {
		return out, err
	}
	if out.WalletTokens, err = DeriveTokenAccount(wallet); err != nil {
		return out, err
	}
	return out, nil
}
