package airdrop

import (
	"crypto/sha256"
	"fmt"

	"github.com/near/borsh-go"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

// Discriminator is the Anchor method selector: sha256("global:<name>")[:8].
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

var claimDiscriminator = Discriminator("claim")

// ClaimInput is the borsh argument block of the claim method.
type ClaimInput struct {
	Allocation uint64
	Proof      [][32]byte
}

func (in ClaimInput) MarshalInstructionData() ([]byte, error) {
	proof := in.Proof
	if proof == nil {
		proof = [][32]byte{}
	}
	args, err := borsh.Serialize(ClaimInput{Allocation: in.Allocation, Proof: proof})
	if err != nil {
		return nil, fmt.Errorf("serialize claim args: %w", err)
	}
	out := make([]byte, 0, len(claimDiscriminator)+len(args))
	out = append(out, claimDiscriminator[:]...)
	return append(out, args...), nil
}

// ClaimInstruction builds the claim call for wallet against the derived addresses.
func ClaimInstruction(addrs Addresses, wallet solana.Pubkey, in ClaimInput) (solana.Instruction, error) {
	data, err := in.MarshalInstructionData()
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: ClaimProgramID,
		Accounts: []solana.AccountMeta{
			{Pubkey: addrs.Distributor, IsWritable: true},
			{Pubkey: GrassMint},
			{Pubkey: addrs.ClaimStatus, IsWritable: true},
			{Pubkey: addrs.Vault, IsWritable: true},
			{Pubkey: addrs.WalletTokens, IsWritable: true},
			{Pubkey: wallet, IsSigner: true, IsWritable: true},
			{Pubkey: solana.TokenProgramID},
			{Pubkey: solana.SystemProgramID},
		},
		Data: data,
	}, nil
}

// CreateTokenAccount creates owner's GRASS token account funded by payer.
func CreateTokenAccount(payer, owner, ata solana.Pubkey) solana.Instruction {
	return solana.CreateAssociatedTokenAccount(payer, ata, owner, GrassMint, solana.TokenProgramID)
}

// TransferTokens moves amount base units between GRASS token accounts.
func TransferTokens(source, destination, owner solana.Pubkey, amount uint64) solana.Instruction {
	return solana.TokenTransferChecked(solana.TokenProgramID, source, GrassMint, destination, owner, amount, TokenDecimals)
}
