package solana

import (
	"encoding/binary"
)

var (
	SystemProgramID                 = MustParsePubkey("11111111111111111111111111111111")
	ComputeBudgetProgramID          = MustParsePubkey("ComputeBudget111111111111111111111111111111")
	TokenProgramID                  = MustParsePubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenAccountProgramID = MustParsePubkey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// TokenAccountSize is the packed length of an SPL token account.
const TokenAccountSize = 165

const (
	systemIxTransfer uint32 = 2

	tokenIxCloseAccount    byte = 9
	tokenIxTransferChecked byte = 12
)

func ComputeBudgetSetComputeUnitLimit(limit uint32) Instruction {
	var data [5]byte
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], limit)
	return Instruction{
		ProgramID: ComputeBudgetProgramID,
		Accounts:  nil,
		Data:      data[:],
	}
}

func ComputeBudgetSetComputeUnitPrice(microLamports uint64) Instruction {
	var data [9]byte
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return Instruction{
		ProgramID: ComputeBudgetProgramID,
		Accounts:  nil,
		Data:      data[:],
	}
}

func SystemTransfer(from, to Pubkey, lamports uint64) Instruction {
	var data [12]byte
	binary.LittleEndian.PutUint32(data[0:4], systemIxTransfer)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsSigner: false, IsWritable: true},
		},
		Data: data[:],
	}
}

// FindAssociatedTokenAddress derives the canonical token account of owner for mint.
func FindAssociatedTokenAddress(owner, mint, tokenProgram Pubkey) (Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{owner[:], tokenProgram[:], mint[:]}, AssociatedTokenAccountProgramID)
}

// CreateAssociatedTokenAccount builds the ATA program "Create" instruction.
func CreateAssociatedTokenAccount(funding, ata, wallet, mint, tokenProgram Pubkey) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenAccountProgramID,
		Accounts: []AccountMeta{
			{Pubkey: funding, IsSigner: true, IsWritable: true},
			{Pubkey: ata, IsSigner: false, IsWritable: true},
			{Pubkey: wallet, IsSigner: false, IsWritable: false},
			{Pubkey: mint, IsSigner: false, IsWritable: false},
			{Pubkey: SystemProgramID, IsSigner: false, IsWritable: false},
			{Pubkey: tokenProgram, IsSigner: false, IsWritable: false},
		},
		Data: []byte{0},
	}
}

func TokenTransferChecked(tokenProgram, source, mint, destination, owner Pubkey, amount uint64, decimals uint8) Instruction {
	var data [10]byte
	data[0] = tokenIxTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals
	return Instruction{
		ProgramID: tokenProgram,
		Accounts: []AccountMeta{
			{Pubkey: source, IsSigner: false, IsWritable: true},
			{Pubkey: mint, IsSigner: false, IsWritable: false},
			{Pubkey: destination, IsSigner: false, IsWritable: true},
			{Pubkey: owner, IsSigner: true, IsWritable: false},
		},
		Data: data[:],
	}
}

// TokenCloseAccount returns the account's lamports to destination.
func TokenCloseAccount(tokenProgram, account, destination, owner Pubkey) Instruction {
	return Instruction{
		ProgramID: tokenProgram,
		Accounts: []AccountMeta{
			{Pubkey: account, IsSigner: false, IsWritable: true},
			{Pubkey: destination, IsSigner: false, IsWritable: true},
			{Pubkey: owner, IsSigner: true, IsWritable: false},
		},
		Data: []byte{tokenIxCloseAccount},
	}
}
