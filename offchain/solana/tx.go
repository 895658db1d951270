package solana

import (
	"errors"
	"fmt"
	"slices"
)

var ErrMissingSigner = errors.New("missing signer for required signature")

type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

type messageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// BuildAndSignLegacyTransaction compiles a legacy message and signs it with
// every required signer. Signers that the message does not reference are ignored.
func BuildAndSignLegacyTransaction(
	recentBlockhash [32]byte,
	feePayer Pubkey,
	signers []Keypair,
	instructions []Instruction,
) ([]byte, error) {
	if len(instructions) == 0 {
		return nil, errors.New("no instructions")
	}
	msg, accountKeys, header, err := compileLegacyMessage(recentBlockhash, feePayer, instructions)
	if err != nil {
		return nil, err
	}

	byKey := make(map[Pubkey]Keypair, len(signers))
	for _, s := range signers {
		byKey[s.PublicKey()] = s
	}

	sigCount := int(header.NumRequiredSignatures)
	out := make([]byte, 0, 3+sigCount*64+len(msg))
	out = append(out, encodeShortVecLen(sigCount)...)
	for _, pk := range accountKeys[:sigCount] {
		kp, ok := byKey[pk]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSigner, pk.Base58())
		}
		out = append(out, kp.Sign(msg)...)
	}
	out = append(out, msg...)
	return out, nil
}

type accountInfo struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
	FirstSeen  int
}

// class orders keys as signer-writable, signer-readonly, writable, readonly.
func (ai *accountInfo) class() int {
	switch {
	case ai.IsSigner && ai.IsWritable:
		return 0
	case ai.IsSigner:
		return 1
	case ai.IsWritable:
		return 2
	default:
		return 3
	}
}

func compileLegacyMessage(
	recentBlockhash [32]byte,
	feePayer Pubkey,
	instructions []Instruction,
) ([]byte, []Pubkey, messageHeader, error) {
	infos := make(map[Pubkey]*accountInfo, 32)
	ordered := make([]*accountInfo, 0, 32)

	touch := func(pk Pubkey, signer, writable bool) {
		if ai, ok := infos[pk]; ok {
			ai.IsSigner = ai.IsSigner || signer
			ai.IsWritable = ai.IsWritable || writable
			return
		}
		ai := &accountInfo{
			Pubkey:     pk,
			IsSigner:   signer,
			IsWritable: writable,
			FirstSeen:  len(ordered),
		}
		infos[pk] = ai
		ordered = append(ordered, ai)
	}

	// Fee payer must be a writable signer.
	touch(feePayer, true, true)

	for _, ix := range instructions {
		touch(ix.ProgramID, false, false)
		for _, am := range ix.Accounts {
			touch(am.Pubkey, am.IsSigner, am.IsWritable)
		}
	}
	if len(ordered) > 256 {
		return nil, nil, messageHeader{}, fmt.Errorf("too many accounts: %d", len(ordered))
	}

	slices.SortStableFunc(ordered, func(a, b *accountInfo) int {
		if ca, cb := a.class(), b.class(); ca != cb {
			return ca - cb
		}
		return a.FirstSeen - b.FirstSeen
	})

	var h messageHeader
	accountKeys := make([]Pubkey, 0, len(ordered))
	indexOf := make(map[Pubkey]uint8, len(ordered))
	for i, ai := range ordered {
		accountKeys = append(accountKeys, ai.Pubkey)
		indexOf[ai.Pubkey] = uint8(i)
		switch ai.class() {
		case 0:
			h.NumRequiredSignatures++
		case 1:
			h.NumRequiredSignatures++
			h.NumReadonlySignedAccounts++
		case 3:
			h.NumReadonlyUnsignedAccounts++
		}
	}

	out := make([]byte, 0, 512)
	out = append(out, h.NumRequiredSignatures, h.NumReadonlySignedAccounts, h.NumReadonlyUnsignedAccounts)
	out = append(out, encodeShortVecLen(len(accountKeys))...)
	for _, pk := range accountKeys {
		out = append(out, pk[:]...)
	}
	out = append(out, recentBlockhash[:]...)

	out = append(out, encodeShortVecLen(len(instructions))...)
	for _, ix := range instructions {
		out = append(out, indexOf[ix.ProgramID])
		out = append(out, encodeShortVecLen(len(ix.Accounts))...)
		for _, am := range ix.Accounts {
			out = append(out, indexOf[am.Pubkey])
		}
		out = append(out, encodeShortVecLen(len(ix.Data))...)
		out = append(out, ix.Data...)
	}

	return out, accountKeys, h, nil
}

// AccountKeys returns the ordered static keys the message would carry.
func AccountKeys(feePayer Pubkey, instructions []Instruction) ([]Pubkey, error) {
	_, keys, _, err := compileLegacyMessage([32]byte{}, feePayer, instructions)
	return keys, err
}
