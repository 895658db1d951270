package airdrop

import (
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

var ErrInvalidClaimStatus = errors.New("invalid claim status account")

const (
	accountDiscriminatorLen = 8
	claimStatusLen          = 32 + 8 + 8 + 8
)

// ClaimStatus mirrors the claim program's per-wallet account.
type ClaimStatus struct {
	Claimant       solana.Pubkey
	Allocation     uint64
	SentAllocation uint64
	ClaimedTs      int64
}

// Settled reports whether the full allocation has already been sent.
func (s ClaimStatus) Settled() bool { return s.Allocation == s.SentAllocation }

// DecodeClaimStatus parses raw account data including its 8-byte discriminator.
func DecodeClaimStatus(data []byte) (ClaimStatus, error) {
	var out ClaimStatus
	if len(data) < accountDiscriminatorLen+claimStatusLen {
		return out, fmt.Errorf("%w: %d bytes", ErrInvalidClaimStatus, len(data))
	}
	body := data[accountDiscriminatorLen : accountDiscriminatorLen+claimStatusLen]
	if err := borsh.Deserialize(&out, body); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidClaimStatus, err)
	}
	return out, nil
}
