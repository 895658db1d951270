package solana

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
)

type Pubkey [32]byte

var (
	ErrInvalidPubkey = errors.New("invalid pubkey")
)

// ParsePubkey accepts base58 (the wallet-facing form) or 64 hex chars.
func ParsePubkey(s string) (Pubkey, error) {
	var out Pubkey
	s = strings.TrimSpace(s)
	if s == "" {
		return out, ErrInvalidPubkey
	}

	if len(s) == 64 || strings.HasPrefix(s, "0x") {
		b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err == nil && len(b) == 32 {
			copy(out[:], b)
			return out, nil
		}
	}

	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return out, ErrInvalidPubkey
	}
	copy(out[:], b)
	return out, nil
}

func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (k Pubkey) Base58() string {
	return base58.Encode(k[:])
}

func (k Pubkey) String() string { return k.Base58() }

func (k Pubkey) IsZero() bool { return k == Pubkey{} }
