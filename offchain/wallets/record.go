// Package wallets persists the per-wallet records the run modes work through.
package wallets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
)

var ErrInvalidRecord = errors.New("invalid wallet record")

// Record is one wallet. The JSON layout is the on-disk database format.
type Record struct {
	PrivateKey   string          `json:"private_key"`
	Proxy        string          `json:"proxy,omitempty"`
	Address      string          `json:"address"`
	CexAddress   string          `json:"cex_address"`
	Allocation   decimal.Decimal `json:"allocation"`
	Claimed      bool            `json:"claimed"`
	ClosedATA    bool            `json:"closed_ata"`
	CollectedSOL bool            `json:"collected_sol"`
}

// NewRecord derives the address from privateKey (base58, 64 bytes).
func NewRecord(privateKey, proxy, cexAddress string) (Record, error) {
	privateKey = strings.TrimSpace(privateKey)
	kp, err := solana.ParseKeypairBase58(privateKey)
	if err != nil {
		return Record{}, fmt.Errorf("%w: private key: %v", ErrInvalidRecord, err)
	}
	cexAddress = strings.TrimSpace(cexAddress)
	if cexAddress != "" {
		if _, err := solana.ParsePubkey(cexAddress); err != nil {
			return Record{}, fmt.Errorf("%w: cex address %q: %v", ErrInvalidRecord, cexAddress, err)
		}
	}
	return Record{
		PrivateKey: privateKey,
		Proxy:      strings.TrimSpace(proxy),
		Address:    kp.PublicKey().Base58(),
		CexAddress: cexAddress,
	}, nil
}

func (r Record) Keypair() (solana.Keypair, error) {
	kp, err := solana.ParseKeypairBase58(r.PrivateKey)
	if err != nil {
		return solana.Keypair{}, fmt.Errorf("%w: %s: private key: %v", ErrInvalidRecord, r.Address, err)
	}
	if r.Address != "" && kp.PublicKey().Base58() != r.Address {
		return solana.Keypair{}, fmt.Errorf("%w: %s: private key belongs to %s", ErrInvalidRecord, r.Address, kp.PublicKey())
	}
	return kp, nil
}

// Cex returns the forwarding address, zero when the record has none.
func (r Record) Cex() (solana.Pubkey, error) {
	if strings.TrimSpace(r.CexAddress) == "" {
		return solana.Pubkey{}, nil
	}
	pk, err := solana.ParsePubkey(r.CexAddress)
	if err != nil {
		return solana.Pubkey{}, fmt.Errorf("%w: %s: cex address: %v", ErrInvalidRecord, r.Address, err)
	}
	return pk, nil
}

// Summary counts completion across a record set.
type Summary struct {
	Total      int
	Claimed    int
	ClosedATA  int
	Collected  int
	Allocation decimal.Decimal
}

func Summarize(records []Record) Summary {
	s := Summary{Total: len(records), Allocation: decimal.Zero}
	for _, r := range records {
		if r.Claimed {
			s.Claimed++
		}
		if r.ClosedATA {
			s.ClosedATA++
		}
		if r.CollectedSOL {
			s.Collected++
		}
		s.Allocation = s.Allocation.Add(r.Allocation)
	}
	return s
}
