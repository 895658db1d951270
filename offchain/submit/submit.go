// Package submit delivers signed transactions either straight to the node or
// as single-transaction relay bundles, and waits for them to land.
package submit

import (
	"context"
	"errors"
	"net/http"

	"github.com/Fragment-Software/grass-claimer/offchain/solana"
	"github.com/Fragment-Software/grass-claimer/offchain/solanarpc"
)

const (
	StrategyDirect = "direct"
	StrategyBundle = "bundle"
)

var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrBlockhashExpired  = errors.New("blockhash expired before confirmation")
)

// Transaction is a signed wire transaction plus the blockhash it was built on.
type Transaction struct {
	Raw       []byte
	Signature string
	Blockhash solanarpc.Blockhash
}

// NewTransaction signs instructions and records the first signature.
func NewTransaction(bh solanarpc.Blockhash, feePayer solana.Pubkey, signers []solana.Keypair, ixs []solana.Instruction) (Transaction, error) {
	raw, err := solana.BuildAndSignLegacyTransaction(bh.Hash, feePayer, signers, ixs)
	if err != nil {
		return Transaction{}, err
	}
	sig, err := solana.TransactionSignature(raw)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{Raw: raw, Signature: sig, Blockhash: bh}, nil
}

type Result struct {
	Signature string
	BundleID  string
}

type Submitter interface {
	Submit(ctx context.Context, tx Transaction) (Result, error)
	Strategy() string
}

// Proxied is implemented by submitters whose off-chain traffic can be routed
// through a per-wallet client.
type Proxied interface {
	Via(h *http.Client) Submitter
}

// ForWallet returns s routed through h when s supports it.
func ForWallet(s Submitter, h *http.Client) Submitter {
	if p, ok := s.(Proxied); ok && h != nil {
		return p.Via(h)
	}
	return s
}
