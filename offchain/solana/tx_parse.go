package solana

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var ErrMalformedTransaction = errors.New("malformed transaction")

type ParsedInstruction struct {
	ProgramID Pubkey
	Accounts  []uint8
	Data      []byte
}

// ParsedLegacyMessage is the decoded message of a signed legacy transaction.
type ParsedLegacyMessage struct {
	Header          [3]uint8
	AccountKeys     []Pubkey
	RecentBlockhash [32]byte
	Instructions    []ParsedInstruction
}

func (m ParsedLegacyMessage) IsSigner(i int) bool { return i < int(m.Header[0]) }

// IsWritable applies the header's readonly counts to the key at index i.
func (m ParsedLegacyMessage) IsWritable(i int) bool {
	signers := int(m.Header[0])
	if i < signers {
		return i < signers-int(m.Header[1])
	}
	return i < len(m.AccountKeys)-int(m.Header[2])
}

// txReader walks a serialized transaction front to back. The first error
// sticks and every later read returns zero values.
type txReader struct {
	b   []byte
	err error
}

func (r *txReader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s", ErrMalformedTransaction, what)
	}
}

func (r *txReader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.b) {
		r.fail(what + " truncated")
		return nil
	}
	out := r.b[:n:n]
	r.b = r.b[n:]
	return out
}

func (r *txReader) length(what string) int {
	if r.err != nil {
		return 0
	}
	n, used, err := decodeShortVecLen(r.b)
	if err != nil {
		r.fail(what + " length")
		return 0
	}
	r.b = r.b[used:]
	return n
}

func (r *txReader) signatures() [][]byte {
	n := r.length("signature")
	sigs := make([][]byte, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		sigs = append(sigs, r.take(64, "signature"))
	}
	return sigs
}

// ParseLegacyTransaction decodes the message of a signed legacy transaction.
func ParseLegacyTransaction(tx []byte) (ParsedLegacyMessage, error) {
	r := &txReader{b: tx}
	var m ParsedLegacyMessage
	r.signatures()
	copy(m.Header[:], r.take(3, "header"))

	for n := r.length("account keys"); len(m.AccountKeys) < n && r.err == nil; {
		var pk Pubkey
		copy(pk[:], r.take(32, "account key"))
		m.AccountKeys = append(m.AccountKeys, pk)
	}
	copy(m.RecentBlockhash[:], r.take(32, "blockhash"))

	for n := r.length("instructions"); len(m.Instructions) < n && r.err == nil; {
		idx := r.take(1, "program index")
		if r.err == nil && int(idx[0]) >= len(m.AccountKeys) {
			r.fail("program index out of range")
		}
		accounts := r.take(r.length("instruction accounts"), "instruction accounts")
		data := r.take(r.length("instruction data"), "instruction data")
		if r.err != nil {
			break
		}
		m.Instructions = append(m.Instructions, ParsedInstruction{
			ProgramID: m.AccountKeys[idx[0]],
			Accounts:  accounts,
			Data:      data,
		})
	}
	if r.err != nil {
		return ParsedLegacyMessage{}, r.err
	}
	return m, nil
}

// TransactionSignature returns the base58 fee-payer signature, which is
// also the transaction id on the network.
func TransactionSignature(tx []byte) (string, error) {
	r := &txReader{b: tx}
	sigs := r.signatures()
	if r.err != nil {
		return "", r.err
	}
	if len(sigs) == 0 {
		return "", fmt.Errorf("%w: no signature", ErrMalformedTransaction)
	}
	return base58.Encode(sigs[0]), nil
}
