package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mr-tron/base58"
)

var ErrInvalidKeypair = errors.New("invalid keypair")

// Keypair is an ed25519 signing key in the Solana 64-byte layout
// (32-byte seed followed by the 32-byte public key).
type Keypair struct {
	priv ed25519.PrivateKey
	pub  Pubkey
}

func NewKeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, ErrInvalidKeypair
	}
	return keypairFromPrivate(ed25519.NewKeyFromSeed(seed))
}

// ParseKeypairBase58 decodes the base58 text form exported by wallets.
func ParseKeypairBase58(s string) (Keypair, error) {
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return Keypair{}, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	return KeypairFromBytes(raw)
}

// KeypairFromBytes checks that the embedded public key matches the seed.
func KeypairFromBytes(raw []byte) (Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return Keypair{}, ErrInvalidKeypair
	}
	kp, err := NewKeypairFromSeed(raw[:ed25519.SeedSize])
	if err != nil {
		return Keypair{}, err
	}
	if string(kp.pub[:]) != string(raw[ed25519.SeedSize:]) {
		return Keypair{}, fmt.Errorf("%w: public key does not match seed", ErrInvalidKeypair)
	}
	return kp, nil
}

// LoadKeypairFile reads a Solana CLI keypair file (JSON array of 64 ints).
func LoadKeypairFile(path string) (Keypair, error) {
	if path == "" {
		return Keypair{}, fmt.Errorf("keypair path required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, err
	}
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return Keypair{}, ErrInvalidKeypair
	}
	key := make([]byte, 0, len(ints))
	for _, v := range ints {
		if v < 0 || v > 255 {
			return Keypair{}, ErrInvalidKeypair
		}
		key = append(key, byte(v))
	}
	return KeypairFromBytes(key)
}

func keypairFromPrivate(priv ed25519.PrivateKey) (Keypair, error) {
	pk, ok := priv.Public().(ed25519.PublicKey)
	if !ok || len(pk) != ed25519.PublicKeySize {
		return Keypair{}, ErrInvalidKeypair
	}
	var pub Pubkey
	copy(pub[:], pk)
	return Keypair{priv: priv, pub: pub}, nil
}

func (k Keypair) PublicKey() Pubkey { return k.pub }

func (k Keypair) Sign(msg []byte) []byte { return ed25519.Sign(k.priv, msg) }

func (k Keypair) Base58() string { return base58.Encode(k.priv) }

func (k Keypair) IsZero() bool { return len(k.priv) == 0 }
