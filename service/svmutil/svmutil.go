// Package svmutil collects the small key/address conversions the relay
// needs when it talks to operators and protocols in human-readable form,
// adapted from the wallet service's svmbase key helpers.
package svmutil

import (
	"encoding/hex"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// GenerateKeypair returns a fresh relayer or protocol signing key.
func GenerateKeypair() (solana.PrivateKey, solana.PublicKey) {
	account := solana.NewWallet()
	return account.PrivateKey, account.PublicKey()
}

// PrivateKeyFromBase58 parses an operator-supplied key, e.g. from config
// or an environment variable.
func PrivateKeyFromBase58(s string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromBase58(s)
	if err != nil {
		return solana.PrivateKey{}, fmt.Errorf("svmutil: parse private key: %w", err)
	}
	return key, nil
}

// PrivateKeyFromHex parses a 64-byte hex-encoded key.
func PrivateKeyFromHex(s string) (solana.PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return solana.PrivateKey{}, fmt.Errorf("svmutil: decode hex: %w", err)
	}
	if len(raw) != 64 {
		return solana.PrivateKey{}, fmt.Errorf("svmutil: private key must be 64 bytes, got %d", len(raw))
	}
	return solana.PrivateKey(raw), nil
}

// PublicKeyFromBase58 parses an address string into a public key.
func PublicKeyFromBase58(s string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("svmutil: parse public key: %w", err)
	}
	return pk, nil
}

// Base58Encode wraps the raw base58 alphabet encoder for payloads that
// are not themselves solana.PublicKey-shaped, such as a serialized
// transaction destined for the sendTransaction RPC call.
func Base58Encode(b []byte) string {
	return base58.Encode(b)
}

// Base58Decode is the inverse of Base58Encode.
func Base58Decode(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("svmutil: decode base58: %w", err)
	}
	return b, nil
}

// NewPermissionID generates a fresh 32-byte permission identifier for a
// demo or test bracket. The on-chain program treats permission_id as an
// opaque protocol-chosen value; a UUID gives every demo run a distinct
// one without the caller needing to manage a counter.
func NewPermissionID() [32]byte {
	id := uuid.New()
	var out [32]byte
	copy(out[:16], id[:])
	return out
}
