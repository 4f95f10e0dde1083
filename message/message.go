// Package message builds the canonical byte message the user signs off
// on, and the platform authorizing a searcher's bid. It is a pure
// function: same inputs always produce the same bytes, which is the
// entire point — the Signature Verifier checks a signature over exactly
// this digest.
package message

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// TokenAmount is one entry of an opportunity adapter's buy or sell leg.
type TokenAmount struct {
	Mint   solana.PublicKey
	Amount uint64
}

// Adapter carries the token amounts appended to the canonical message
// when a bracket escrows an opportunity-adapter swap. The byte layout
// lists buy-tokens first and sell-tokens second; this is deliberately
// the opposite order from the admission controller's sell-then-buy
// ledger processing (see relay.Engine's permission method), which matches the original
// program's own asymmetry between validate_signature and the
// opportunity-adapter account loop.
type Adapter struct {
	Buy  []TokenAmount
	Sell []TokenAmount
}

// Build serializes (protocol, permission_id, user, bid_amount,
// valid_until) little-endian, followed by the adapter's token vectors
// when adapter is non-nil.
func Build(protocol solana.PublicKey, permissionID [32]byte, user solana.PublicKey, bidAmount, validUntil uint64, adapter *Adapter) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, protocol.Bytes()...)
	buf = append(buf, permissionID[:]...)
	buf = append(buf, user.Bytes()...)
	buf = appendUint64(buf, bidAmount)
	buf = appendUint64(buf, validUntil)
	if adapter != nil {
		buf = append(buf, byte(len(adapter.Buy)), byte(len(adapter.Sell)))
		for _, t := range adapter.Buy {
			buf = append(buf, t.Mint.Bytes()...)
			buf = appendUint64(buf, t.Amount)
		}
		for _, t := range adapter.Sell {
			buf = append(buf, t.Mint.Bytes()...)
			buf = appendUint64(buf, t.Amount)
		}
	}
	return buf
}

// Digest hashes a built message with sha256, the payload the Ed25519
// precompile instruction actually signs over.
func Digest(msg []byte) [32]byte {
	return sha256.Sum256(msg)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
