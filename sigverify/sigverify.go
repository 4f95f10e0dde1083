// Package sigverify validates that a permission bracket carries a
// correctly framed Ed25519 precompile instruction authorizing the user's
// signature over the canonical message, and that the authorization has
// not expired.
//
// The real runtime executes the Ed25519Program instruction before our
// program's handler ever runs, and aborts the whole transaction if the
// signature doesn't check out cryptographically — our handler only ever
// has to confirm that instruction was framed correctly. Since this
// module has no separate runtime pass that already did that,
// VerifyPrecompile below also performs the actual Ed25519 verification, folding the
// runtime's guarantee into the one place that would otherwise assume it.
package sigverify

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/expressrelay/relaycore/chainstate"
	"github.com/expressrelay/relaycore/relayerr"
)

// Ed25519ProgramID is the well-known native program that verifies
// Ed25519 signatures as a precompile.
var Ed25519ProgramID = solana.MustPublicKeyFromBase58("Ed25519SigVerify111111111111111111111111111")

const (
	headerLen    = 16 // 2*u8 + 7*u16
	pubkeyOffset = headerLen
	sigOffset    = pubkeyOffset + 32
	msgOffset    = sigOffset + 64
)

// VerifyExpiry fails with ErrSignatureExpired once now has passed
// validUntil.
func VerifyExpiry(now, validUntil uint64) error {
	if now > validUntil {
		return relayerr.ErrSignatureExpired
	}
	return nil
}

// BuildPrecompileInstruction constructs the Ed25519 precompile
// instruction a signing client places immediately after the permission
// instruction, framed byte-exactly the way VerifyPrecompile expects.
func BuildPrecompileInstruction(pubkey [32]byte, msg []byte, signature [64]byte) chainstate.Instruction {
	data := make([]byte, msgOffset+len(msg))
	data[0] = 1 // num_signatures
	data[1] = 0 // padding
	binary.LittleEndian.PutUint16(data[2:4], uint16(sigOffset))
	binary.LittleEndian.PutUint16(data[4:6], 0xFFFF)
	binary.LittleEndian.PutUint16(data[6:8], uint16(pubkeyOffset))
	binary.LittleEndian.PutUint16(data[8:10], 0xFFFF)
	binary.LittleEndian.PutUint16(data[10:12], uint16(msgOffset))
	binary.LittleEndian.PutUint16(data[12:14], uint16(len(msg)))
	binary.LittleEndian.PutUint16(data[14:16], 0xFFFF)
	copy(data[pubkeyOffset:sigOffset], pubkey[:])
	copy(data[sigOffset:msgOffset], signature[:])
	copy(data[msgOffset:], msg)

	return chainstate.Instruction{ProgramID: Ed25519ProgramID, Data: data}
}

// VerifyPrecompile checks that ix is a correctly framed, single-entry
// Ed25519 verification of (pubkey, msg, signature): right program id, no
// accounts, byte-exact header offsets, and a signature that actually
// verifies.
func VerifyPrecompile(ix chainstate.Instruction, pubkey [32]byte, msg []byte, signature [64]byte) error {
	if ix.ProgramID != Ed25519ProgramID || len(ix.Accounts) != 0 || len(ix.Data) != msgOffset+len(msg) {
		return relayerr.ErrSignatureVerificationFailed
	}

	want := make([]byte, headerLen)
	want[0] = 1
	binary.LittleEndian.PutUint16(want[2:4], uint16(sigOffset))
	binary.LittleEndian.PutUint16(want[4:6], 0xFFFF)
	binary.LittleEndian.PutUint16(want[6:8], uint16(pubkeyOffset))
	binary.LittleEndian.PutUint16(want[8:10], 0xFFFF)
	binary.LittleEndian.PutUint16(want[10:12], uint16(msgOffset))
	binary.LittleEndian.PutUint16(want[12:14], uint16(len(msg)))
	binary.LittleEndian.PutUint16(want[14:16], 0xFFFF)

	data := ix.Data
	if !bytes.Equal(data[:headerLen], want) {
		return relayerr.ErrSignatureVerificationFailed
	}
	if !bytes.Equal(data[pubkeyOffset:sigOffset], pubkey[:]) {
		return relayerr.ErrSignatureVerificationFailed
	}
	if !bytes.Equal(data[sigOffset:msgOffset], signature[:]) {
		return relayerr.ErrSignatureVerificationFailed
	}
	if !bytes.Equal(data[msgOffset:], msg) {
		return relayerr.ErrSignatureVerificationFailed
	}
	if !ed25519.Verify(pubkey[:], msg, signature[:]) {
		return relayerr.ErrSignatureVerificationFailed
	}
	return nil
}
