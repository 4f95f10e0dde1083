// Package wire encodes and decodes the on-chain instruction arguments
// using the same Borsh encoding and Anchor sighash discriminators a real
// client submits to the chain, so nothing in relay ever invents its own
// wire format.
package wire

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Discriminator reproduces Anchor's sighash("global", name): the first
// eight bytes of sha256("global:<name>"), prefixed onto every
// instruction's data.
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// OpportunityAdapterArgs is the Option<OpportunityAdapterArgs> payload
// attached to a permission instruction when the bracket escrows a
// multi-token swap.
type OpportunityAdapterArgs struct {
	SellTokens []uint64
	BuyTokens  []uint64
}

// PermissionArgs is the permission instruction's argument struct.
type PermissionArgs struct {
	PermissionID           [32]byte
	Signature               [64]byte
	ValidUntil              uint64
	BidAmount               uint64
	OpportunityAdapterArgs *OpportunityAdapterArgs `bin:"optional"`
}

// InitializeArgs is the initialize instruction's argument struct.
type InitializeArgs struct {
	SplitProtocolDefault uint64
	SplitRelayer         uint64
}

// SetSplitsArgs is the set_splits instruction's argument struct.
type SetSplitsArgs struct {
	SplitProtocolDefault uint64
	SplitRelayer         uint64
}

// SetProtocolSplitArgs is the set_protocol_split instruction's argument struct.
type SetProtocolSplitArgs struct {
	SplitProtocol uint64
}

// EncodeInstructionData Borsh-encodes args (nil for argument-less
// instructions) behind the named instruction's discriminator.
func EncodeInstructionData(name string, args interface{}) ([]byte, error) {
	disc := Discriminator(name)
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if args != nil {
		enc := bin.NewBorshEncoder(buf)
		if err := enc.Encode(args); err != nil {
			return nil, fmt.Errorf("wire: encode %s: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeInstructionData verifies data begins with name's discriminator
// and Borsh-decodes the remainder into out, which may be nil.
func DecodeInstructionData(name string, data []byte, out interface{}) error {
	disc := Discriminator(name)
	if len(data) < 8 || !bytes.Equal(data[:8], disc[:]) {
		return fmt.Errorf("wire: discriminator mismatch for %q", name)
	}
	if out == nil {
		return nil
	}
	dec := bin.NewBorshDecoder(data[8:])
	return dec.Decode(out)
}
