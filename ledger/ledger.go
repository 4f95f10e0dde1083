// Package ledger implements the token-expectation ledger: the scratch
// record, one per (user, mint), that the admission controller writes
// when it escrows a token on the user's behalf and the settlement
// engine later checks before paying out.
package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/expressrelay/relaycore/relayerr"
)

// Entry is the token-expectation ledger's on-chain record: what balance
// the relayer's token account is expected to hold for this mint once the
// protocol's embedded instructions have run, and which leg (sell vs buy)
// produced it.
type Entry struct {
	BalancePostExpected uint64
	SellToken           bool
}

const entryLen = 9

// Encode serializes an Entry the same way it would be written to an
// on-chain account.
func (e Entry) Encode() []byte {
	buf := make([]byte, entryLen)
	binary.LittleEndian.PutUint64(buf[:8], e.BalancePostExpected)
	if e.SellToken {
		buf[8] = 1
	}
	return buf
}

// Decode parses a ledger entry previously produced by Encode.
func Decode(data []byte) (Entry, error) {
	if len(data) != entryLen {
		return Entry{}, fmt.Errorf("ledger: invalid entry length %d", len(data))
	}
	return Entry{
		BalancePostExpected: binary.LittleEndian.Uint64(data[:8]),
		SellToken:           data[8] != 0,
	}, nil
}

// ComputeSellExpectation implements the sell-side post-condition: the
// user's entire present balance of the mint is escrowed into the
// relayer's account, so what the user is owed back is that balance
// minus whatever amount they authorized the embedded protocol call to
// consume. signedAmount exceeding the present balance is a numeric
// underflow, which is fatal rather than a recoverable mismatch.
func ComputeSellExpectation(presentUserAmount, signedAmount uint64) (uint64, error) {
	if signedAmount > presentUserAmount {
		return 0, relayerr.ErrArithmeticOverflow
	}
	return presentUserAmount - signedAmount, nil
}

// ComputeBuyExpectation implements the buy-side post-condition: the
// amount the user was promised to receive, which is exactly the signed
// amount from the opportunity adapter args.
func ComputeBuyExpectation(signedAmount uint64) uint64 {
	return signedAmount
}
