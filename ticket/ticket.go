// Package ticket implements the permission ticket: the account the
// admission controller opens to record a bid's terms, and the
// settlement engine later reads and closes.
package ticket

import (
	"encoding/binary"
	"fmt"
)

// Ticket is the permission ticket's on-chain record.
type Ticket struct {
	// OpeningBalance is the ticket account's lamport balance at the
	// instant it was created, before the bid payment lands.
	OpeningBalance uint64
	BidAmount      uint64
	// OpportunityAdapter records whether this bracket escrows a
	// multi-token swap, so the settlement engine knows whether to walk
	// the trailing token-expectation accounts.
	OpportunityAdapter bool
}

const encodedLen = 17

// Encode serializes a Ticket the way it would be written on-chain.
func (t Ticket) Encode() []byte {
	buf := make([]byte, encodedLen)
	binary.LittleEndian.PutUint64(buf[0:8], t.OpeningBalance)
	binary.LittleEndian.PutUint64(buf[8:16], t.BidAmount)
	if t.OpportunityAdapter {
		buf[16] = 1
	}
	return buf
}

// Decode parses a ticket previously produced by Encode.
func Decode(data []byte) (Ticket, error) {
	if len(data) != encodedLen {
		return Ticket{}, fmt.Errorf("ticket: invalid ticket length %d", len(data))
	}
	return Ticket{
		OpeningBalance:     binary.LittleEndian.Uint64(data[0:8]),
		BidAmount:          binary.LittleEndian.Uint64(data[8:16]),
		OpportunityAdapter: data[16] != 0,
	}, nil
}
