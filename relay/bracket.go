package relay

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/expressrelay/relaycore/chainstate"
)

// Bracket bundles the transaction a permission/…/depermission pair runs
// inside, plus a callback simulating the embedded protocol
// instructions' effects (indices between the Ed25519 precompile slot
// and the trailing depermission instruction). The simulator has no
// general bytecode interpreter, so Execute is how a test or the demo
// harness supplies "what running those instructions would have done" to
// the scratch account state.
type Bracket struct {
	Tx      *chainstate.Transaction
	Execute func(store *chainstate.Store) error
}

// RunBracket runs one full bracket against a snapshot of e.Store: if
// permission, the embedded protocol call, and depermission all succeed,
// the snapshot is committed back to e.Store; any failure at any step
// discards it entirely; this is the no-partial-failure guarantee a real
// transaction's atomicity gives for free.
func (e *Engine) RunBracket(b *Bracket) error {
	sub := e.clone()

	if err := sub.permission(b.Tx, 0); err != nil {
		logRejected("permission", err, [32]byte{})
		return err
	}
	if b.Execute != nil {
		if err := b.Execute(sub.Store); err != nil {
			log.Error("express-relay: embedded protocol call failed", "err", err)
			return err
		}
	}
	last := len(b.Tx.Instructions) - 1
	if err := sub.depermission(b.Tx, last); err != nil {
		logRejected("depermission", err, [32]byte{})
		return err
	}

	e.Store = sub.Store
	log.Info("express-relay: bracket settled")
	return nil
}
