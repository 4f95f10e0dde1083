package relay

import (
	"bytes"

	"github.com/gagliardetto/solana-go"

	"github.com/expressrelay/relaycore/chainstate"
	"github.com/expressrelay/relaycore/ledger"
	"github.com/expressrelay/relaycore/message"
	"github.com/expressrelay/relaycore/relayerr"
	"github.com/expressrelay/relaycore/sigverify"
	"github.com/expressrelay/relaycore/ticket"
	"github.com/expressrelay/relaycore/wire"
)

// permission is the Admission Controller. It must run as instruction 0
// of the transaction, must be followed immediately by the Ed25519
// precompile instruction authorizing the user's signature, must be
// trailed by a matching depermission instruction, and must not let any
// unrecognized middle instruction reference the relayer signer.
func (e *Engine) permission(tx *chainstate.Transaction, selfIndex int) error {
	if selfIndex != 0 {
		return relayerr.ErrPermissioningOutOfOrder
	}
	permIx, err := tx.At(selfIndex)
	if err != nil {
		return err
	}
	if len(permIx.Accounts) < fixedPermissionAccounts {
		return relayerr.ErrInvariantViolation
	}

	last := len(tx.Instructions) - 1
	depIx, err := tx.At(last)
	if err != nil {
		return err
	}
	if len(depIx.Accounts) < depermissionFixedAccounts {
		return relayerr.ErrPermissioningOutOfOrder
	}

	relayerSigner := permIx.Accounts[0].Key
	permissionTicketKey := permIx.Accounts[1].Key
	protocol := permIx.Accounts[2].Key
	signatureReplayKey := permIx.Accounts[3].Key

	if depIx.ProgramID != e.ProgramID {
		return relayerr.ErrPermissioningOutOfOrder
	}
	if depIx.Accounts[1].Key != permissionTicketKey {
		return relayerr.ErrPermissioningOutOfOrder
	}
	if depIx.Accounts[0].Key != relayerSigner {
		return relayerr.ErrPermissioningOutOfOrder
	}
	if depIx.Accounts[3].Key != protocol {
		return relayerr.ErrPermissioningOutOfOrder
	}
	wantDepDisc := wire.Discriminator("depermission")
	if len(depIx.Data) < 8 || !bytes.Equal(depIx.Data[:8], wantDepDisc[:]) {
		return relayerr.ErrPermissioningOutOfOrder
	}

	// No instruction strictly between the Ed25519 precompile slot and
	// the trailing depermission may reference the relayer signer unless
	// its program is explicitly whitelisted as embedded middleware.
	for i := selfIndex + 2; i < last; i++ {
		ix, err := tx.At(i)
		if err != nil {
			return err
		}
		if e.AllowedMiddlewarePrograms[ix.ProgramID] {
			continue
		}
		for _, acc := range ix.Accounts {
			if acc.Key == relayerSigner {
				return relayerr.ErrPermissioningOutOfOrder
			}
		}
	}

	var args wire.PermissionArgs
	if err := wire.DecodeInstructionData("permission", permIx.Data, &args); err != nil {
		return relayerr.ErrInvariantViolation
	}

	wantTicket, _, err := chainstate.FindPermissionTicket(e.ProgramID, protocol, args.PermissionID)
	if err != nil {
		return err
	}
	if wantTicket != permissionTicketKey {
		return relayerr.ErrInvariantViolation
	}

	wantReplay, _, err := chainstate.FindSignatureReplay(e.ProgramID, args.Signature)
	if err != nil {
		return err
	}
	if wantReplay != signatureReplayKey {
		return relayerr.ErrInvariantViolation
	}
	if e.Store.Exists(signatureReplayKey) {
		return relayerr.ErrSignatureReplay
	}

	var (
		user         solana.PublicKey
		adapter      *message.Adapter
		nSell        int
	)

	if args.OpportunityAdapterArgs != nil {
		oaa := args.OpportunityAdapterArgs
		nSell = len(oaa.SellTokens)
		nBuy := len(oaa.BuyTokens)

		wantRemaining := adapterFixedAccounts + 4*(nSell+nBuy)
		if len(permIx.Accounts)-fixedPermissionAccounts != wantRemaining {
			return relayerr.ErrPermissioningOutOfOrder
		}
		if len(depIx.Accounts)-depermissionFixedAccounts != 4*(nSell+nBuy) {
			return relayerr.ErrPermissioningOutOfOrder
		}

		rem := permIx.Accounts[fixedPermissionAccounts:]
		user = rem[0].Key
		authority := rem[1].Key
		tokenProgram := rem[2].Key
		ataProgram := rem[3].Key

		wantAuthority, _, err := chainstate.FindAuthority(e.ProgramID)
		if err != nil {
			return err
		}
		if authority != wantAuthority {
			return relayerr.ErrInvariantViolation
		}
		if tokenProgram != solana.TokenProgramID {
			return relayerr.ErrInvariantViolation
		}
		if ataProgram != solana.SPLAssociatedTokenAccountProgramID {
			return relayerr.ErrInvariantViolation
		}

		tokens := rem[4:]
		adapter = &message.Adapter{
			Sell: make([]message.TokenAmount, nSell),
			Buy:  make([]message.TokenAmount, nBuy),
		}

		for i := 0; i < nSell+nBuy; i++ {
			mint := tokens[i*4].Key
			userTA := tokens[i*4+1].Key
			tokenExpectationKey := tokens[i*4+2].Key
			relayerATA := tokens[i*4+3].Key

			taMint, taOwner, taAmount, ok := e.Store.TokenAccount(userTA)
			if !ok || taMint != mint || taOwner != user {
				return relayerr.ErrInvariantViolation
			}

			wantRelayerATA, _, err := chainstate.FindAssociatedTokenAddress(relayerSigner, mint)
			if err != nil {
				return err
			}
			if relayerATA != wantRelayerATA {
				return relayerr.ErrInvariantViolation
			}
			if !e.Store.Exists(relayerATA) {
				if err := e.Store.CreateTokenAccount(relayerATA, mint, relayerSigner); err != nil {
					return err
				}
			}

			wantTokenExpectation, _, err := chainstate.FindTokenExpectation(e.ProgramID, user, mint)
			if err != nil {
				return err
			}
			if tokenExpectationKey != wantTokenExpectation {
				return relayerr.ErrInvariantViolation
			}
			if e.Store.Exists(tokenExpectationKey) {
				return relayerr.ErrInvariantViolation
			}

			depOffset := depermissionFixedAccounts + i*4
			if depIx.Accounts[depOffset].Key != mint ||
				depIx.Accounts[depOffset+1].Key != userTA ||
				depIx.Accounts[depOffset+2].Key != tokenExpectationKey ||
				depIx.Accounts[depOffset+3].Key != relayerATA {
				return relayerr.ErrPermissioningOutOfOrder
			}

			var entry ledger.Entry
			if i < nSell {
				sellAmount := oaa.SellTokens[i]
				if err := e.Store.TransferTokens(userTA, relayerATA, taAmount); err != nil {
					return err
				}
				post, err := ledger.ComputeSellExpectation(taAmount, sellAmount)
				if err != nil {
					return err
				}
				entry = ledger.Entry{BalancePostExpected: post, SellToken: true}
				adapter.Sell[i] = message.TokenAmount{Mint: mint, Amount: sellAmount}
			} else {
				buyAmount := oaa.BuyTokens[i-nSell]
				entry = ledger.Entry{BalancePostExpected: ledger.ComputeBuyExpectation(buyAmount), SellToken: false}
				adapter.Buy[i-nSell] = message.TokenAmount{Mint: mint, Amount: buyAmount}
			}
			if err := e.Store.CreateAccount(tokenExpectationKey, e.ProgramID, tokenAccountRentLamports, entry.Encode()); err != nil {
				return relayerr.ErrInvariantViolation
			}
		}
	} else {
		user = depIx.Accounts[2].Key
	}

	if err := e.Store.CreateAccount(signatureReplayKey, e.ProgramID, replayRentLamports, nil); err != nil {
		return relayerr.ErrSignatureReplay
	}

	t := ticket.Ticket{
		OpeningBalance:     ticketRentLamports,
		BidAmount:          args.BidAmount,
		OpportunityAdapter: args.OpportunityAdapterArgs != nil,
	}
	if err := e.Store.CreateAccount(permissionTicketKey, e.ProgramID, ticketRentLamports, t.Encode()); err != nil {
		return relayerr.ErrInvariantViolation
	}

	if args.OpportunityAdapterArgs != nil && depIx.Accounts[2].Key != user {
		return relayerr.ErrInvariantViolation
	}

	msg := message.Build(protocol, args.PermissionID, user, args.BidAmount, args.ValidUntil, adapter)
	digest := message.Digest(msg)

	if err := sigverify.VerifyExpiry(e.Clock(), args.ValidUntil); err != nil {
		return err
	}
	precompileIx, err := tx.At(selfIndex + 1)
	if err != nil {
		return relayerr.ErrSignatureVerificationFailed
	}
	return sigverify.VerifyPrecompile(precompileIx, [32]byte(user), digest[:], args.Signature)
}
