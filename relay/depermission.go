package relay

import (
	"fmt"

	"github.com/expressrelay/relaycore/chainstate"
	"github.com/expressrelay/relaycore/config"
	"github.com/expressrelay/relaycore/ledger"
	"github.com/expressrelay/relaycore/relayerr"
	"github.com/expressrelay/relaycore/ticket"
)

// depermission is the Settlement Engine. It pays out every escrowed
// token expectation, collects the wrapped-native bid payment into the
// permission ticket, verifies the ticket actually holds the bid amount,
// and splits it between protocol, relayer and residual treasury before
// closing the ticket back to the relayer signer.
func (e *Engine) depermission(tx *chainstate.Transaction, selfIndex int) error {
	depIx, err := tx.At(selfIndex)
	if err != nil {
		return err
	}
	if len(depIx.Accounts) < depermissionFixedAccounts {
		return relayerr.ErrInvariantViolation
	}

	relayerSigner := depIx.Accounts[0].Key
	permissionTicketKey := depIx.Accounts[1].Key
	protocol := depIx.Accounts[3].Key
	protocolFeeReceiver := depIx.Accounts[4].Key
	relayerFeeReceiver := depIx.Accounts[5].Key
	wsolMint := depIx.Accounts[8].Key
	wsolTAUser := depIx.Accounts[9].Key
	wsolTAExpressRelay := depIx.Accounts[10].Key

	if wsolMint != WrappedSOLMint {
		return relayerr.ErrInvariantViolation
	}

	wantRelayerSigner, wantRelayerFeeReceiver := e.Config.RelayerAccounts()
	if relayerSigner != wantRelayerSigner || relayerFeeReceiver != wantRelayerFeeReceiver {
		return relayerr.ErrInvariantViolation
	}
	wantProtocolFeeReceiver, _, err := chainstate.FindExpressRelayFees(protocol)
	if err != nil {
		return err
	}
	if protocolFeeReceiver != wantProtocolFeeReceiver {
		return relayerr.ErrInvariantViolation
	}

	ticketData, err := e.Store.AccountData(permissionTicketKey)
	if err != nil {
		return fmt.Errorf("depermission: %w", relayerr.ErrInvariantViolation)
	}
	t, err := ticket.Decode(ticketData)
	if err != nil {
		return err
	}

	if t.OpportunityAdapter {
		trailing := depIx.Accounts[depermissionFixedAccounts:]
		if len(trailing)%4 != 0 {
			return relayerr.ErrInvariantViolation
		}
		n := len(trailing) / 4
		for i := 0; i < n; i++ {
			userTA := trailing[i*4+1].Key
			tokenExpectationKey := trailing[i*4+2].Key
			relayerATA := trailing[i*4+3].Key

			entryData, err := e.Store.AccountData(tokenExpectationKey)
			if err != nil {
				return fmt.Errorf("depermission: %w", relayerr.ErrInvariantViolation)
			}
			entry, err := ledger.Decode(entryData)
			if err != nil {
				return err
			}

			_, _, relayerBalance, ok := e.Store.TokenAccount(relayerATA)
			if !ok || relayerBalance < entry.BalancePostExpected {
				return relayerr.ErrTokenExpectationNotMet
			}
			if err := e.Store.TransferTokens(relayerATA, userTA, entry.BalancePostExpected); err != nil {
				return err
			}
			if err := e.Store.CloseAccount(tokenExpectationKey, relayerSigner); err != nil {
				return err
			}
		}
	}

	// Wrapped-native bid collection: a fresh wsol_ta_express_relay
	// account receives bid_amount (modeled directly as lamports, since
	// for the native mint the SPL token program keeps a token account's
	// `amount` and lamport balance in lockstep), then closes to the
	// ticket, landing bid_amount plus the account's own rent there.
	if e.Store.Exists(wsolTAExpressRelay) {
		return relayerr.ErrInvariantViolation
	}
	if err := e.Store.CreateAccount(wsolTAExpressRelay, e.ProgramID, tokenAccountRentLamports, nil); err != nil {
		return err
	}
	if err := e.Store.TransferLamports(wsolTAUser, wsolTAExpressRelay, t.BidAmount); err != nil {
		return fmt.Errorf("depermission: wsol payment: %w", relayerr.ErrBidNotMet)
	}
	rentOwedRelayerSigner := uint64(tokenAccountRentLamports)
	if err := e.Store.CloseAccount(wsolTAExpressRelay, permissionTicketKey); err != nil {
		return err
	}

	if e.Store.Lamports(permissionTicketKey) < t.OpeningBalance+t.BidAmount {
		return relayerr.ErrBidNotMet
	}

	splitProtocolDefault, splitRelayer := e.Config.Splits()
	splitProtocol, hasOverride := e.Config.ProtocolSplit(protocol)
	if !hasOverride {
		splitProtocol = splitProtocolDefault
	}

	if splitProtocol != 0 && t.BidAmount > ^uint64(0)/splitProtocol {
		return relayerr.ErrFeesTooHigh
	}
	feeProtocol := t.BidAmount * splitProtocol / config.FeeSplitPrecision
	if feeProtocol > t.BidAmount {
		return relayerr.ErrFeesTooHigh
	}
	remainder := saturatingSub(t.BidAmount, feeProtocol)
	if splitRelayer != 0 && remainder > ^uint64(0)/splitRelayer {
		return relayerr.ErrFeesTooHigh
	}
	feeRelayer := remainder * splitRelayer / config.FeeSplitPrecision
	if feeRelayer+feeProtocol > t.BidAmount {
		return relayerr.ErrFeesTooHigh
	}
	feeResidual := saturatingSub(saturatingSub(t.BidAmount, feeProtocol), feeRelayer)

	if err := e.Store.TransferLamports(permissionTicketKey, relayerSigner, rentOwedRelayerSigner); err != nil {
		return err
	}
	if err := e.Store.TransferLamports(permissionTicketKey, protocolFeeReceiver, feeProtocol); err != nil {
		return err
	}
	if err := e.Store.TransferLamports(permissionTicketKey, relayerFeeReceiver, feeRelayer); err != nil {
		return err
	}
	if err := e.Store.TransferLamports(permissionTicketKey, e.Config.MetadataKey(), feeResidual); err != nil {
		return err
	}

	return e.Store.CloseAccount(permissionTicketKey, relayerSigner)
}
