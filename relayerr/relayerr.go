// Package relayerr defines the sentinel error taxonomy shared by the
// permission/depermission state machine. Callers compare with errors.Is;
// wrapping with fmt.Errorf("...: %w", err) is expected at every call site
// that adds context, the same propagation idiom the rest of this module
// uses throughout config, ledger, sigverify and relay.
package relayerr

import "errors"

var (
	// ErrInvalidFeeSplits is returned when a requested split exceeds
	// config.FeeSplitPrecision.
	ErrInvalidFeeSplits = errors.New("express-relay: invalid fee splits")

	// ErrSignatureExpired is returned when valid_until has elapsed.
	ErrSignatureExpired = errors.New("express-relay: signature expired")

	// ErrSignatureVerificationFailed is returned when the adjacent
	// instruction is not a correctly framed Ed25519 precompile
	// verification of the expected (pubkey, message, signature).
	ErrSignatureVerificationFailed = errors.New("express-relay: signature verification failed")

	// ErrSignatureReplay is returned when a signature's replay-guard PDA
	// already exists.
	ErrSignatureReplay = errors.New("express-relay: signature already used")

	// ErrPermissioningOutOfOrder is returned for every structural
	// violation of the permission/depermission bracket: wrong index,
	// mismatched trailing instruction, a middle instruction naming the
	// relayer signer outside the allowed set, or a token-account count
	// mismatch between the two instructions.
	ErrPermissioningOutOfOrder = errors.New("express-relay: permissioning out of order")

	// ErrTokenExpectationNotMet is returned when a relayer ATA's balance
	// at settlement is below its recorded expectation.
	ErrTokenExpectationNotMet = errors.New("express-relay: token expectation not met")

	// ErrBidNotMet is returned when, after ledger and wsol settlement,
	// the permission ticket does not hold opening_balance + bid_amount.
	ErrBidNotMet = errors.New("express-relay: bid amount not met")

	// ErrFeesTooHigh is returned when the computed fee split would pay
	// out more than the bid amount.
	ErrFeesTooHigh = errors.New("express-relay: fees too high")

	// ErrArithmeticOverflow mirrors the original program's checked-math
	// failures (InvalidNumericConversion): any subtraction or
	// conversion that would underflow/overflow is a programming error,
	// not a recoverable user mistake.
	ErrArithmeticOverflow = errors.New("express-relay: invalid numeric conversion")

	// ErrUnauthorized is returned by config.Store admin-only operations
	// when the caller does not match the stored admin key.
	ErrUnauthorized = errors.New("express-relay: unauthorized")

	// ErrInvariantViolation covers the remaining internal consistency
	// checks the original program enforces with bare assert_eq!/assert!
	// (PDA/account-identity mismatches that have no dedicated error kind
	// in the on-chain error enum because a well-formed client can never
	// trigger them).
	ErrInvariantViolation = errors.New("express-relay: structural invariant violation")
)
