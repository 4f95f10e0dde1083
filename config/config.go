// Package config implements the Config Layer: the express-relay
// metadata (admin, relayer signer/fee receiver, default fee split) and
// the per-protocol fee-split overrides the settlement engine consults on
// every bracket.
package config

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/expressrelay/relaycore/relayerr"
)

// FeeSplitPrecision is the fixed-point denominator every split is
// expressed against; a split of FeeSplitPrecision means 100%.
const FeeSplitPrecision = 10_000

// ValidateSplit rejects any split above FeeSplitPrecision.
func ValidateSplit(split uint64) error {
	if split > FeeSplitPrecision {
		return relayerr.ErrInvalidFeeSplits
	}
	return nil
}

// Metadata mirrors the on-chain ExpressRelayMetadata account.
type Metadata struct {
	Admin                solana.PublicKey
	RelayerSigner        solana.PublicKey
	RelayerFeeReceiver   solana.PublicKey
	SplitProtocolDefault uint64
	SplitRelayer         uint64
}

// Store holds the singleton Metadata plus every protocol's fee-split
// override, guarded by a read/write mutex: writes come from the rare
// admin instructions (initialize, set_relayer, set_splits,
// set_protocol_split), reads happen on every single settlement.
type Store struct {
	mu        sync.RWMutex
	key       solana.PublicKey
	metadata  *Metadata
	overrides map[solana.PublicKey]uint64
}

// NewStore returns an uninitialized config store whose own account
// address (metadataKey) doubles as the residual-fee treasury
// destination, matching the original program's leftover-split wiring.
func NewStore(metadataKey solana.PublicKey) *Store {
	return &Store{key: metadataKey, overrides: make(map[solana.PublicKey]uint64)}
}

// MetadataKey returns the config account's own address.
func (s *Store) MetadataKey() solana.PublicKey { return s.key }

// Initialize sets the admin, relayer and default splits exactly once.
func (s *Store) Initialize(admin, relayerSigner, relayerFeeReceiver solana.PublicKey, splitProtocolDefault, splitRelayer uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metadata != nil {
		return fmt.Errorf("config: already initialized")
	}
	if err := ValidateSplit(splitProtocolDefault); err != nil {
		return err
	}
	if err := ValidateSplit(splitRelayer); err != nil {
		return err
	}
	s.metadata = &Metadata{
		Admin:                admin,
		RelayerSigner:        relayerSigner,
		RelayerFeeReceiver:   relayerFeeReceiver,
		SplitProtocolDefault: splitProtocolDefault,
		SplitRelayer:         splitRelayer,
	}
	return nil
}

func (s *Store) requireAdmin(caller solana.PublicKey) error {
	if s.metadata == nil || caller != s.metadata.Admin {
		return relayerr.ErrUnauthorized
	}
	return nil
}

// SetRelayer updates the relayer signer and fee receiver (admin-only).
func (s *Store) SetRelayer(caller, newSigner, newFeeReceiver solana.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	s.metadata.RelayerSigner = newSigner
	s.metadata.RelayerFeeReceiver = newFeeReceiver
	return nil
}

// SetSplits updates the default protocol split and the relayer split
// (admin-only).
func (s *Store) SetSplits(caller solana.PublicKey, splitProtocolDefault, splitRelayer uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := ValidateSplit(splitProtocolDefault); err != nil {
		return err
	}
	if err := ValidateSplit(splitRelayer); err != nil {
		return err
	}
	s.metadata.SplitProtocolDefault = splitProtocolDefault
	s.metadata.SplitRelayer = splitRelayer
	return nil
}

// SetProtocolSplit installs or updates a single protocol's split
// override (admin-only).
func (s *Store) SetProtocolSplit(caller, protocol solana.PublicKey, split uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := ValidateSplit(split); err != nil {
		return err
	}
	s.overrides[protocol] = split
	return nil
}

// Splits returns the current default protocol split and relayer split.
// Both are zero if the store has not been initialized yet.
func (s *Store) Splits() (splitProtocolDefault, splitRelayer uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.metadata == nil {
		return 0, 0
	}
	return s.metadata.SplitProtocolDefault, s.metadata.SplitRelayer
}

// ProtocolSplit returns a protocol's override split, if one is set.
func (s *Store) ProtocolSplit(protocol solana.PublicKey) (split uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	split, ok = s.overrides[protocol]
	return
}

// RelayerAccounts returns the configured relayer signer and fee receiver.
// Both are the zero public key if the store has not been initialized yet.
func (s *Store) RelayerAccounts() (signer, feeReceiver solana.PublicKey) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.metadata == nil {
		return solana.PublicKey{}, solana.PublicKey{}
	}
	return s.metadata.RelayerSigner, s.metadata.RelayerFeeReceiver
}

// Snapshot returns a copy of the current metadata, or the zero value if
// the store has not been initialized yet.
func (s *Store) Snapshot() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.metadata == nil {
		return Metadata{}
	}
	return *s.metadata
}
