// Package chainstate is the in-memory stand-in for the Solana runtime's
// account model: lamport balances, SPL-token balances, and the
// instructions sysvar that lets one instruction inspect its sibling
// instructions in the same transaction. There is no on-chain target to
// compile this module to, so chainstate is what "the chain" means for
// every other package in this module.
package chainstate

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

type account struct {
	owner    solana.PublicKey
	lamports uint64
	data     []byte
}

type tokenAccount struct {
	mint   solana.PublicKey
	owner  solana.PublicKey
	amount uint64
}

// Store holds every account (generic, lamport + data) and SPL-token
// account (mint + owner + amount) the simulated chain knows about. A
// Store is never mutated concurrently by design: relay.Engine.RunBracket
// clones it before running a bracket and only swaps the clone in on
// success, reproducing the "no partial failure" execution model without
// a real ledger underneath.
type Store struct {
	accounts map[solana.PublicKey]*account
	tokens   map[solana.PublicKey]*tokenAccount
}

// NewStore returns an empty account store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[solana.PublicKey]*account),
		tokens:   make(map[solana.PublicKey]*tokenAccount),
	}
}

// Clone deep-copies the store so a bracket's writes can be discarded
// wholesale on failure.
func (s *Store) Clone() *Store {
	c := NewStore()
	for k, v := range s.accounts {
		cp := *v
		cp.data = append([]byte(nil), v.data...)
		c.accounts[k] = &cp
	}
	for k, v := range s.tokens {
		cp := *v
		c.tokens[k] = &cp
	}
	return c
}

// Exists reports whether key names either a generic account or a
// token account.
func (s *Store) Exists(key solana.PublicKey) bool {
	if _, ok := s.accounts[key]; ok {
		return true
	}
	_, ok := s.tokens[key]
	return ok
}

// CreateAccount models the system program's create_account followed by
// an owner assignment to programID: it fails if key is already in use,
// mirroring Anchor's #[account(init)] constraint.
func (s *Store) CreateAccount(key, owner solana.PublicKey, lamports uint64, data []byte) error {
	if s.Exists(key) {
		return fmt.Errorf("chainstate: account %s already in use", key)
	}
	s.accounts[key] = &account{owner: owner, lamports: lamports, data: append([]byte(nil), data...)}
	return nil
}

// AccountData returns the raw account bytes for key.
func (s *Store) AccountData(key solana.PublicKey) ([]byte, error) {
	a, ok := s.accounts[key]
	if !ok {
		return nil, fmt.Errorf("chainstate: no account %s", key)
	}
	return a.data, nil
}

// Owner returns the owning program of a generic account.
func (s *Store) Owner(key solana.PublicKey) (solana.PublicKey, bool) {
	a, ok := s.accounts[key]
	if !ok {
		return solana.PublicKey{}, false
	}
	return a.owner, true
}

// Lamports returns the current lamport balance of key, 0 if unknown.
func (s *Store) Lamports(key solana.PublicKey) uint64 {
	if a, ok := s.accounts[key]; ok {
		return a.lamports
	}
	return 0
}

// CloseAccount moves key's entire lamport balance to dest and removes
// the account, mirroring Anchor's #[account(close = dest)].
func (s *Store) CloseAccount(key, dest solana.PublicKey) error {
	a, ok := s.accounts[key]
	if !ok {
		return fmt.Errorf("chainstate: no account %s to close", key)
	}
	s.creditLamports(dest, a.lamports)
	delete(s.accounts, key)
	return nil
}

func (s *Store) creditLamports(key solana.PublicKey, amount uint64) {
	a, ok := s.accounts[key]
	if !ok {
		a = &account{owner: solana.SystemProgramID}
		s.accounts[key] = a
	}
	a.lamports += amount
}

// TransferLamports moves amount lamports from one account to another,
// failing on insufficient balance rather than wrapping.
func (s *Store) TransferLamports(from, to solana.PublicKey, amount uint64) error {
	a, ok := s.accounts[from]
	if !ok || a.lamports < amount {
		return fmt.Errorf("chainstate: insufficient lamports in %s", from)
	}
	a.lamports -= amount
	s.creditLamports(to, amount)
	return nil
}

// SeedLamports funds key with amount lamports without going through a
// transfer, for test setup of a bracket's starting world.
func (s *Store) SeedLamports(key solana.PublicKey, amount uint64) {
	if a, ok := s.accounts[key]; ok {
		a.lamports += amount
		return
	}
	s.accounts[key] = &account{owner: solana.SystemProgramID, lamports: amount}
}

// CreateTokenAccount models token::initialize_account / the associated
// token program's create instruction.
func (s *Store) CreateTokenAccount(key, mint, owner solana.PublicKey) error {
	if s.Exists(key) {
		return fmt.Errorf("chainstate: account %s already in use", key)
	}
	s.tokens[key] = &tokenAccount{mint: mint, owner: owner}
	return nil
}

// SeedTokenAccount seeds a token account directly, for test setup.
func (s *Store) SeedTokenAccount(key, mint, owner solana.PublicKey, amount uint64) {
	s.tokens[key] = &tokenAccount{mint: mint, owner: owner, amount: amount}
}

// TokenAccount returns a token account's fields; ok is false if key is
// not a known token account.
func (s *Store) TokenAccount(key solana.PublicKey) (mint, owner solana.PublicKey, amount uint64, ok bool) {
	t, exists := s.tokens[key]
	if !exists {
		return
	}
	return t.mint, t.owner, t.amount, true
}

// TransferTokens moves amount from one SPL-token account to another,
// mirroring the token program's checked transfer.
func (s *Store) TransferTokens(from, to solana.PublicKey, amount uint64) error {
	f, ok := s.tokens[from]
	if !ok || f.amount < amount {
		return fmt.Errorf("chainstate: insufficient token balance in %s", from)
	}
	t, ok := s.tokens[to]
	if !ok {
		return fmt.Errorf("chainstate: no token account %s", to)
	}
	f.amount -= amount
	t.amount += amount
	return nil
}
