// Package relay implements the Admission Controller (permission) and
// Settlement Engine (depermission) — the cross-instruction bracket that
// authorizes a searcher's bid, escrows an optional opportunity-adapter
// swap, collects the wrapped-native bid payment, and splits it between
// protocol, relayer and residual treasury.
package relay

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gagliardetto/solana-go"

	"github.com/expressrelay/relaycore/chainstate"
	"github.com/expressrelay/relaycore/config"
)

const (
	// fixedPermissionAccounts is the account count every permission
	// instruction carries ahead of the optional opportunity-adapter
	// accounts: relayer_signer, permission_ticket, protocol,
	// signature_replay, system_program, sysvar_instructions.
	fixedPermissionAccounts = 6

	// adapterFixedAccounts is the additional fixed prefix present only
	// when the opportunity adapter is active: user,
	// express_relay_authority, token_program, associated_token_program.
	adapterFixedAccounts = 4

	// depermissionFixedAccounts is the account count every depermission
	// instruction carries ahead of its trailing token-expectation
	// quadruples: relayer_signer, permission_ticket, user, protocol,
	// protocol_fee_receiver, relayer_fee_receiver, protocol_override,
	// express_relay_metadata, wsol_mint, wsol_ta_user,
	// wsol_ta_express_relay, express_relay_authority, token_program,
	// system_program.
	depermissionFixedAccounts = 14

	// tokenAccountRentLamports is the simulated rent-exempt reserve for
	// a freshly created SPL-token-shaped account (ledger entries,
	// wrapped-native scratch accounts). Real rent depends on cluster
	// parameters the simulator has no notion of; this is a fixed stand-in
	// chosen to be representative, not authoritative.
	tokenAccountRentLamports = 2_039_280

	// ticketRentLamports is the simulated rent-exempt reserve for a
	// permission ticket account.
	ticketRentLamports = 1_002_240

	// replayRentLamports is the simulated rent-exempt reserve for a
	// signature-replay guard account.
	replayRentLamports = 890_880
)

// WrappedSOLMint is the canonical wrapped-native mint address.
var WrappedSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// Engine owns one simulated chain's worth of account state, the program
// id it reasons about, and the config it reads fee splits and the
// relayer identity from.
type Engine struct {
	ProgramID                 solana.PublicKey
	Store                     *chainstate.Store
	Config                    *config.Store
	AllowedMiddlewarePrograms map[solana.PublicKey]bool
	// Clock returns the current time as a unix timestamp; overridable
	// so tests can exercise expiry deterministically.
	Clock func() uint64
}

// NewEngine wires a program id, account store and config store into a
// ready-to-use Engine with an empty middleware allowlist.
func NewEngine(programID solana.PublicKey, store *chainstate.Store, cfg *config.Store) *Engine {
	return &Engine{
		ProgramID:                 programID,
		Store:                     store,
		Config:                    cfg,
		AllowedMiddlewarePrograms: make(map[solana.PublicKey]bool),
		Clock:                     func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// AllowMiddlewareProgram whitelists a program id allowed to reference
// the relayer signer in the instructions between permission and
// depermission (REDESIGN: the original's commented-out "we don't have
// any no-ops in the bracket" assumption is replaced with an explicit,
// configurable allowlist).
func (e *Engine) AllowMiddlewareProgram(id solana.PublicKey) {
	e.AllowedMiddlewarePrograms[id] = true
}

func (e *Engine) clone() *Engine {
	return &Engine{
		ProgramID:                 e.ProgramID,
		Store:                     e.Store.Clone(),
		Config:                    e.Config,
		AllowedMiddlewarePrograms: e.AllowedMiddlewarePrograms,
		Clock:                     e.Clock,
	}
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func logRejected(op string, err error, permissionID [32]byte) {
	log.Error("express-relay: bracket step rejected", "op", op, "permission_id", permissionID, "err", err)
}
