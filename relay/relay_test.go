package relay

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/expressrelay/relaycore/chainstate"
	"github.com/expressrelay/relaycore/config"
	"github.com/expressrelay/relaycore/relayerr"
)

func fixedClock(t uint64) func() uint64 {
	return func() uint64 { return t }
}

type world struct {
	engine  *Engine
	admin   solana.PrivateKey
	relayer solana.PrivateKey
	user    solana.PrivateKey
	protocol solana.PublicKey

	// lastProtocolFeeReceiver is the protocol fee receiver key picked by
	// the most recent simpleBracket call, so a test can assert the exact
	// amount settlement routed there.
	lastProtocolFeeReceiver solana.PublicKey
}

func newWorld(t *testing.T, splitProtocolDefault, splitRelayer uint64) *world {
	t.Helper()
	programID := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PrivateKey
	relayer := solana.NewWallet().PrivateKey
	user := solana.NewWallet().PrivateKey
	protocol := solana.NewWallet().PublicKey()

	metadataKey, _, err := chainstate.FindMetadata(programID)
	require.NoError(t, err)
	cfg := config.NewStore(metadataKey)
	require.NoError(t, cfg.Initialize(admin.PublicKey(), relayer.PublicKey(), solana.NewWallet().PublicKey(), splitProtocolDefault, splitRelayer))

	store := chainstate.NewStore()
	engine := NewEngine(programID, store, cfg)
	engine.Clock = fixedClock(1_000)

	return &world{engine: engine, admin: admin, relayer: relayer, user: user, protocol: protocol}
}

// simpleBracket builds a bracket with no opportunity adapter, a bid of
// bidAmount lamports, and enough wsol to pay it.
func (w *world) simpleBracket(t *testing.T, bidAmount, validUntil uint64) *BuiltBracket {
	t.Helper()
	protocolFeeReceiver, _, err := chainstate.FindExpressRelayFees(w.protocol)
	require.NoError(t, err)
	w.lastProtocolFeeReceiver = protocolFeeReceiver
	relayerSigner, relayerFeeReceiver := w.engine.Config.RelayerAccounts()
	wsolUser := solana.NewWallet().PublicKey()
	wsolExpressRelay := solana.NewWallet().PublicKey()

	b, err := BuildBracket(BracketSpec{
		ProgramID:            w.engine.ProgramID,
		Protocol:             w.protocol,
		RelayerSigner:        relayerSigner,
		ProtocolFeeReceiver:  protocolFeeReceiver,
		RelayerFeeReceiver:   relayerFeeReceiver,
		ProtocolOverride:     solana.NewWallet().PublicKey(),
		ExpressRelayMetadata: w.engine.Config.MetadataKey(),
		User:                 w.user.PublicKey(),
		WSolTAUser:           wsolUser,
		WSolTAExpressRelay:   wsolExpressRelay,
		PermissionID:         [32]byte{1, 2, 3},
		BidAmount:            bidAmount,
		ValidUntil:           validUntil,
		Signer:               w.user,
	})
	require.NoError(t, err)
	w.engine.Store.SeedLamports(wsolUser, bidAmount+1_000_000)
	return b
}

func TestBracketHappyPathNoAdapter(t *testing.T) {
	// S1: bid_amount=1_000_000, split_protocol_default=3_000,
	// split_relayer=2_000 -> fee_protocol=300_000,
	// fee_relayer=(700_000*2000)/10000=140_000, fee_residual=560_000.
	w := newWorld(t, 3_000, 2_000)
	b := w.simpleBracket(t, 1_000_000, 2_000)

	relayerSigner, relayerFeeReceiver := w.engine.Config.RelayerAccounts()
	before := w.engine.Store.Lamports(relayerSigner)
	protocolFeeReceiverBefore := w.engine.Store.Lamports(w.lastProtocolFeeReceiver)
	relayerFeeReceiverBefore := w.engine.Store.Lamports(relayerFeeReceiver)
	residualBefore := w.engine.Store.Lamports(w.engine.Config.MetadataKey())

	err := w.engine.RunBracket(&Bracket{Tx: b.Tx})
	require.NoError(t, err)

	require.False(t, w.engine.Store.Exists(b.PermissionTicketKey), "ticket must be closed")
	require.True(t, w.engine.Store.Exists(b.SignatureReplayKey), "replay guard must persist")

	after := w.engine.Store.Lamports(relayerSigner)
	require.Greater(t, after, before)

	feeProtocol := w.engine.Store.Lamports(w.lastProtocolFeeReceiver) - protocolFeeReceiverBefore
	feeRelayer := w.engine.Store.Lamports(relayerFeeReceiver) - relayerFeeReceiverBefore
	feeResidual := w.engine.Store.Lamports(w.engine.Config.MetadataKey()) - residualBefore

	require.Equal(t, uint64(300_000), feeProtocol)
	require.Equal(t, uint64(140_000), feeRelayer)
	require.Equal(t, uint64(560_000), feeResidual)
	require.Equal(t, uint64(1_000_000), feeProtocol+feeRelayer+feeResidual, "fee conservation")
}

func TestBracketSettlementUsesProtocolOverride(t *testing.T) {
	// S2: same bid and splits as S1, but with a protocol override of
	// split_protocol=5_000 -> fee_protocol=500_000, fee_relayer=100_000,
	// fee_residual=400_000.
	w := newWorld(t, 3_000, 2_000)
	require.NoError(t, w.engine.Config.SetProtocolSplit(w.admin.PublicKey(), w.protocol, 5_000))
	b := w.simpleBracket(t, 1_000_000, 2_000)

	_, relayerFeeReceiver := w.engine.Config.RelayerAccounts()
	protocolFeeReceiverBefore := w.engine.Store.Lamports(w.lastProtocolFeeReceiver)
	relayerFeeReceiverBefore := w.engine.Store.Lamports(relayerFeeReceiver)
	residualBefore := w.engine.Store.Lamports(w.engine.Config.MetadataKey())

	require.NoError(t, w.engine.RunBracket(&Bracket{Tx: b.Tx}))

	feeProtocol := w.engine.Store.Lamports(w.lastProtocolFeeReceiver) - protocolFeeReceiverBefore
	feeRelayer := w.engine.Store.Lamports(relayerFeeReceiver) - relayerFeeReceiverBefore
	feeResidual := w.engine.Store.Lamports(w.engine.Config.MetadataKey()) - residualBefore

	require.Equal(t, uint64(500_000), feeProtocol)
	require.Equal(t, uint64(100_000), feeRelayer)
	require.Equal(t, uint64(400_000), feeResidual)
}

func TestBracketRejectsSignatureReplay(t *testing.T) {
	w := newWorld(t, 2_000, 1_000)
	b := w.simpleBracket(t, 1_000_000, 2_000)

	require.NoError(t, w.engine.RunBracket(&Bracket{Tx: b.Tx}))

	// Rebuild an identical bracket (same permission id and signature)
	// against a fresh transaction — the signature replay account from
	// the first run must still block it.
	b2 := w.simpleBracket(t, 1_000_000, 2_000)
	err := w.engine.RunBracket(&Bracket{Tx: b2.Tx})
	require.ErrorIs(t, err, relayerr.ErrSignatureReplay)
}

func TestBracketRejectsExpiredSignature(t *testing.T) {
	w := newWorld(t, 2_000, 1_000)
	w.engine.Clock = fixedClock(5_000)
	b := w.simpleBracket(t, 1_000_000, 2_000) // valid_until=2_000, now=5_000

	err := w.engine.RunBracket(&Bracket{Tx: b.Tx})
	require.ErrorIs(t, err, relayerr.ErrSignatureExpired)
}

func TestBracketRejectsMismatchedDepermission(t *testing.T) {
	w := newWorld(t, 2_000, 1_000)
	b := w.simpleBracket(t, 1_000_000, 2_000)

	// Tamper with the trailing depermission's permission_ticket account
	// reference.
	last := len(b.Tx.Instructions) - 1
	b.Tx.Instructions[last].Accounts[1].Key = solana.NewWallet().PublicKey()

	err := w.engine.RunBracket(&Bracket{Tx: b.Tx})
	require.ErrorIs(t, err, relayerr.ErrPermissioningOutOfOrder)
}

func TestBracketRejectsMiddlewareReferencingRelayerSigner(t *testing.T) {
	w := newWorld(t, 2_000, 1_000)
	b := w.simpleBracket(t, 1_000_000, 2_000)

	relayerSigner, _ := w.engine.Config.RelayerAccounts()
	intruder := chainstate.Instruction{
		ProgramID: solana.NewWallet().PublicKey(),
		Accounts:  []chainstate.AccountMeta{chainstate.Meta(relayerSigner, false, false)},
	}
	last := len(b.Tx.Instructions) - 1
	instrs := append([]chainstate.Instruction{}, b.Tx.Instructions[:last]...)
	instrs = append(instrs, intruder, b.Tx.Instructions[last])
	b.Tx.Instructions = instrs

	err := w.engine.RunBracket(&Bracket{Tx: b.Tx})
	require.ErrorIs(t, err, relayerr.ErrPermissioningOutOfOrder)
}

func TestBracketAllowsWhitelistedMiddleware(t *testing.T) {
	w := newWorld(t, 2_000, 1_000)
	b := w.simpleBracket(t, 1_000_000, 2_000)

	relayerSigner, _ := w.engine.Config.RelayerAccounts()
	middlewareProgram := solana.NewWallet().PublicKey()
	w.engine.AllowMiddlewareProgram(middlewareProgram)

	benign := chainstate.Instruction{
		ProgramID: middlewareProgram,
		Accounts:  []chainstate.AccountMeta{chainstate.Meta(relayerSigner, false, false)},
	}
	last := len(b.Tx.Instructions) - 1
	instrs := append([]chainstate.Instruction{}, b.Tx.Instructions[:last]...)
	instrs = append(instrs, benign, b.Tx.Instructions[last])
	b.Tx.Instructions = instrs

	require.NoError(t, w.engine.RunBracket(&Bracket{Tx: b.Tx}))
}

func TestBracketAbortsWhollyOnFailure(t *testing.T) {
	w := newWorld(t, 2_000, 1_000)
	b := w.simpleBracket(t, 1_000_000, 2_000)

	last := len(b.Tx.Instructions) - 1
	b.Tx.Instructions[last].Accounts[1].Key = solana.NewWallet().PublicKey()

	before := w.engine.Store.Exists(b.SignatureReplayKey)
	require.False(t, before)

	err := w.engine.RunBracket(&Bracket{Tx: b.Tx})
	require.Error(t, err)
	require.False(t, w.engine.Store.Exists(b.SignatureReplayKey), "a rejected bracket must leave no trace")
}

func TestBracketWithOpportunityAdapter(t *testing.T) {
	w := newWorld(t, 1_000, 5_000) // 10% protocol, 50% of remainder to relayer

	sellMint := solana.NewWallet().PublicKey()
	buyMint := solana.NewWallet().PublicKey()
	userSellTA := solana.NewWallet().PublicKey()
	userBuyTA := solana.NewWallet().PublicKey()

	w.engine.Store.SeedTokenAccount(userSellTA, sellMint, w.user.PublicKey(), 10_000)
	w.engine.Store.SeedTokenAccount(userBuyTA, buyMint, w.user.PublicKey(), 0)

	relayerSigner, relayerFeeReceiver := w.engine.Config.RelayerAccounts()
	protocolFeeReceiver, _, err := chainstate.FindExpressRelayFees(w.protocol)
	require.NoError(t, err)
	wsolUser := solana.NewWallet().PublicKey()
	wsolExpressRelay := solana.NewWallet().PublicKey()

	b, err := BuildBracket(BracketSpec{
		ProgramID:            w.engine.ProgramID,
		Protocol:             w.protocol,
		RelayerSigner:        relayerSigner,
		ProtocolFeeReceiver:  protocolFeeReceiver,
		RelayerFeeReceiver:   relayerFeeReceiver,
		ProtocolOverride:     solana.NewWallet().PublicKey(),
		ExpressRelayMetadata: w.engine.Config.MetadataKey(),
		User:                 w.user.PublicKey(),
		WSolTAUser:           wsolUser,
		WSolTAExpressRelay:   wsolExpressRelay,
		PermissionID:         [32]byte{9, 9, 9},
		BidAmount:            500_000,
		ValidUntil:           2_000,
		Signer:               w.user,
		Sell: []AdapterSpec{
			{Mint: sellMint, UserTA: userSellTA, Amount: 4_000},
		},
		Buy: []AdapterSpec{
			{Mint: buyMint, UserTA: userBuyTA, Amount: 7_000},
		},
	})
	require.NoError(t, err)
	w.engine.Store.SeedLamports(wsolUser, 500_000+1_000_000)

	// Embedded protocol call: the admission controller already escrowed
	// the sell tokens into relayerATAs[0] and pre-created relayerATAs[1];
	// this simulates the protocol delivering the promised buy amount into
	// the latter. The escrowed sell tokens are left in relayerATAs[0].
	executed := &Bracket{Tx: b.Tx, Execute: func(store *chainstate.Store) error {
		return creditBuyLeg(store, b.RelayerATAs[1], 7_000)
	}}

	require.NoError(t, w.engine.RunBracket(executed))

	_, _, userSellBalance, ok := w.engine.Store.TokenAccount(userSellTA)
	require.True(t, ok)
	require.Equal(t, uint64(6_000), userSellBalance, "user gets back present(10000) - signed(4000)")

	_, _, userBuyBalance, ok := w.engine.Store.TokenAccount(userBuyTA)
	require.True(t, ok)
	require.Equal(t, uint64(7_000), userBuyBalance)

	require.False(t, w.engine.Store.Exists(b.TokenExpectations[0]))
	require.False(t, w.engine.Store.Exists(b.TokenExpectations[1]))
}

func creditBuyLeg(store *chainstate.Store, relayerATA solana.PublicKey, amount uint64) error {
	mint, owner, existing, ok := store.TokenAccount(relayerATA)
	if !ok {
		return nil
	}
	store.SeedTokenAccount(relayerATA, mint, owner, existing+amount)
	return nil
}

func TestBracketRejectsUnmetTokenExpectation(t *testing.T) {
	w := newWorld(t, 1_000, 5_000)

	buyMint := solana.NewWallet().PublicKey()
	userBuyTA := solana.NewWallet().PublicKey()
	w.engine.Store.SeedTokenAccount(userBuyTA, buyMint, w.user.PublicKey(), 0)

	relayerSigner, relayerFeeReceiver := w.engine.Config.RelayerAccounts()
	protocolFeeReceiver, _, err := chainstate.FindExpressRelayFees(w.protocol)
	require.NoError(t, err)
	wsolUser := solana.NewWallet().PublicKey()
	wsolExpressRelay := solana.NewWallet().PublicKey()

	b, err := BuildBracket(BracketSpec{
		ProgramID:            w.engine.ProgramID,
		Protocol:             w.protocol,
		RelayerSigner:        relayerSigner,
		ProtocolFeeReceiver:  protocolFeeReceiver,
		RelayerFeeReceiver:   relayerFeeReceiver,
		ProtocolOverride:     solana.NewWallet().PublicKey(),
		ExpressRelayMetadata: w.engine.Config.MetadataKey(),
		User:                 w.user.PublicKey(),
		WSolTAUser:           wsolUser,
		WSolTAExpressRelay:   wsolExpressRelay,
		PermissionID:         [32]byte{7, 7, 7},
		BidAmount:            500_000,
		ValidUntil:           2_000,
		Signer:               w.user,
		Buy: []AdapterSpec{
			{Mint: buyMint, UserTA: userBuyTA, Amount: 7_000},
		},
	})
	require.NoError(t, err)
	w.engine.Store.SeedLamports(wsolUser, 500_000+1_000_000)

	// The embedded protocol call delivers one token unit short of the
	// signed buy amount, so settlement must refuse to pay out — S6.
	executed := &Bracket{Tx: b.Tx, Execute: func(store *chainstate.Store) error {
		return creditBuyLeg(store, b.RelayerATAs[0], 6_999)
	}}
	err = w.engine.RunBracket(executed)
	require.ErrorIs(t, err, relayerr.ErrTokenExpectationNotMet)

	_, _, userBuyBalance, ok := w.engine.Store.TokenAccount(userBuyTA)
	require.True(t, ok)
	require.Equal(t, uint64(0), userBuyBalance, "failed settlement must not move any tokens")
}
