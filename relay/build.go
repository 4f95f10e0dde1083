package relay

import (
	"github.com/gagliardetto/solana-go"

	"github.com/expressrelay/relaycore/chainstate"
	"github.com/expressrelay/relaycore/message"
	"github.com/expressrelay/relaycore/sigverify"
	"github.com/expressrelay/relaycore/wire"
)

// AdapterSpec describes one opportunity-adapter leg for BuildBracket: a
// mint plus the user's associated token account, paired with the signed
// sell or buy amount carried in PermissionArgs.
type AdapterSpec struct {
	Mint   solana.PublicKey
	UserTA solana.PublicKey
	Amount uint64
}

// BracketSpec is the full set of inputs needed to assemble a
// structurally valid permission/…/depermission transaction.
type BracketSpec struct {
	ProgramID          solana.PublicKey
	Protocol           solana.PublicKey
	RelayerSigner      solana.PublicKey
	ProtocolFeeReceiver solana.PublicKey
	RelayerFeeReceiver solana.PublicKey
	ProtocolOverride   solana.PublicKey
	ExpressRelayMetadata solana.PublicKey
	User               solana.PublicKey
	WSolTAUser         solana.PublicKey
	WSolTAExpressRelay solana.PublicKey
	PermissionID       [32]byte
	BidAmount          uint64
	ValidUntil         uint64
	Signer             solana.PrivateKey
	Sell               []AdapterSpec
	Buy                []AdapterSpec
	// Middleware are additional instructions placed between the
	// Ed25519 precompile slot and the trailing depermission
	// instruction, e.g. the protocol's own economic action.
	Middleware []chainstate.Instruction
}

// BuiltBracket is BuildBracket's result: the assembled transaction plus
// the derived account keys a caller needs to seed chainstate or assert
// against.
type BuiltBracket struct {
	Tx                  *chainstate.Transaction
	PermissionTicketKey solana.PublicKey
	SignatureReplayKey  solana.PublicKey
	AuthorityKey        solana.PublicKey
	RelayerATAs         []solana.PublicKey
	TokenExpectations   []solana.PublicKey
}

// BuildBracket assembles a fully-formed bracket transaction: a
// permission instruction carrying Borsh-encoded args, the Ed25519
// precompile instruction signing the canonical message, the caller's
// middleware, and a depermission instruction, with every PDA derived
// the same way the Admission Controller and Settlement Engine will
// re-derive it.
func BuildBracket(spec BracketSpec) (*BuiltBracket, error) {
	ticketKey, _, err := chainstate.FindPermissionTicket(spec.ProgramID, spec.Protocol, spec.PermissionID)
	if err != nil {
		return nil, err
	}
	authorityKey, _, err := chainstate.FindAuthority(spec.ProgramID)
	if err != nil {
		return nil, err
	}

	hasAdapter := len(spec.Sell) > 0 || len(spec.Buy) > 0
	all := append(append([]AdapterSpec{}, spec.Sell...), spec.Buy...)

	relayerATAs := make([]solana.PublicKey, len(all))
	tokenExpectations := make([]solana.PublicKey, len(all))
	sellAmounts := make([]uint64, len(spec.Sell))
	buyAmounts := make([]uint64, len(spec.Buy))
	for i, a := range spec.Sell {
		sellAmounts[i] = a.Amount
	}
	for i, a := range spec.Buy {
		buyAmounts[i] = a.Amount
	}
	for i, a := range all {
		ata, _, err := chainstate.FindAssociatedTokenAddress(spec.RelayerSigner, a.Mint)
		if err != nil {
			return nil, err
		}
		relayerATAs[i] = ata
		te, _, err := chainstate.FindTokenExpectation(spec.ProgramID, spec.User, a.Mint)
		if err != nil {
			return nil, err
		}
		tokenExpectations[i] = te
	}

	var adapterMsg *message.Adapter
	var oaaArgs *wire.OpportunityAdapterArgs
	if hasAdapter {
		adapterMsg = &message.Adapter{}
		for _, a := range spec.Buy {
			adapterMsg.Buy = append(adapterMsg.Buy, message.TokenAmount{Mint: a.Mint, Amount: a.Amount})
		}
		for _, a := range spec.Sell {
			adapterMsg.Sell = append(adapterMsg.Sell, message.TokenAmount{Mint: a.Mint, Amount: a.Amount})
		}
		oaaArgs = &wire.OpportunityAdapterArgs{SellTokens: sellAmounts, BuyTokens: buyAmounts}
	}

	msg := message.Build(spec.Protocol, spec.PermissionID, spec.User, spec.BidAmount, spec.ValidUntil, adapterMsg)
	digest := message.Digest(msg)
	sig, err := spec.Signer.Sign(digest[:])
	if err != nil {
		return nil, err
	}
	var sigBytes [64]byte
	copy(sigBytes[:], sig[:])

	replayKey, _, err := chainstate.FindSignatureReplay(spec.ProgramID, sigBytes)
	if err != nil {
		return nil, err
	}

	permArgs := wire.PermissionArgs{
		PermissionID:           spec.PermissionID,
		Signature:              sigBytes,
		ValidUntil:             spec.ValidUntil,
		BidAmount:              spec.BidAmount,
		OpportunityAdapterArgs: oaaArgs,
	}
	permData, err := wire.EncodeInstructionData("permission", permArgs)
	if err != nil {
		return nil, err
	}

	permAccounts := []chainstate.AccountMeta{
		chainstate.Meta(spec.RelayerSigner, true, false),
		chainstate.Meta(ticketKey, false, true),
		chainstate.Meta(spec.Protocol, false, false),
		chainstate.Meta(replayKey, false, true),
		chainstate.Meta(solana.SystemProgramID, false, false),
		chainstate.Meta(solana.SysVarInstructionsPubkey, false, false),
	}
	if hasAdapter {
		permAccounts = append(permAccounts,
			chainstate.Meta(spec.User, false, false),
			chainstate.Meta(authorityKey, false, false),
			chainstate.Meta(solana.TokenProgramID, false, false),
			chainstate.Meta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		)
		for i, a := range all {
			permAccounts = append(permAccounts,
				chainstate.Meta(a.Mint, false, false),
				chainstate.Meta(a.UserTA, false, true),
				chainstate.Meta(tokenExpectations[i], false, true),
				chainstate.Meta(relayerATAs[i], false, true),
			)
		}
	}

	permIx := chainstate.Instruction{ProgramID: spec.ProgramID, Accounts: permAccounts, Data: permData}
	precompileIx := sigverify.BuildPrecompileInstruction([32]byte(spec.User), digest[:], sigBytes)

	depAccounts := []chainstate.AccountMeta{
		chainstate.Meta(spec.RelayerSigner, true, false),
		chainstate.Meta(ticketKey, false, true),
		chainstate.Meta(spec.User, false, true),
		chainstate.Meta(spec.Protocol, false, false),
		chainstate.Meta(spec.ProtocolFeeReceiver, false, true),
		chainstate.Meta(spec.RelayerFeeReceiver, false, true),
		chainstate.Meta(spec.ProtocolOverride, false, false),
		chainstate.Meta(spec.ExpressRelayMetadata, false, true),
		chainstate.Meta(WrappedSOLMint, false, false),
		chainstate.Meta(spec.WSolTAUser, false, true),
		chainstate.Meta(spec.WSolTAExpressRelay, false, true),
		chainstate.Meta(authorityKey, false, false),
		chainstate.Meta(solana.TokenProgramID, false, false),
		chainstate.Meta(solana.SystemProgramID, false, false),
	}
	if hasAdapter {
		for i, a := range all {
			depAccounts = append(depAccounts,
				chainstate.Meta(a.Mint, false, false),
				chainstate.Meta(a.UserTA, false, true),
				chainstate.Meta(tokenExpectations[i], false, true),
				chainstate.Meta(relayerATAs[i], false, true),
			)
		}
	}
	depData, err := wire.EncodeInstructionData("depermission", nil)
	if err != nil {
		return nil, err
	}
	depIx := chainstate.Instruction{ProgramID: spec.ProgramID, Accounts: depAccounts, Data: depData}

	instructions := []chainstate.Instruction{permIx, precompileIx}
	instructions = append(instructions, spec.Middleware...)
	instructions = append(instructions, depIx)

	return &BuiltBracket{
		Tx:                  &chainstate.Transaction{Instructions: instructions},
		PermissionTicketKey: ticketKey,
		SignatureReplayKey:  replayKey,
		AuthorityKey:        authorityKey,
		RelayerATAs:         relayerATAs,
		TokenExpectations:   tokenExpectations,
	}, nil
}
