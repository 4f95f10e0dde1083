// Command expressrelayd is a demo harness: it wires a config.Store and
// relay.Engine together, converts instructions built with the real
// solana-go token and associated-token-account builders into the
// simulator's instruction type (the converted instructions are not
// added to the bracket), assembles one bracket transaction without an
// opportunity adapter, runs it through the simulated chain, and prints
// the permission ticket key and the relayer fee receiver's lamport
// balance. It exercises the permission/depermission path end to end
// without a live validator; the opportunity-adapter path is not run.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/expressrelay/relaycore/chainstate"
	"github.com/expressrelay/relaycore/config"
	"github.com/expressrelay/relaycore/relay"
	"github.com/expressrelay/relaycore/service/svmutil"
)

// demoConfig is the on-disk shape of the harness's YAML config; it plays
// the same role a relayer operator's config.yaml plays for the real
// auction server.
type demoConfig struct {
	ProgramID            string  `yaml:"program_id"`
	SplitProtocolDefault uint64  `yaml:"split_protocol_default"`
	SplitRelayer         uint64  `yaml:"split_relayer"`
	BidAmountSOL         float64 `yaml:"bid_amount_sol"`
}

func loadConfig(path string) (*demoConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg demoConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to a demo config.yaml; defaults to built-in values")
	flag.Parse()

	cfg := &demoConfig{
		ProgramID:            solana.NewWallet().PublicKey().String(),
		SplitProtocolDefault: 2_000,
		SplitRelayer:         1_000,
		BidAmountSOL:         0.01,
	}
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			log.Error("load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	programID := solana.MustPublicKeyFromBase58(cfg.ProgramID)
	admin := solana.NewWallet().PrivateKey
	relayerSigner := solana.NewWallet().PrivateKey
	relayerFeeReceiver := solana.NewWallet().PublicKey()
	protocol := solana.NewWallet().PublicKey()
	protocolFeeReceiver, _, err := chainstate.FindExpressRelayFees(protocol)
	if err != nil {
		log.Error("derive protocol fee receiver", "err", err)
		os.Exit(1)
	}
	user := solana.NewWallet().PrivateKey
	mint := solana.NewWallet().PublicKey()

	cfgStore := config.NewStore(solana.NewWallet().PublicKey())
	if err := cfgStore.Initialize(admin.PublicKey(), relayerSigner.PublicKey(), relayerFeeReceiver, cfg.SplitProtocolDefault, cfg.SplitRelayer); err != nil {
		log.Error("initialize config", "err", err)
		os.Exit(1)
	}

	store := chainstate.NewStore()
	engine := relay.NewEngine(programID, store, cfgStore)

	userTA, _, err := chainstate.FindAssociatedTokenAddress(user.PublicKey(), mint)
	if err != nil {
		log.Error("derive user ATA", "err", err)
		os.Exit(1)
	}
	store.SeedTokenAccount(userTA, mint, user.PublicKey(), 50_000)

	const lamportsPerSOL = 1_000_000_000
	wsolTAUser := solana.NewWallet().PublicKey()
	wsolTAExpressRelay := solana.NewWallet().PublicKey()
	bidLamports := decimal.NewFromFloat(cfg.BidAmountSOL).Mul(decimal.NewFromInt(lamportsPerSOL)).BigInt().Uint64()
	store.SeedLamports(wsolTAUser, bidLamports+10_000_000)

	permissionID := svmutil.NewPermissionID()

	// createATA demonstrates converting a real solana-go instruction
	// builder into the simulator's own instruction type; the ATA itself
	// is unused on this path since userTA is pre-seeded above, but a
	// live relayer would run exactly this step for a first-time user.
	createATA := associatedtokenaccount.NewCreateInstruction(relayerSigner.PublicKey(), user.PublicKey(), mint).Build()
	if _, err := chainstate.FromSolanaInstruction(createATA); err != nil {
		log.Error("convert create-ATA instruction", "err", err)
		os.Exit(1)
	}

	transferIx := token.NewTransferInstruction(1, userTA, userTA, user.PublicKey(), []solana.PublicKey{}).Build()
	if _, err := chainstate.FromSolanaInstruction(transferIx); err != nil {
		log.Error("convert transfer instruction", "err", err)
		os.Exit(1)
	}

	built, err := relay.BuildBracket(relay.BracketSpec{
		ProgramID:            programID,
		Protocol:             protocol,
		RelayerSigner:        relayerSigner.PublicKey(),
		ProtocolFeeReceiver:  protocolFeeReceiver,
		RelayerFeeReceiver:   relayerFeeReceiver,
		ProtocolOverride:     solana.NewWallet().PublicKey(),
		ExpressRelayMetadata: cfgStore.MetadataKey(),
		User:                 user.PublicKey(),
		WSolTAUser:           wsolTAUser,
		WSolTAExpressRelay:   wsolTAExpressRelay,
		PermissionID:         permissionID,
		BidAmount:            bidLamports,
		ValidUntil:           ^uint64(0),
		Signer:               user,
	})
	if err != nil {
		log.Error("build bracket", "err", err)
		os.Exit(1)
	}

	if err := engine.RunBracket(&relay.Bracket{Tx: built.Tx}); err != nil {
		log.Error("run bracket", "err", err)
		os.Exit(1)
	}

	fmt.Printf("bracket settled: ticket=%s relayer_fee_receiver_lamports=%d\n",
		built.PermissionTicketKey, engine.Store.Lamports(relayerFeeReceiver))
}
