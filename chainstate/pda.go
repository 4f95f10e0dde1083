package chainstate

import "github.com/gagliardetto/solana-go"

// Seeds used to derive every PDA the program reads or writes, lifted
// byte-for-byte from the on-chain program's state module.
var (
	SeedMetadata            = []byte("metadata")
	SeedPermission           = []byte("permission")
	SeedSignatureAccounting = []byte("signature_accounting")
	SeedTokenExpectation    = []byte("token_expectation")
	SeedAuthority           = []byte("authority")
	SeedATA                 = []byte("ata")
	SeedConfigProtocol      = []byte("config_protocol")
	SeedExpressRelayFees    = []byte("express_relay_fees")
)

// FindMetadata derives the express-relay metadata account.
func FindMetadata(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedMetadata}, programID)
}

// FindPermissionTicket derives a permission ticket for (protocol, permission_id).
func FindPermissionTicket(programID, protocol solana.PublicKey, permissionID [32]byte) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedPermission, protocol.Bytes(), permissionID[:]}, programID)
}

// FindSignatureReplay derives the replay-guard account for a signature.
func FindSignatureReplay(programID solana.PublicKey, signature [64]byte) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedSignatureAccounting, signature[:32], signature[32:]}, programID)
}

// FindTokenExpectation derives the token-expectation ledger entry for
// (user, mint).
func FindTokenExpectation(programID, user, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedTokenExpectation, user.Bytes(), mint.Bytes()}, programID)
}

// FindAuthority derives the program's signing authority PDA, used as
// the opportunity adapter's CPI signer.
func FindAuthority(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedAuthority}, programID)
}

// FindConfigProtocol derives a protocol's fee-split override account.
func FindConfigProtocol(programID, protocol solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedConfigProtocol, protocol.Bytes()}, programID)
}

// FindExpressRelayFees derives the protocol-owned fee receiver PDA; it
// is owned by the protocol program, not by express-relay itself.
func FindExpressRelayFees(protocolProgramID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{SeedExpressRelayFees}, protocolProgramID)
}

// FindAssociatedTokenAddress wraps solana-go's ATA derivation so callers
// never need to import the associated-token-account program directly
// just to compute an address.
func FindAssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindAssociatedTokenAddress(owner, mint)
}
