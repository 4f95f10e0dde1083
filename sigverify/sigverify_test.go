package sigverify

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/expressrelay/relaycore/relayerr"
)

func TestVerifyPrecompileRoundTrip(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	msg := []byte("canonical message bytes")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)
	var sigBytes [64]byte
	copy(sigBytes[:], sig[:])
	pubkey := [32]byte(signer.PublicKey())

	ix := BuildPrecompileInstruction(pubkey, msg, sigBytes)
	require.NoError(t, VerifyPrecompile(ix, pubkey, msg, sigBytes))
}

func TestVerifyPrecompileRejectsTamperedMessage(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	msg := []byte("canonical message bytes")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)
	var sigBytes [64]byte
	copy(sigBytes[:], sig[:])
	pubkey := [32]byte(signer.PublicKey())

	ix := BuildPrecompileInstruction(pubkey, msg, sigBytes)
	err = VerifyPrecompile(ix, pubkey, []byte("a different message"), sigBytes)
	require.ErrorIs(t, err, relayerr.ErrSignatureVerificationFailed)
}

func TestVerifyPrecompileRejectsWrongSigner(t *testing.T) {
	signer := solana.NewWallet().PrivateKey
	other := solana.NewWallet().PrivateKey
	msg := []byte("canonical message bytes")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)
	var sigBytes [64]byte
	copy(sigBytes[:], sig[:])

	ix := BuildPrecompileInstruction([32]byte(signer.PublicKey()), msg, sigBytes)
	err = VerifyPrecompile(ix, [32]byte(other.PublicKey()), msg, sigBytes)
	require.ErrorIs(t, err, relayerr.ErrSignatureVerificationFailed)
}

func TestVerifyExpiry(t *testing.T) {
	require.NoError(t, VerifyExpiry(100, 100))
	require.NoError(t, VerifyExpiry(99, 100))
	require.ErrorIs(t, VerifyExpiry(101, 100), relayerr.ErrSignatureExpired)
}
