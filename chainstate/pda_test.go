package chainstate

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestPDADerivationIsDeterministicAndNonZero(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	protocol := solana.NewWallet().PublicKey()
	permissionID := [32]byte{9, 9, 9}

	a, bumpA, err := FindPermissionTicket(programID, protocol, permissionID)
	require.NoError(t, err)
	b, bumpB, err := FindPermissionTicket(programID, protocol, permissionID)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, bumpA, bumpB)
	require.NotEqual(t, solana.PublicKey{}, a)
}

func TestPDADerivationVariesWithSeeds(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	protocol := solana.NewWallet().PublicKey()

	a, _, err := FindPermissionTicket(programID, protocol, [32]byte{1})
	require.NoError(t, err)
	b, _, err := FindPermissionTicket(programID, protocol, [32]byte{2})
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestFindSignatureReplaySplitsSignature(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	var sig [64]byte
	for i := range sig {
		sig[i] = byte(i)
	}
	key, _, err := FindSignatureReplay(programID, sig)
	require.NoError(t, err)
	require.NotEqual(t, solana.PublicKey{}, key)
}
