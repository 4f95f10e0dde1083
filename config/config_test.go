package config

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/expressrelay/relaycore/relayerr"
)

func newInitializedStore(t *testing.T) (*Store, solana.PrivateKey) {
	t.Helper()
	admin := solana.NewWallet().PrivateKey
	s := NewStore(solana.NewWallet().PublicKey())
	require.NoError(t, s.Initialize(admin.PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 2_000, 1_000))
	return s, admin
}

func TestInitializeRejectsOversizedSplit(t *testing.T) {
	s := NewStore(solana.NewWallet().PublicKey())
	err := s.Initialize(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), FeeSplitPrecision+1, 0)
	require.ErrorIs(t, err, relayerr.ErrInvalidFeeSplits)
}

func TestSetSplitsRequiresAdmin(t *testing.T) {
	s, _ := newInitializedStore(t)
	intruder := solana.NewWallet().PublicKey()
	err := s.SetSplits(intruder, 100, 100)
	require.ErrorIs(t, err, relayerr.ErrUnauthorized)
}

func TestSetSplitsByAdminSucceeds(t *testing.T) {
	s, admin := newInitializedStore(t)
	require.NoError(t, s.SetSplits(admin.PublicKey(), 3_000, 500))
	def, relayer := s.Splits()
	require.Equal(t, uint64(3_000), def)
	require.Equal(t, uint64(500), relayer)
}

func TestSetProtocolSplitOverridesDefault(t *testing.T) {
	s, admin := newInitializedStore(t)
	protocol := solana.NewWallet().PublicKey()
	_, ok := s.ProtocolSplit(protocol)
	require.False(t, ok)

	require.NoError(t, s.SetProtocolSplit(admin.PublicKey(), protocol, 500))
	split, ok := s.ProtocolSplit(protocol)
	require.True(t, ok)
	require.Equal(t, uint64(500), split)
}

func TestSetRelayerRequiresAdmin(t *testing.T) {
	s, _ := newInitializedStore(t)
	err := s.SetRelayer(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.ErrorIs(t, err, relayerr.ErrUnauthorized)
}
