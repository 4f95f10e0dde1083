package message

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestBuildIsDeterministic(t *testing.T) {
	protocol := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	permissionID := [32]byte{1, 2, 3}

	a := Build(protocol, permissionID, user, 100, 200, nil)
	b := Build(protocol, permissionID, user, 100, 200, nil)
	require.Equal(t, a, b)
	require.Equal(t, Digest(a), Digest(b))
}

func TestBuildAdapterOrderingIsBuyThenSell(t *testing.T) {
	protocol := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	buyMint := solana.NewWallet().PublicKey()
	sellMint := solana.NewWallet().PublicKey()

	withAdapter := Build(protocol, [32]byte{}, user, 1, 2, &Adapter{
		Buy:  []TokenAmount{{Mint: buyMint, Amount: 7}},
		Sell: []TokenAmount{{Mint: sellMint, Amount: 4}},
	})

	prefixLen := 32 + 32 + 32 + 8 + 8
	require.Equal(t, byte(1), withAdapter[prefixLen], "n_buy")
	require.Equal(t, byte(1), withAdapter[prefixLen+1], "n_sell")
	require.Equal(t, buyMint.Bytes(), withAdapter[prefixLen+2:prefixLen+2+32])
}

func TestBuildDiffersWithoutAdapter(t *testing.T) {
	protocol := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	noAdapter := Build(protocol, [32]byte{}, user, 1, 2, nil)
	withAdapter := Build(protocol, [32]byte{}, user, 1, 2, &Adapter{})
	require.NotEqual(t, noAdapter, withAdapter)
}
