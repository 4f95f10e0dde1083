package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/expressrelay/relaycore/relayerr"
)

func TestComputeSellExpectation(t *testing.T) {
	post, err := ComputeSellExpectation(10_000, 4_000)
	require.NoError(t, err)
	require.Equal(t, uint64(6_000), post)
}

func TestComputeSellExpectationUnderflowIsFatal(t *testing.T) {
	_, err := ComputeSellExpectation(1_000, 4_000)
	require.ErrorIs(t, err, relayerr.ErrArithmeticOverflow)
}

func TestComputeBuyExpectation(t *testing.T) {
	require.Equal(t, uint64(7_000), ComputeBuyExpectation(7_000))
}

func TestEntryEncodeDecodeRoundTrip(t *testing.T) {
	e := Entry{BalancePostExpected: 42, SellToken: true}
	got, err := Decode(e.Encode())
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}
