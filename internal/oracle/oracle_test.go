package oracle

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "metrina/pkg/domain-errors"
)

var (
	owner    = common.HexToAddress("0xAA")
	intruder = common.HexToAddress("0xBB")
)

func TestSetPriceOwnerOnly(t *testing.T) {
	ctx := context.Background()
	o := New(owner)

	err := o.SetPrice(ctx, intruder, "MTR", "DAI", big.NewInt(725), 2)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	require.NoError(t, o.SetPrice(ctx, owner, "MTR", "DAI", big.NewInt(725), 2))
	price, err := o.GetPrice(ctx, "MTR", "DAI")
	require.NoError(t, err)
	assert.Equal(t, int64(725), price.Numerator.Int64())
	assert.Equal(t, uint8(2), price.Decimals)
}

func TestSetPriceValidation(t *testing.T) {
	ctx := context.Background()
	o := New(owner)

	err := o.SetPrice(ctx, owner, "MTR", "DAI", big.NewInt(1), MaxPriceDecimals+1)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidArgument, dErrors.CodeOf(err))

	err = o.SetPrice(ctx, owner, "MTR", "DAI", big.NewInt(-1), 0)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidArgument, dErrors.CodeOf(err))
}

func TestGetPriceUnavailable(t *testing.T) {
	ctx := context.Background()
	o := New(owner)

	_, err := o.GetPrice(ctx, "MTR", "DAI")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodePriceUnavailable, dErrors.CodeOf(err))

	// Pairs are directed: setting MTR/DAI says nothing about DAI/MTR.
	require.NoError(t, o.SetPrice(ctx, owner, "MTR", "DAI", big.NewInt(1), 0))
	_, err = o.GetPrice(ctx, "DAI", "MTR")
	assert.Equal(t, dErrors.CodePriceUnavailable, dErrors.CodeOf(err))
}

func TestOverwritePrice(t *testing.T) {
	ctx := context.Background()
	o := New(owner)
	require.NoError(t, o.SetPrice(ctx, owner, "MTR", "DAI", big.NewInt(1), 7))
	require.NoError(t, o.SetPrice(ctx, owner, "MTR", "DAI", big.NewInt(725), 2))

	price, err := o.GetPrice(ctx, "MTR", "DAI")
	require.NoError(t, err)
	assert.Equal(t, int64(725), price.Numerator.Int64())
	assert.Equal(t, uint8(2), price.Decimals)
}

func TestConvert(t *testing.T) {
	// 25 units at 7.25 -> 181 (truncated toward zero).
	got, err := Convert(big.NewInt(25), Price{Numerator: big.NewInt(725), Decimals: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(181), got.Int64())

	got, err = Convert(big.NewInt(0), Price{Numerator: big.NewInt(725), Decimals: 2})
	require.NoError(t, err)
	assert.Zero(t, got.Sign())

	_, err = Convert(big.NewInt(-1), Price{Numerator: big.NewInt(1), Decimals: 0})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidArgument, dErrors.CodeOf(err))
}
