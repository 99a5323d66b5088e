// Package oracle stores directed price pairs written by a single owner.
// A price expresses how many quote-currency units one asset unit is worth,
// as (numerator, decimals): value = numerator / 10^decimals.
package oracle

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	dErrors "metrina/pkg/domain-errors"
)

// MaxPriceDecimals caps the decimal scale a price may carry. Anything finer
// cannot be represented by the integer conversions downstream.
const MaxPriceDecimals = 18

// Price is a directed quote for one (base, quote) symbol pair.
type Price struct {
	Numerator *big.Int
	Decimals  uint8
}

type pair struct {
	base  string
	quote string
}

// Oracle owns the price pairs. Only the owner address may write; reads are
// pure and side-effect free.
type Oracle struct {
	mu     sync.RWMutex
	owner  common.Address
	prices map[pair]Price
}

func New(owner common.Address) *Oracle {
	return &Oracle{
		owner:  owner,
		prices: make(map[pair]Price),
	}
}

// SetPrice writes the price for (base, quote). Overwrites any prior price.
func (o *Oracle) SetPrice(_ context.Context, caller common.Address, base, quote string, numerator *big.Int, decimals uint8) error {
	if caller != o.owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the oracle owner may set prices")
	}
	if numerator == nil || numerator.Sign() < 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "price numerator must be non-negative")
	}
	if decimals > MaxPriceDecimals {
		return dErrors.Newf(dErrors.CodeInvalidArgument, "price decimals %d exceed maximum %d", decimals, MaxPriceDecimals)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[pair{base, quote}] = Price{Numerator: new(big.Int).Set(numerator), Decimals: decimals}
	return nil
}

// GetPrice returns the price for (base, quote), or PriceUnavailable when the
// pair has never been set.
func (o *Oracle) GetPrice(_ context.Context, base, quote string) (Price, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[pair{base, quote}]
	if !ok {
		return Price{}, dErrors.Newf(dErrors.CodePriceUnavailable, "no price for %s/%s", base, quote)
	}
	return Price{Numerator: new(big.Int).Set(price.Numerator), Decimals: price.Decimals}, nil
}

// Convert applies a price to an amount: amount * numerator / 10^decimals.
// big.Int arithmetic makes the wide intermediate product exact; truncation
// toward zero matches the on-ledger integer semantics.
func Convert(amount *big.Int, price Price) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "amount must be non-negative")
	}
	if price.Numerator == nil {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "price has no numerator")
	}
	result := new(big.Int).Mul(amount, price.Numerator)
	return result.Quo(result, Pow10(price.Decimals)), nil
}

// Pow10 returns 10^n as a big.Int.
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
