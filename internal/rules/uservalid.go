package rules

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AddressValidator is the slice of the compliance registry the rule needs.
type AddressValidator interface {
	IsAddressValid(ctx context.Context, trustedRegistrars []common.Address, subject common.Address) bool
}

// UserValidRule accepts a transfer only when both endpoints hold a valid
// registration with one of the trusted registrars. The trusted set is fixed
// at construction; higher layers decide who is trusted.
type UserValidRule struct {
	registry          AddressValidator
	trustedRegistrars []common.Address
}

func NewUserValidRule(registry AddressValidator, trustedRegistrars []common.Address) *UserValidRule {
	return &UserValidRule{
		registry:          registry,
		trustedRegistrars: append([]common.Address(nil), trustedRegistrars...),
	}
}

// IsTransferValid checks both sender and recipient. Minting never reaches
// this rule; peer transfers require both ends to be registered and current.
func (r *UserValidRule) IsTransferValid(from, to common.Address, _ *big.Int, _ uint8) bool {
	ctx := context.Background()
	return r.registry.IsAddressValid(ctx, r.trustedRegistrars, from) &&
		r.registry.IsAddressValid(ctx, r.trustedRegistrars, to)
}
