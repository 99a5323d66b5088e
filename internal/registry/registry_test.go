package registry

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	dErrors "metrina/pkg/domain-errors"
)

type RegistrySuite struct {
	suite.Suite
	ctx      context.Context
	registry *Registry
	now      time.Time
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.registry = New()
	s.registry.now = func() time.Time { return s.now }
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

var (
	registrarA = common.HexToAddress("0xA1")
	registrarB = common.HexToAddress("0xB1")
	alice      = common.HexToAddress("0x01")
	bob        = common.HexToAddress("0x02")
)

func (s *RegistrySuite) TestRegisterAndValidate() {
	expiry := s.now.Add(24 * time.Hour)
	s.Require().NoError(s.registry.RegisterUsers(s.ctx, registrarA,
		[]common.Address{alice, bob}, []uint8{0, 1}, []time.Time{expiry, expiry}))

	s.True(s.registry.IsAddressValid(s.ctx, []common.Address{registrarA}, alice))
	s.True(s.registry.IsAddressValid(s.ctx, []common.Address{registrarA}, bob))
	s.False(s.registry.IsAddressValid(s.ctx, []common.Address{registrarB}, alice),
		"record under registrarA must not count for registrarB")
}

func (s *RegistrySuite) TestExpiryIsStrict() {
	s.Require().NoError(s.registry.RegisterUsers(s.ctx, registrarA,
		[]common.Address{alice}, []uint8{0}, []time.Time{s.now}))
	s.False(s.registry.IsAddressValid(s.ctx, []common.Address{registrarA}, alice),
		"expiry equal to now is already invalid")

	s.Require().NoError(s.registry.RegisterUsers(s.ctx, registrarA,
		[]common.Address{alice}, []uint8{0}, []time.Time{s.now.Add(time.Second)}))
	s.True(s.registry.IsAddressValid(s.ctx, []common.Address{registrarA}, alice))

	s.now = s.now.Add(2 * time.Second)
	s.False(s.registry.IsAddressValid(s.ctx, []common.Address{registrarA}, alice))
}

func (s *RegistrySuite) TestReRegisterOverwrites() {
	first := s.now.Add(time.Hour)
	s.Require().NoError(s.registry.RegisterUsers(s.ctx, registrarA,
		[]common.Address{alice}, []uint8{0}, []time.Time{first}))

	second := s.now.Add(48 * time.Hour)
	s.Require().NoError(s.registry.RegisterUsers(s.ctx, registrarA,
		[]common.Address{alice}, []uint8{3}, []time.Time{second}))

	cat, ok := s.registry.CategoryOf(s.ctx, []common.Address{registrarA}, alice)
	s.Require().True(ok)
	s.Equal(uint8(3), cat)
}

func (s *RegistrySuite) TestLengthMismatch() {
	err := s.registry.RegisterUsers(s.ctx, registrarA,
		[]common.Address{alice, bob}, []uint8{0}, []time.Time{s.now.Add(time.Hour)})
	s.Require().Error(err)
	s.Equal(dErrors.CodeInvalidArgument, dErrors.CodeOf(err))
}

func (s *RegistrySuite) TestAnyTrustedRegistrarSuffices() {
	expiry := s.now.Add(time.Hour)
	s.Require().NoError(s.registry.RegisterUsers(s.ctx, registrarB,
		[]common.Address{alice}, []uint8{2}, []time.Time{expiry}))

	trusted := []common.Address{registrarA, registrarB}
	s.True(s.registry.IsAddressValid(s.ctx, trusted, alice))

	cat, ok := s.registry.CategoryOf(s.ctx, trusted, alice)
	s.Require().True(ok)
	s.Equal(uint8(2), cat)

	_, ok = s.registry.CategoryOf(s.ctx, trusted, bob)
	s.False(ok)
}
