// Package sale implements time-windowed primary-market issuance. Investors
// pay settlement stablecoin (or, off-band, a reference currency) and receive
// ledger units priced by the oracle; delivery goes through the ledger's
// compliance-gated TransferFrom, so the same gate that protects peer
// transfers protects sales.
package sale

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"metrina/internal/oracle"
	"metrina/internal/token"
	dErrors "metrina/pkg/domain-errors"
)

// Schedule is the active investment window. Zero value means no window has
// been set and stablecoin investment is rejected.
type Schedule struct {
	Start time.Time
	End   time.Time
}

func (s Schedule) set() bool { return !s.Start.IsZero() || !s.End.IsZero() }

func (s Schedule) contains(t time.Time) bool {
	return s.set() && !t.Before(s.Start) && !t.After(s.End)
}

// Config fixes the sale's collaborators at construction.
type Config struct {
	Owner          common.Address
	Address        common.Address // spender identity for pulled allowances
	Token          *token.Token
	Settlement     token.ERC20
	Treasury       common.Address // holds the units being sold
	StableReceiver common.Address // receives investor stablecoin
	RefCurrency    string
	RefDecimals    uint8
	Oracle         token.PriceSource
}

// Sale converts settlement or reference currency into ledger units.
type Sale struct {
	mu       sync.RWMutex
	cfg      Config
	schedule Schedule

	now func() time.Time
}

func New(cfg Config) *Sale {
	return &Sale{cfg: cfg, now: time.Now}
}

// RefCurrency returns the reference currency symbol used by the off-band
// investment path.
func (s *Sale) RefCurrency() string { return s.cfg.RefCurrency }

// Schedule returns the active window.
func (s *Sale) Schedule() Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule
}

// SetSchedule overwrites the active window. Owner only; no history is kept.
func (s *Sale) SetSchedule(_ context.Context, caller common.Address, start, end time.Time) error {
	if caller != s.cfg.Owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner may set the schedule")
	}
	if start.After(end) {
		return dErrors.New(dErrors.CodeInvalidArgument, "schedule start must not be after end")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = Schedule{Start: start, End: end}
	return nil
}

// InvestStable pulls amount of settlement currency from the investor and
// delivers the oracle-priced number of ledger units from the treasury.
// Only accepted while the schedule window is open.
//
// The stablecoin pull is pre-checked against balance and allowance before
// anything moves, so a compliance rejection on the unit delivery leaves the
// investor's stablecoin untouched.
func (s *Sale) InvestStable(ctx context.Context, investor common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.schedule.contains(s.now()) {
		return dErrors.New(dErrors.CodeOutOfSchedule, "sale window is not active")
	}

	settlement := s.cfg.Settlement
	units, err := s.unitsFor(ctx, amount, settlement.Symbol(), settlement.Decimals())
	if err != nil {
		return err
	}

	if settlement.BalanceOf(investor).Cmp(amount) < 0 {
		return dErrors.New(dErrors.CodeInsufficientFunds, "investor balance cannot cover investment")
	}
	if settlement.Allowance(investor, s.cfg.Address).Cmp(amount) < 0 {
		return dErrors.New(dErrors.CodeInsufficientFunds, "investor allowance cannot cover investment")
	}

	if err := s.cfg.Token.TransferFrom(ctx, s.cfg.Address, s.cfg.Treasury, investor, units); err != nil {
		return err
	}
	return settlement.TransferFrom(ctx, s.cfg.Address, investor, s.cfg.StableReceiver, amount)
}

// InvestRefCurrency records an investment paid off-band in the reference
// currency and delivers the priced units from the treasury. Owner only; the
// reference path is not schedule-gated, since off-band sales may be settled
// outside the public window.
func (s *Sale) InvestRefCurrency(ctx context.Context, caller, investor common.Address, refAmount *big.Int) error {
	if refAmount == nil || refAmount.Sign() <= 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "amount must be positive")
	}
	if caller != s.cfg.Owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner may record reference-currency investments")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	units, err := s.unitsFor(ctx, refAmount, s.cfg.RefCurrency, s.cfg.RefDecimals)
	if err != nil {
		return err
	}
	if units.Sign() == 0 {
		return dErrors.New(dErrors.CodeAmountTooSmall, "amount converts to less than one unit")
	}

	return s.cfg.Token.TransferFrom(ctx, s.cfg.Address, s.cfg.Treasury, investor, units)
}

// unitsFor converts a currency amount (in minor units of the given decimals)
// into ledger units: amount * 10^scale / (numerator * 10^decimals).
func (s *Sale) unitsFor(ctx context.Context, amount *big.Int, quote string, quoteDecimals uint8) (*big.Int, error) {
	price, err := s.cfg.Oracle.GetPrice(ctx, s.cfg.Token.Symbol(), quote)
	if err != nil {
		return nil, err
	}
	if price.Numerator.Sign() == 0 {
		return nil, dErrors.Newf(dErrors.CodePriceUnavailable, "zero price for %s/%s", s.cfg.Token.Symbol(), quote)
	}
	units := new(big.Int).Mul(amount, oracle.Pow10(price.Decimals))
	return units.Quo(units, new(big.Int).Mul(price.Numerator, oracle.Pow10(quoteDecimals))), nil
}
