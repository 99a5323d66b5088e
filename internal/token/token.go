// Package token implements the asset ledger: an ERC20-style balance and
// allowance book with supplier-restricted minting, rule-gated transfers,
// oracle-priced redemption and signature-based permit authorization.
//
// Every public operation runs to a definite success or failure with no
// partial effect. Reads feeding a decision and the mutations they authorize
// happen under one lock, so callers observe a single consistent snapshot.
package token

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"metrina/internal/oracle"
	"metrina/internal/rules"
	dErrors "metrina/pkg/domain-errors"
)

// CategoryProvider resolves a subject's registration category among a trusted
// registrar set. The compliance registry satisfies this.
type CategoryProvider interface {
	CategoryOf(ctx context.Context, trustedRegistrars []common.Address, subject common.Address) (uint8, bool)
}

// PriceSource is the slice of the price oracle the ledger needs.
type PriceSource interface {
	GetPrice(ctx context.Context, base, quote string) (oracle.Price, error)
}

// Config fixes a token's identity and collaborators at construction.
type Config struct {
	Owner             common.Address
	Address           common.Address // the ledger's own identity, bound into permits
	Name              string
	Symbol            string
	Decimals          uint8
	ChainID           *big.Int
	TrustedRegistrars []common.Address
	RedemptionTime    time.Time
	Settlement        ERC20          // settlement currency for redemption
	FundingAccount    common.Address // pays redemptions in settlement currency
	Engine            *rules.Engine
	Categories        CategoryProvider
}

// Token is the asset ledger. It exclusively owns balances, allowances and
// nonces; the rule engine, registry and oracle are held by reference.
type Token struct {
	mu  sync.RWMutex
	cfg Config

	oracle      PriceSource
	suppliers   map[common.Address]bool
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
	nonces      map[common.Address]uint64
	ruleByCat   map[uint8]int
	totalSupply *big.Int
	events      []Event
	sink        EventSink

	now func() time.Time
}

func New(cfg Config) *Token {
	return &Token{
		cfg:         cfg,
		suppliers:   make(map[common.Address]bool),
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
		nonces:      make(map[common.Address]uint64),
		ruleByCat:   make(map[uint8]int),
		totalSupply: new(big.Int),
		now:         time.Now,
	}
}

func (t *Token) Name() string            { return t.cfg.Name }
func (t *Token) Symbol() string          { return t.cfg.Symbol }
func (t *Token) Decimals() uint8         { return t.cfg.Decimals }
func (t *Token) Address() common.Address { return t.cfg.Address }

func (t *Token) RedemptionTime() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.RedemptionTime
}

// SetRedemptionTime moves the eligibility time for redemption. Owner only.
func (t *Token) SetRedemptionTime(_ context.Context, caller common.Address, at time.Time) error {
	if caller != t.cfg.Owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner may set the redemption time")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.RedemptionTime = at
	return nil
}

func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.totalSupply)
}

func (t *Token) BalanceOf(addr common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return balanceFrom(t.balances, addr)
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return allowanceFrom(t.allowances, owner, spender)
}

// Nonce returns the next permit nonce expected from owner.
func (t *Token) Nonce(owner common.Address) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nonces[owner]
}

// IsSupplier reports whether addr may mint.
func (t *Token) IsSupplier(addr common.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.suppliers[addr]
}

// AddSupplier grants addr the right to mint. Owner only.
func (t *Token) AddSupplier(_ context.Context, caller, addr common.Address) error {
	if caller != t.cfg.Owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner may add suppliers")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suppliers[addr] = true
	return nil
}

// SetPriceOracle installs the oracle consulted by redemption. Owner only.
func (t *Token) SetPriceOracle(_ context.Context, caller common.Address, source PriceSource) error {
	if caller != t.cfg.Owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner may set the price oracle")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.oracle = source
	return nil
}

// SetRules maps user categories to required rule-engine entries. Indices are
// validated against the engine's current rule list. Owner only.
func (t *Token) SetRules(_ context.Context, caller common.Address, categories []uint8, ruleIndices []int) error {
	if caller != t.cfg.Owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner may set rules")
	}
	if len(categories) != len(ruleIndices) {
		return dErrors.New(dErrors.CodeInvalidArgument, "categories and rule indices must have equal length")
	}
	length := t.cfg.Engine.RuleLength()
	for _, idx := range ruleIndices {
		if idx < 0 || idx >= length {
			return dErrors.Newf(dErrors.CodeInvalidArgument, "rule index %d out of range", idx)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.ruleByCat = make(map[uint8]int, len(categories))
	for i, cat := range categories {
		t.ruleByCat[cat] = ruleIndices[i]
	}
	return nil
}

// RuleFor returns the engine entry required for a category, if one is mapped.
func (t *Token) RuleFor(category uint8) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.ruleByCat[category]
	return idx, ok
}

// Mint credits newly issued units to an address. Suppliers are trusted
// issuers, so minting bypasses the compliance gate entirely.
func (t *Token) Mint(ctx context.Context, caller, to common.Address, amount *big.Int) error {
	if err := requireAmount(amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.suppliers[caller] {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not a registered supplier")
	}
	addBalance(t.balances, to, amount)
	t.totalSupply.Add(t.totalSupply, amount)
	t.emitTransfer(common.Address{}, to, amount)
	return nil
}

// Transfer moves amount from the caller to another address, subject to the
// compliance gate.
func (t *Token) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if err := requireAmount(amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transfer(ctx, from, to, amount)
}

// TransferFrom spends the caller's allowance to move amount out of owner's
// balance, subject to the compliance gate.
func (t *Token) TransferFrom(ctx context.Context, spender, owner, to common.Address, amount *big.Int) error {
	if err := requireAmount(amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.requireCompliant(ctx, owner, to, amount); err != nil {
		return err
	}
	if err := spendAllowance(t.allowances, owner, spender, amount); err != nil {
		return err
	}
	if err := moveBalance(t.balances, owner, to, amount); err != nil {
		// Restore the allowance so the failed operation has no effect.
		addAllowance(t.allowances, owner, spender, amount)
		return err
	}
	t.emitTransfer(owner, to, amount)
	return nil
}

// Approve sets the caller's allowance for spender. The well-known race
// between a pending spend and a re-approval is kept as-is for observable
// compatibility with the standard allowance contract.
func (t *Token) Approve(_ context.Context, owner, spender common.Address, amount *big.Int) error {
	if err := requireAmount(amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	setAllowance(t.allowances, owner, spender, amount)
	t.emitApproval(owner, spender, amount)
	return nil
}

// Redeem converts each subject's full balance into the settlement currency,
// paid from the funding account, and burns the redeemed units. The whole call
// settles atomically: totals are pre-checked before any balance moves.
//
// The failure order is part of the contract: eligibility time, then price
// existence, then price scale, then funds.
func (t *Token) Redeem(ctx context.Context, caller common.Address, subjects []common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if caller != t.cfg.Owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner may redeem")
	}
	if t.now().Before(t.cfg.RedemptionTime) {
		return dErrors.New(dErrors.CodeTooEarly, "redemption time not reached")
	}
	if t.oracle == nil {
		return dErrors.New(dErrors.CodePriceUnavailable, "no price oracle configured")
	}
	settlement := t.cfg.Settlement
	price, err := t.oracle.GetPrice(ctx, t.cfg.Symbol, settlement.Symbol())
	if err != nil {
		return err
	}
	if price.Decimals > settlement.Decimals() {
		return dErrors.Newf(dErrors.CodeInvalidPriceScale,
			"price decimals %d exceed settlement decimals %d", price.Decimals, settlement.Decimals())
	}

	// Payout per subject: balance * numerator * 10^(settlementDecimals - scale).
	unit := new(big.Int).Mul(price.Numerator, oracle.Pow10(settlement.Decimals()-price.Decimals))
	total := new(big.Int)
	for _, subject := range subjects {
		total.Add(total, new(big.Int).Mul(balanceFrom(t.balances, subject), unit))
	}

	funder := t.cfg.FundingAccount
	if settlement.BalanceOf(funder).Cmp(total) < 0 {
		return dErrors.New(dErrors.CodeInsufficientFunds, "funding account balance cannot cover redemption")
	}
	if settlement.Allowance(funder, t.cfg.Address).Cmp(total) < 0 {
		return dErrors.New(dErrors.CodeInsufficientFunds, "funding account allowance cannot cover redemption")
	}

	for _, subject := range subjects {
		burned := balanceFrom(t.balances, subject)
		if burned.Sign() == 0 {
			continue
		}
		payout := new(big.Int).Mul(burned, unit)
		if err := settlement.TransferFrom(ctx, t.cfg.Address, funder, subject, payout); err != nil {
			return err
		}
		delete(t.balances, subject)
		t.totalSupply.Sub(t.totalSupply, burned)
		t.emitTransfer(subject, common.Address{}, burned)
	}
	return nil
}

// transfer applies the compliance gate and moves balance. Callers hold t.mu.
func (t *Token) transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if err := t.requireCompliant(ctx, from, to, amount); err != nil {
		return err
	}
	if err := moveBalance(t.balances, from, to, amount); err != nil {
		return err
	}
	t.emitTransfer(from, to, amount)
	return nil
}

// requireCompliant asks the rule engine to validate the transfer using the
// sender's registration category. Callers hold t.mu.
func (t *Token) requireCompliant(ctx context.Context, from, to common.Address, amount *big.Int) error {
	category := uint8(0)
	if t.cfg.Categories != nil {
		if cat, ok := t.cfg.Categories.CategoryOf(ctx, t.cfg.TrustedRegistrars, from); ok {
			category = cat
		}
	}
	if !t.cfg.Engine.IsValid(from, to, amount, category) {
		return dErrors.New(dErrors.CodeNotCompliant, "transfer rejected by compliance rules")
	}
	return nil
}

func addAllowance(allowances map[common.Address]map[common.Address]*big.Int, owner, spender common.Address, amount *big.Int) {
	byOwner := allowances[owner]
	if byOwner == nil {
		byOwner = make(map[common.Address]*big.Int)
		allowances[owner] = byOwner
	}
	if a, ok := byOwner[spender]; ok {
		a.Add(a, amount)
		return
	}
	byOwner[spender] = new(big.Int).Set(amount)
}
