package token

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	dErrors "metrina/pkg/domain-errors"
)

// ERC20 is the balance/allowance surface the ledger expects from a
// settlement currency. Callers are identified explicitly because there is no
// ambient message sender in this runtime.
type ERC20 interface {
	Symbol() string
	Decimals() uint8
	TotalSupply() *big.Int
	BalanceOf(addr common.Address) *big.Int
	Allowance(owner, spender common.Address) *big.Int
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
	Approve(ctx context.Context, owner, spender common.Address, amount *big.Int) error
	TransferFrom(ctx context.Context, spender, owner, to common.Address, amount *big.Int) error
}

// StableCoin is a plain in-memory ERC20 used as the settlement currency.
// It has no compliance gate and no owner: anyone may mint, which mirrors the
// mock stablecoin the system settles against in test deployments.
type StableCoin struct {
	mu          sync.RWMutex
	symbol      string
	decimals    uint8
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
}

func NewStableCoin(symbol string, decimals uint8) *StableCoin {
	return &StableCoin{
		symbol:      symbol,
		decimals:    decimals,
		totalSupply: new(big.Int),
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (s *StableCoin) Symbol() string  { return s.symbol }
func (s *StableCoin) Decimals() uint8 { return s.decimals }

func (s *StableCoin) TotalSupply() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.totalSupply)
}

func (s *StableCoin) BalanceOf(addr common.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return balanceFrom(s.balances, addr)
}

func (s *StableCoin) Allowance(owner, spender common.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return allowanceFrom(s.allowances, owner, spender)
}

func (s *StableCoin) Mint(_ context.Context, to common.Address, amount *big.Int) error {
	if err := requireAmount(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	addBalance(s.balances, to, amount)
	s.totalSupply.Add(s.totalSupply, amount)
	return nil
}

func (s *StableCoin) Transfer(_ context.Context, from, to common.Address, amount *big.Int) error {
	if err := requireAmount(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return moveBalance(s.balances, from, to, amount)
}

func (s *StableCoin) Approve(_ context.Context, owner, spender common.Address, amount *big.Int) error {
	if err := requireAmount(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	setAllowance(s.allowances, owner, spender, amount)
	return nil
}

func (s *StableCoin) TransferFrom(_ context.Context, spender, owner, to common.Address, amount *big.Int) error {
	if err := requireAmount(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := spendAllowance(s.allowances, owner, spender, amount); err != nil {
		return err
	}
	return moveBalance(s.balances, owner, to, amount)
}

// Shared balance/allowance map helpers. The ledger proper reuses these so the
// two books behave identically at the edges.

func requireAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "amount must be non-negative")
	}
	return nil
}

func balanceFrom(balances map[common.Address]*big.Int, addr common.Address) *big.Int {
	if b, ok := balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func addBalance(balances map[common.Address]*big.Int, addr common.Address, amount *big.Int) {
	if b, ok := balances[addr]; ok {
		b.Add(b, amount)
		return
	}
	balances[addr] = new(big.Int).Set(amount)
}

func moveBalance(balances map[common.Address]*big.Int, from, to common.Address, amount *big.Int) error {
	b, ok := balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return dErrors.New(dErrors.CodeInsufficientFunds, "transfer amount exceeds balance")
	}
	b.Sub(b, amount)
	addBalance(balances, to, amount)
	return nil
}

func allowanceFrom(allowances map[common.Address]map[common.Address]*big.Int, owner, spender common.Address) *big.Int {
	if a, ok := allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func setAllowance(allowances map[common.Address]map[common.Address]*big.Int, owner, spender common.Address, amount *big.Int) {
	byOwner := allowances[owner]
	if byOwner == nil {
		byOwner = make(map[common.Address]*big.Int)
		allowances[owner] = byOwner
	}
	byOwner[spender] = new(big.Int).Set(amount)
}

func spendAllowance(allowances map[common.Address]map[common.Address]*big.Int, owner, spender common.Address, amount *big.Int) error {
	a, ok := allowances[owner][spender]
	if !ok || a.Cmp(amount) < 0 {
		return dErrors.New(dErrors.CodeInsufficientFunds, "transfer amount exceeds allowance")
	}
	a.Sub(a, amount)
	return nil
}
