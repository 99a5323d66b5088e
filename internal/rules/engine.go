// Package rules holds the pluggable compliance rule engine. The engine keeps
// an ordered list of rule references and evaluates them conjunctively: any
// single rule may veto a transfer. Failure is a pure boolean, never an error,
// so the ledger decides how to surface it.
package rules

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	dErrors "metrina/pkg/domain-errors"
)

// Rule is the capability interface for one compliance check. Implementations
// must be side-effect free; the category is the sender's registration
// category and may be ignored by rules that do not discriminate on it.
type Rule interface {
	IsTransferValid(from, to common.Address, amount *big.Int, category uint8) bool
}

// Engine evaluates the configured rules for a proposed transfer. It is
// stateless across calls and holds rules by reference, so one rule instance
// may be shared across engines.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

func NewEngine() *Engine {
	return &Engine{}
}

// SetRules atomically replaces the active rule list.
func (e *Engine) SetRules(rules []Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append([]Rule(nil), rules...)
}

// IsValid reports whether every configured rule accepts the transfer.
// An engine with no rules accepts everything.
func (e *Engine) IsValid(from, to common.Address, amount *big.Int, category uint8) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, rule := range e.rules {
		if !rule.IsTransferValid(from, to, amount, category) {
			return false
		}
	}
	return true
}

// RuleLength returns the number of configured rules.
func (e *Engine) RuleLength() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Rule returns the rule at the given list position.
func (e *Engine) Rule(index int) (Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if index < 0 || index >= len(e.rules) {
		return nil, dErrors.Newf(dErrors.CodeInvalidArgument, "rule index %d out of range", index)
	}
	return e.rules[index], nil
}
