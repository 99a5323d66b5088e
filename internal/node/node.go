// Package node bundles the core components behind one exclusive lock. The
// execution environment the ledger semantics assume serializes operations one
// at a time; in this multi-threaded host the node's mutex is that global
// transactional boundary. Every public operation runs to a definite success
// or failure while holding it, so all reads feeding a validity or pricing
// decision see one consistent snapshot and no partial mutation is ever
// observable.
package node

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"metrina/internal/audit"
	"metrina/internal/oracle"
	"metrina/internal/platform/metrics"
	"metrina/internal/registry"
	"metrina/internal/rules"
	"metrina/internal/sale"
	"metrina/internal/token"
	dErrors "metrina/pkg/domain-errors"
)

// Components are the wired core contracts the node serializes access to.
type Components struct {
	Registry *registry.Registry
	Engine   *rules.Engine
	Oracle   *oracle.Oracle
	Token    *token.Token
	Stable   *token.StableCoin
	Sale     *sale.Sale
}

// Node owns the operation journal and fans audit events out to an optional
// sink channel after commit.
type Node struct {
	mu      sync.Mutex // the global transactional boundary
	log     *slog.Logger
	metrics *metrics.Metrics

	components Components
	journal    *journal
	auditOut   chan<- audit.Event

	now func() time.Time
}

func New(log *slog.Logger, m *metrics.Metrics, components Components, auditOut chan<- audit.Event) *Node {
	return &Node{
		log:        log,
		metrics:    m,
		components: components,
		journal:    newJournal(),
		auditOut:   auditOut,
		now:        time.Now,
	}
}

func (n *Node) Components() Components { return n.components }

// Tx returns the journaled outcome of a previously submitted operation.
func (n *Node) Tx(id string) (TxRecord, bool) { return n.journal.get(id) }

// RegisterUsers upserts registration records under the given registrar.
func (n *Node) RegisterUsers(ctx context.Context, registrar common.Address, subjects []common.Address, categories []uint8, expiries []time.Time) (string, error) {
	return n.run(ctx, "register_users", registrar.Hex(), "", func() error {
		return n.components.Registry.RegisterUsers(ctx, registrar, subjects, categories, expiries)
	})
}

// Transfer moves ledger units between peers through the compliance gate.
func (n *Node) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) (string, error) {
	txID, err := n.run(ctx, "transfer", from.Hex(), to.Hex(), func() error {
		return n.components.Token.Transfer(ctx, from, to, amount)
	})
	if err == nil {
		n.metrics.TransfersTotal.Inc()
	}
	return txID, err
}

// Mint issues new units from a supplier.
func (n *Node) Mint(ctx context.Context, caller, to common.Address, amount *big.Int) (string, error) {
	txID, err := n.run(ctx, "mint", caller.Hex(), to.Hex(), func() error {
		return n.components.Token.Mint(ctx, caller, to, amount)
	})
	if err == nil {
		n.metrics.MintsTotal.Inc()
	}
	return txID, err
}

// Redeem settles the full balances of the given subjects.
func (n *Node) Redeem(ctx context.Context, caller common.Address, subjects []common.Address) (string, error) {
	txID, err := n.run(ctx, "redeem", caller.Hex(), "", func() error {
		return n.components.Token.Redeem(ctx, caller, subjects)
	})
	if err == nil {
		n.metrics.RedemptionsTotal.Inc()
	}
	return txID, err
}

// InvestStable converts investor stablecoin into ledger units.
func (n *Node) InvestStable(ctx context.Context, investor common.Address, amount *big.Int) (string, error) {
	txID, err := n.run(ctx, "invest_stable", investor.Hex(), "", func() error {
		return n.components.Sale.InvestStable(ctx, investor, amount)
	})
	if err == nil {
		n.metrics.InvestmentsTotal.Inc()
	}
	return txID, err
}

// InvestRefCurrency records an off-band reference-currency investment.
func (n *Node) InvestRefCurrency(ctx context.Context, caller, investor common.Address, refAmount *big.Int) (string, error) {
	txID, err := n.run(ctx, "invest_ref_currency", caller.Hex(), investor.Hex(), func() error {
		return n.components.Sale.InvestRefCurrency(ctx, caller, investor, refAmount)
	})
	if err == nil {
		n.metrics.InvestmentsTotal.Inc()
	}
	return txID, err
}

// SetPrice writes an oracle price pair.
func (n *Node) SetPrice(ctx context.Context, caller common.Address, base, quote string, numerator *big.Int, decimals uint8) (string, error) {
	return n.run(ctx, "set_price", caller.Hex(), base+"/"+quote, func() error {
		return n.components.Oracle.SetPrice(ctx, caller, base, quote, numerator, decimals)
	})
}

// SetSchedule overwrites the sale window.
func (n *Node) SetSchedule(ctx context.Context, caller common.Address, start, end time.Time) (string, error) {
	return n.run(ctx, "set_schedule", caller.Hex(), "", func() error {
		return n.components.Sale.SetSchedule(ctx, caller, start, end)
	})
}

// IsAddressValid checks the subject against the given trusted registrars.
func (n *Node) IsAddressValid(ctx context.Context, trustedRegistrars []common.Address, subject common.Address) bool {
	return n.components.Registry.IsAddressValid(ctx, trustedRegistrars, subject)
}

// run executes op under the node's exclusive boundary, journals the outcome
// and emits a post-commit audit event.
func (n *Node) run(ctx context.Context, operation, actor, subject string, op func() error) (string, error) {
	start := n.now()

	n.mu.Lock()
	err := op()
	n.mu.Unlock()

	record := n.journal.record(operation, err, start)

	n.metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if dErrors.CodeOf(err) == dErrors.CodeNotCompliant {
		n.metrics.ComplianceRejectionsTotal.Inc()
	}

	if err != nil {
		n.log.WarnContext(ctx, "operation failed",
			"operation", operation,
			"tx_id", record.ID,
			"code", string(dErrors.CodeOf(err)),
		)
	} else {
		n.log.InfoContext(ctx, "operation committed",
			"operation", operation,
			"tx_id", record.ID,
		)
	}

	n.emitAudit(audit.Event{
		Timestamp: start,
		TxID:      record.ID,
		Operation: operation,
		Actor:     actor,
		Subject:   subject,
		Outcome:   string(record.Status),
		Reason:    record.ErrorCode,
	})
	return record.ID, err
}

// emitAudit never blocks the operation path; a full sink drops the event.
func (n *Node) emitAudit(event audit.Event) {
	if n.auditOut == nil {
		return
	}
	select {
	case n.auditOut <- event:
	default:
	}
}
