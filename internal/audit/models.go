// Package audit captures an append-only trail of ledger activity. Events are
// emitted after an operation commits and consumed off the hot path by a
// channel worker, so the ledger never blocks on its observers.
package audit

import "time"

// Event is emitted from the node for every committed state change. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	TxID      string
	Operation string
	Actor     string
	Subject   string
	Value     string
	Outcome   string
	Reason    string
}
