package token

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType discriminates the ledger's event kinds.
type EventType string

const (
	EventTransfer EventType = "transfer"
	EventApproval EventType = "approval"
)

// Event records one balance transfer or allowance change. Mints carry the
// zero address as From; burns carry it as To.
type Event struct {
	Type    EventType
	From    common.Address
	To      common.Address
	Owner   common.Address
	Spender common.Address
	Value   *big.Int
	At      time.Time
}

// EventSink receives events after the operation that produced them has
// committed. Sinks must not call back into the ledger.
type EventSink func(Event)

func (t *Token) emitTransfer(from, to common.Address, value *big.Int) {
	t.emit(Event{
		Type:  EventTransfer,
		From:  from,
		To:    to,
		Value: new(big.Int).Set(value),
		At:    t.now(),
	})
}

func (t *Token) emitApproval(owner, spender common.Address, value *big.Int) {
	t.emit(Event{
		Type:    EventApproval,
		Owner:   owner,
		Spender: spender,
		Value:   new(big.Int).Set(value),
		At:      t.now(),
	})
}

func (t *Token) emit(ev Event) {
	t.events = append(t.events, ev)
	if t.sink != nil {
		t.sink(ev)
	}
}

// Events returns a copy of the event journal in emission order.
func (t *Token) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Event(nil), t.events...)
}

// SetEventSink installs a post-commit event observer. Pass nil to detach.
func (t *Token) SetEventSink(sink EventSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}
