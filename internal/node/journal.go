package node

import (
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "metrina/pkg/domain-errors"
)

// TxStatus is the terminal outcome of a journaled operation.
type TxStatus string

const (
	TxSucceeded TxStatus = "succeeded"
	TxFailed    TxStatus = "failed"
)

// TxRecord is what clients see when they poll an operation by id. Operations
// execute synchronously, so a record exists as soon as its id is returned.
type TxRecord struct {
	ID          string
	Operation   string
	Status      TxStatus
	ErrorCode   string
	SubmittedAt time.Time
}

type journal struct {
	mu      sync.RWMutex
	records map[string]TxRecord
}

func newJournal() *journal {
	return &journal{records: make(map[string]TxRecord)}
}

func (j *journal) record(operation string, err error, at time.Time) TxRecord {
	record := TxRecord{
		ID:          uuid.NewString(),
		Operation:   operation,
		Status:      TxSucceeded,
		SubmittedAt: at,
	}
	if err != nil {
		record.Status = TxFailed
		record.ErrorCode = string(dErrors.CodeOf(err))
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.records[record.ID] = record
	return record
}

func (j *journal) get(id string) (TxRecord, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	record, ok := j.records[id]
	return record, ok
}
