// Package registry stores per-registrar user registration records. A record
// ties a subject address to a category and an expiry; validity is always
// judged against the current time, so records never need deleting.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	dErrors "metrina/pkg/domain-errors"
)

// Registration is one registrar's view of a subject.
type Registration struct {
	Category uint8
	Expiry   time.Time
}

// Registry holds registration records keyed by (registrar, subject).
// It exclusively owns the records; callers mutate only through RegisterUsers.
type Registry struct {
	mu      sync.RWMutex
	records map[common.Address]map[common.Address]Registration

	now func() time.Time
}

func New() *Registry {
	return &Registry{
		records: make(map[common.Address]map[common.Address]Registration),
		now:     time.Now,
	}
}

// RegisterUsers upserts one record per subject under the calling registrar.
// Re-registering a subject overwrites its category and expiry.
func (r *Registry) RegisterUsers(_ context.Context, registrar common.Address, subjects []common.Address, categories []uint8, expiries []time.Time) error {
	if len(subjects) != len(categories) || len(subjects) != len(expiries) {
		return dErrors.New(dErrors.CodeInvalidArgument, "subjects, categories and expiries must have equal length")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	byRegistrar := r.records[registrar]
	if byRegistrar == nil {
		byRegistrar = make(map[common.Address]Registration)
		r.records[registrar] = byRegistrar
	}
	for i, subject := range subjects {
		byRegistrar[subject] = Registration{Category: categories[i], Expiry: expiries[i]}
	}
	return nil
}

// IsAddressValid reports whether at least one of the trusted registrars holds
// a non-expired record for subject. Expiry must be strictly in the future.
func (r *Registry) IsAddressValid(_ context.Context, trustedRegistrars []common.Address, subject common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	for _, registrar := range trustedRegistrars {
		if reg, ok := r.records[registrar][subject]; ok && reg.Expiry.After(now) {
			return true
		}
	}
	return false
}

// CategoryOf returns the category of the first non-expired record found among
// the trusted registrars, in registrar order. The second result is false when
// no valid record exists.
func (r *Registry) CategoryOf(_ context.Context, trustedRegistrars []common.Address, subject common.Address) (uint8, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	for _, registrar := range trustedRegistrars {
		if reg, ok := r.records[registrar][subject]; ok && reg.Expiry.After(now) {
			return reg.Category, true
		}
	}
	return 0, false
}
