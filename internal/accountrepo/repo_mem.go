package accountrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// RepoMem keeps accounts in memory. It is used in offline mode and tests.
type RepoMem struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewRepoMem returns an empty RepoMem.
func NewRepoMem() *RepoMem {
	return &RepoMem{accounts: map[string]domain.Account{}}
}

// Create inserts the account unless an account with the same id exists.
func (r *RepoMem) Create(_ context.Context, a domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[a.ID]; ok {
		return domain.Account{}, domain.ErrAccountAlreadyExists
	}

	r.accounts[a.ID] = a

	return a, nil
}

// Get returns the account with the given id.
func (r *RepoMem) Get(_ context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

// CompareAndSwap stores the account balance and version if the stored version equals expectedVersion.
func (r *RepoMem) CompareAndSwap(_ context.Context, a domain.Account, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[a.ID]
	if !ok || stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	if a.Balance.IsNegative() {
		return domain.ErrInsufficientBalance
	}

	stored.Balance = a.Balance
	stored.Version = a.Version
	r.accounts[a.ID] = stored

	return nil
}

// ListIDs returns ids of all accounts.
func (r *RepoMem) ListIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids, nil
}
