package transferrepo

import (
	"context"
	"sync"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// RepoMem keeps the ledger in memory in insertion order.
type RepoMem struct {
	mu        sync.RWMutex
	ids       map[string]struct{}
	transfers []domain.Transfer
}

// NewRepoMem returns an empty RepoMem.
func NewRepoMem() *RepoMem {
	return &RepoMem{ids: map[string]struct{}{}}
}

// Create appends the transfer unless a transfer with the same id exists.
func (r *RepoMem) Create(_ context.Context, t domain.Transfer) (domain.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[t.ID]; ok {
		return domain.Transfer{}, domain.ErrTransferIDCollision
	}

	r.ids[t.ID] = struct{}{}
	r.transfers = append(r.transfers, t)

	return t, nil
}

// ListBySource returns transfers debiting the account.
func (r *RepoMem) ListBySource(_ context.Context, accountID string) ([]domain.Transfer, error) {
	return r.filter(func(t domain.Transfer) bool { return t.SrcAccountID == accountID }), nil
}

// ListByDestination returns transfers crediting the account.
func (r *RepoMem) ListByDestination(_ context.Context, accountID string) ([]domain.Transfer, error) {
	return r.filter(func(t domain.Transfer) bool { return t.DstAccountID == accountID }), nil
}

func (r *RepoMem) filter(match func(domain.Transfer) bool) []domain.Transfer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []domain.Transfer{}

	for _, t := range r.transfers {
		if match(t) {
			items = append(items, t)
		}
	}

	return items
}
