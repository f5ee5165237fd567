// Package transferrepo manages repository layer of transfers.
//
// Transfers form an append-only ledger: records are inserted once, never
// updated, and listed by source or destination account.
package transferrepo

import (
	"context"
	"errors"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates transfer repository layer logic on PostgreSQL.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transfer RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    transfers (id, src_account_id, dst_account_id, amount, occurred_at)
VALUES
    ($1, $2, $3, $4, $5)
RETURNING id, src_account_id, dst_account_id, amount, occurred_at
`

// Create appends the transfer unless a transfer with the same id exists.
func (r *RepoPGS) Create(ctx context.Context, t domain.Transfer) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, t.ID, t.SrcAccountID, t.DstAccountID, t.Amount, t.OccurredAt)

	var created domain.Transfer

	err := row.Scan(
		&created.ID,
		&created.SrcAccountID,
		&created.DstAccountID,
		&created.Amount,
		&created.OccurredAt,
	)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", t)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch {
			case pqErr.Code.Name() == "unique_violation":
				return domain.Transfer{}, domain.ErrTransferIDCollision
			case pqErr.Constraint == "transfers_amount_check":
				return domain.Transfer{}, domain.ErrInvalidAmount
			}
		}

		return domain.Transfer{}, domain.ErrStoreUnavailable
	}

	created.OccurredAt = created.OccurredAt.UTC()

	return created, nil
}

const listBySourceQuery = `
SELECT
    id, src_account_id, dst_account_id, amount, occurred_at
FROM transfers
WHERE src_account_id = $1
ORDER BY occurred_at, id
`

// ListBySource returns transfers debiting the account.
func (r *RepoPGS) ListBySource(ctx context.Context, accountID string) ([]domain.Transfer, error) {
	return r.list(ctx, listBySourceQuery, accountID)
}

const listByDestinationQuery = `
SELECT
    id, src_account_id, dst_account_id, amount, occurred_at
FROM transfers
WHERE dst_account_id = $1
ORDER BY occurred_at, id
`

// ListByDestination returns transfers crediting the account.
func (r *RepoPGS) ListByDestination(ctx context.Context, accountID string) ([]domain.Transfer, error) {
	return r.list(ctx, listByDestinationQuery, accountID)
}

func (r *RepoPGS) list(ctx context.Context, query, accountID string) ([]domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		l.Error().Err(err).Str("account_id", accountID).Send()
		return nil, domain.ErrStoreUnavailable
	}
	defer rows.Close()

	items := []domain.Transfer{}

	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(
			&t.ID,
			&t.SrcAccountID,
			&t.DstAccountID,
			&t.Amount,
			&t.OccurredAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, domain.ErrStoreUnavailable
		}

		t.OccurredAt = t.OccurredAt.UTC()
		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, domain.ErrStoreUnavailable
	}

	return items, nil
}
