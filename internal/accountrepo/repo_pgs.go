// Package accountrepo manages repository layer of accounts.
//
// Every backend offers the same contract: conditional create, versioned
// compare-and-swap and best effort id listing. The store's single-key
// conditional write is the only synchronization primitive in the service.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates account repository layer logic on PostgreSQL.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO accounts (
    id,
    username,
    password_hash,
    salt,
    name,
    surname,
    verified_account,
    balance,
    version,
    created_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
) RETURNING id, username, password_hash, salt, name, surname, verified_account, balance, version, created_at
`

// Create inserts the account unless an account with the same id exists.
func (r *RepoPGS) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		a.ID,
		a.Username,
		a.PasswordHash,
		a.Salt,
		a.Name,
		a.Surname,
		a.VerifiedAccount,
		a.Balance,
		a.Version,
		a.CreatedAt,
	)

	created, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Str("account_id", a.ID).Send()

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.Account{}, domain.ErrAccountAlreadyExists
		}

		return domain.Account{}, domain.ErrStoreUnavailable
	}

	return created, nil
}

const getQuery = `
SELECT
    id, username, password_hash, salt, name, surname, verified_account, balance, version, created_at
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Str("account_id", id).Send()

		return domain.Account{}, domain.ErrStoreUnavailable
	}

	return a, nil
}

const compareAndSwapQuery = `
UPDATE accounts
SET balance = $1, version = $2
WHERE id = $3 AND version = $4
`

// CompareAndSwap stores the account balance and version if the stored version equals expectedVersion.
func (r *RepoPGS) CompareAndSwap(ctx context.Context, a domain.Account, expectedVersion int64) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, compareAndSwapQuery, a.Balance, a.Version, a.ID, expectedVersion)
	if err != nil {
		l.Error().Err(err).Str("account_id", a.ID).Send()

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "accounts_balance_check" {
			return domain.ErrInsufficientBalance
		}

		return domain.ErrStoreUnavailable
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Str("account_id", a.ID).Send()
		return domain.ErrStoreUnavailable
	}

	if n == 0 {
		return domain.ErrVersionConflict
	}

	return nil
}

const listIDsQuery = `
SELECT id FROM accounts
ORDER BY id
`

// ListIDs returns ids of all accounts.
func (r *RepoPGS) ListIDs(ctx context.Context) ([]string, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listIDsQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, domain.ErrStoreUnavailable
	}
	defer rows.Close()

	ids := []string{}

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			l.Error().Err(err).Send()
			return nil, domain.ErrStoreUnavailable
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, domain.ErrStoreUnavailable
	}

	return ids, nil
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.Salt,
		&a.Name,
		&a.Surname,
		&a.VerifiedAccount,
		&a.Balance,
		&a.Version,
		&a.CreatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	a.CreatedAt = a.CreatedAt.UTC()

	return a, nil
}
