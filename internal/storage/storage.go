// Package storage selects and assembles the account and transfer repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/transferrepo"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/dynamopkg"

	// registers the postgres driver for dbpkg.Setup
	_ "github.com/lib/pq"
)

// AccountRepo provides every account operation used by the services.
type AccountRepo interface {
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
	CompareAndSwap(ctx context.Context, a domain.Account, expectedVersion int64) error
	ListIDs(ctx context.Context) ([]string, error)
}

// TransferRepo provides every ledger operation used by the services.
type TransferRepo interface {
	Create(ctx context.Context, t domain.Transfer) (domain.Transfer, error)
	ListBySource(ctx context.Context, accountID string) ([]domain.Transfer, error)
	ListByDestination(ctx context.Context, accountID string) ([]domain.Transfer, error)
}

// Stores holds the repositories of one backend.
type Stores struct {
	Accounts  AccountRepo
	Transfers TransferRepo

	// Close releases the backend connection. It is never nil.
	Close func() error
}

func noopClose() error { return nil }

// NewPostgres returns stores backed by the given database.
// Closing the stores closes db.
func NewPostgres(db *sql.DB) Stores {
	return Stores{
		Accounts:  accountrepo.NewRepoPGS(db),
		Transfers: transferrepo.NewRepoPGS(db),
		Close:     db.Close,
	}
}

// NewDynamo returns stores backed by the given DynamoDB tables.
func NewDynamo(api dynamopkg.API, accountsTable, transfersTable string) Stores {
	return Stores{
		Accounts:  accountrepo.NewRepoDynamo(api, accountsTable),
		Transfers: transferrepo.NewRepoDynamo(api, transfersTable),
		Close:     noopClose,
	}
}

// NewMemory returns process-local stores.
func NewMemory() Stores {
	return Stores{
		Accounts:  accountrepo.NewRepoMem(),
		Transfers: transferrepo.NewRepoMem(),
		Close:     noopClose,
	}
}

// Open connects to the backend named by config.StoreDriver.
func Open(ctx context.Context, config configpkg.Config) (Stores, error) {
	switch config.StoreDriver {
	case configpkg.StorePostgres:
		db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
		if err != nil {
			return Stores{}, fmt.Errorf("cannot connect to database: %w", err)
		}

		if err := dbpkg.Migrate(ctx, db); err != nil {
			db.Close()
			return Stores{}, err
		}

		return NewPostgres(db), nil

	case configpkg.StoreDynamoDB:
		client, err := dynamopkg.Setup(ctx, dynamopkg.Options{
			Region:   config.DynamoDBRegion,
			Endpoint: config.DynamoDBEndpoint,
			Offline:  config.IsOffline,
		})
		if err != nil {
			return Stores{}, err
		}

		if config.IsOffline {
			err := dynamopkg.EnsureTables(ctx, client, config.AccountsTable, config.TransfersTable)
			if err != nil {
				return Stores{}, err
			}
		}

		return NewDynamo(client, config.AccountsTable, config.TransfersTable), nil

	case configpkg.StoreMemory, "":
		return NewMemory(), nil
	}

	return Stores{}, fmt.Errorf("unsupported store driver %q", config.StoreDriver)
}
