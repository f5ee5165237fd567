// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/passpkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo           Repo
	defaultBalance decimal.Decimal
}

// New returns account service struct to manage account bussines logic.
// New accounts are opened with defaultBalance.
func New(ar Repo, defaultBalance decimal.Decimal) *Service {
	return &Service{
		repo:           ar,
		defaultBalance: defaultBalance,
	}
}

// Create opens the account for the given username and returns it without credentials.
func (s *Service) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.AccountPublic, error) {
	l := zerolog.Ctx(ctx)

	salt, err := passpkg.NewSalt()
	if err != nil {
		l.Error().Err(err).Send()
		return domain.AccountPublic{}, errorspkg.ErrInternal
	}

	hash, err := passpkg.Hash(arg.Password, salt)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.AccountPublic{}, errorspkg.ErrInternal
	}

	account := domain.Account{
		ID:           domain.AccountIDFromUsername(arg.Username),
		Username:     arg.Username,
		PasswordHash: hash,
		Salt:         salt,
		Name:         arg.Name,
		Surname:      arg.Surname,
		Balance:      s.defaultBalance,
		Version:      0,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return domain.AccountPublic{}, err
	}

	return created.Public(), nil
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id string) (domain.AccountPublic, error) {
	if !domain.ValidAccountID(id) {
		return domain.AccountPublic{}, domain.ErrInvalidAccountID
	}

	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.AccountPublic{}, err
	}

	return account.Public(), nil
}

// ListIDs returns ids of all accounts.
func (s *Service) ListIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListIDs(ctx)
}

// CheckPassword checks if the password is valid for the given username.
//
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) CheckPassword(ctx context.Context, username, password string) (domain.AccountPublic, error) {
	l := zerolog.Ctx(ctx)

	account, err := s.repo.Get(ctx, domain.AccountIDFromUsername(username))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.AccountPublic{}, domain.ErrWrongCredentials
		}

		return domain.AccountPublic{}, err
	}

	if err := passpkg.Check(password, account.Salt, account.PasswordHash); err != nil {
		l.Warn().Err(err).Str("username", username).Send()
		return domain.AccountPublic{}, domain.ErrWrongCredentials
	}

	return account.Public(), nil
}
