// Package transferservice manages business logic layer of transfers.
//
// A transfer touches two account records and one ledger record with no
// transaction spanning them. Each account is updated by compare-and-swap on
// its version. The debit is attempted once, the credit is retried until it
// lands, and the ledger append is retried with a fresh id on collision.
package transferservice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountRepo provides account data access needed by the transfer engine.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type AccountRepo interface {
	Get(ctx context.Context, id string) (domain.Account, error)
	CompareAndSwap(ctx context.Context, a domain.Account, expectedVersion int64) error
}

// TransferRepo provides ledger data access needed by the transfer engine.
type TransferRepo interface {
	Create(ctx context.Context, t domain.Transfer) (domain.Transfer, error)
	ListBySource(ctx context.Context, accountID string) ([]domain.Transfer, error)
	ListByDestination(ctx context.Context, accountID string) ([]domain.Transfer, error)
}

// RetryPolicy configures the credit and ledger retry loops.
//
// Once the source is debited the remaining steps run detached from the caller's
// context and stop only when the retries run out or SettleTimeout elapses.
// A zero MaxRetries retries until SettleTimeout; a zero SettleTimeout never expires.
type RetryPolicy struct {
	CreditInterval   time.Duration
	CreditMaxRetries uint64
	LedgerInterval   time.Duration
	LedgerMaxRetries uint64
	SettleTimeout    time.Duration
}

func newBackOff(ctx context.Context, interval time.Duration, maxRetries uint64) backoff.BackOffContext {
	var b backoff.BackOff = backoff.NewConstantBackOff(interval)
	if maxRetries > 0 {
		b = backoff.WithMaxRetries(b, maxRetries)
	}

	return backoff.WithContext(b, ctx)
}

// Service facilitates transfer service layer logic.
type Service struct {
	accounts  AccountRepo
	transfers TransferRepo
	policy    RetryPolicy

	newID func() string
	now   func() time.Time
}

// New returns transfer service struct to manage transfer bussines logic.
func New(ar AccountRepo, tr TransferRepo, policy RetryPolicy) *Service {
	return &Service{
		accounts:  ar,
		transfers: tr,
		policy:    policy,
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Transfer moves arg.Amount from the source account to the destination account
// and records the movement in the ledger.
//
// Errors before the debit leave every record untouched. Once the debit has
// been stored the credit is retried even if ctx is cancelled; if retries run
// out the returned error wraps domain.ErrStoreUnavailable and the debit stays
// in place.
func (s *Service) Transfer(ctx context.Context, arg domain.CreateTransferParams) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	if err := arg.Validate(); err != nil {
		transfersTotal.WithLabelValues(outcomeRejected).Inc()
		return domain.Transfer{}, err
	}

	src, err := s.accounts.Get(ctx, arg.SrcAccountID)
	if err != nil {
		s.countReadFailure(err)
		return domain.Transfer{}, err
	}

	dst, err := s.accounts.Get(ctx, arg.DstAccountID)
	if err != nil {
		s.countReadFailure(err)
		return domain.Transfer{}, err
	}

	if err := s.debit(ctx, src, arg.Amount); err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientBalance):
			transfersTotal.WithLabelValues(outcomeRejected).Inc()
		case errors.Is(err, domain.ErrConcurrentModification):
			transfersTotal.WithLabelValues(outcomeConflict).Inc()
		default:
			transfersTotal.WithLabelValues(outcomeFailed).Inc()
		}

		return domain.Transfer{}, err
	}

	settleCtx, cancel := s.settleContext(ctx)
	defer cancel()

	if err := s.credit(settleCtx, dst, arg.Amount); err != nil {
		transfersTotal.WithLabelValues(outcomeCreditPending).Inc()
		l.Error().Err(err).
			Str("src_account_id", arg.SrcAccountID).
			Str("dst_account_id", arg.DstAccountID).
			Str("amount", arg.Amount.String()).
			Msg("source debited but credit not applied")

		return domain.Transfer{}, fmt.Errorf("%w: credit pending: %v", domain.ErrStoreUnavailable, err)
	}

	t, err := s.appendLedger(settleCtx, arg)
	if err != nil {
		transfersTotal.WithLabelValues(outcomeLedgerPending).Inc()
		l.Error().Err(err).
			Str("src_account_id", arg.SrcAccountID).
			Str("dst_account_id", arg.DstAccountID).
			Str("amount", arg.Amount.String()).
			Msg("balances moved but ledger record not written")

		return domain.Transfer{}, err
	}

	transfersTotal.WithLabelValues(outcomeCompleted).Inc()

	return t, nil
}

// settleContext keeps the values of ctx but not its cancellation: a client
// that goes away after the debit must not leave the credit unapplied.
func (s *Service) settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.policy.SettleTimeout > 0 {
		return context.WithTimeout(detached, s.policy.SettleTimeout)
	}

	return detached, func() {}
}

func (s *Service) countReadFailure(err error) {
	if errors.Is(err, domain.ErrAccountNotFound) {
		transfersTotal.WithLabelValues(outcomeRejected).Inc()
		return
	}

	transfersTotal.WithLabelValues(outcomeFailed).Inc()
}

// debit makes a single attempt; a lost race is reported, not retried.
func (s *Service) debit(ctx context.Context, src domain.Account, amount decimal.Decimal) error {
	balance := src.Balance.Sub(amount)
	if balance.IsNegative() {
		return domain.ErrInsufficientBalance
	}

	next := src
	next.Balance = balance
	next.Version = src.Version + 1

	err := s.accounts.CompareAndSwap(ctx, next, src.Version)
	if errors.Is(err, domain.ErrVersionConflict) {
		return domain.ErrConcurrentModification
	}

	return err
}

// credit adds amount to the destination. The first attempt uses the record
// read before the debit; every retry re-reads it so the amount is added once
// to the current balance.
func (s *Service) credit(ctx context.Context, dst domain.Account, amount decimal.Decimal) error {
	l := zerolog.Ctx(ctx)

	current := dst
	fresh := false

	op := func() error {
		if fresh {
			a, err := s.accounts.Get(ctx, dst.ID)
			if err != nil {
				if errors.Is(err, domain.ErrAccountNotFound) {
					return backoff.Permanent(err)
				}

				return err
			}

			current = a
		}

		fresh = true

		next := current
		next.Balance = current.Balance.Add(amount)
		next.Version = current.Version + 1

		return s.accounts.CompareAndSwap(ctx, next, current.Version)
	}

	notify := func(err error, wait time.Duration) {
		creditRetriesTotal.Inc()
		l.Warn().Err(err).Str("account_id", dst.ID).Dur("wait", wait).Msg("retrying credit")
	}

	return backoff.RetryNotify(op, newBackOff(ctx, s.policy.CreditInterval, s.policy.CreditMaxRetries), notify)
}

// appendLedger inserts the transfer record, drawing a new id after each collision.
func (s *Service) appendLedger(ctx context.Context, arg domain.CreateTransferParams) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	occurredAt := s.now()

	var created domain.Transfer

	op := func() error {
		t, err := s.transfers.Create(ctx, domain.Transfer{
			ID:           s.newID(),
			SrcAccountID: arg.SrcAccountID,
			DstAccountID: arg.DstAccountID,
			Amount:       arg.Amount,
			OccurredAt:   occurredAt,
		})
		if err != nil {
			if errors.Is(err, domain.ErrTransferIDCollision) {
				return err
			}

			return backoff.Permanent(err)
		}

		created = t

		return nil
	}

	notify := func(err error, wait time.Duration) {
		appendRetriesTotal.Inc()
		l.Warn().Err(err).Dur("wait", wait).Msg("retrying ledger append")
	}

	err := backoff.RetryNotify(op, newBackOff(ctx, s.policy.LedgerInterval, s.policy.LedgerMaxRetries), notify)
	if err != nil {
		if errors.Is(err, domain.ErrTransferIDCollision) || errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return domain.Transfer{}, fmt.Errorf("%w: ledger append: %v", domain.ErrStoreUnavailable, err)
		}

		return domain.Transfer{}, err
	}

	return created, nil
}

// ListInvolving returns the transfers where the account is the source or the
// destination, oldest first.
func (s *Service) ListInvolving(ctx context.Context, accountID string) ([]domain.Transfer, error) {
	if !domain.ValidAccountID(accountID) {
		return nil, domain.ErrInvalidAccountID
	}

	sent, err := s.transfers.ListBySource(ctx, accountID)
	if err != nil {
		return nil, err
	}

	received, err := s.transfers.ListByDestination(ctx, accountID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(sent)+len(received))
	result := make([]domain.Transfer, 0, len(sent)+len(received))

	for _, list := range [][]domain.Transfer{sent, received} {
		for _, t := range list {
			if _, ok := seen[t.ID]; ok {
				continue
			}

			seen[t.ID] = struct{}{}
			result = append(result, t)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})

	return result, nil
}
