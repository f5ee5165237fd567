package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidArgument indicates a malformed transfer request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidAmount indicates non-positive amount.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	// ErrSameAccount indicates a transfer to the source account itself.
	ErrSameAccount = fmt.Errorf("%w: source and destination accounts must differ", ErrInvalidArgument)
	// ErrInsufficientBalance indicates that the account does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrConcurrentModification indicates that the source account was modified by another writer.
	ErrConcurrentModification = errors.New("account has been modified concurrently")
	// ErrTransferIDCollision indicates that a transfer with the same id is already stored.
	ErrTransferIDCollision = errors.New("transfer id already exists")
	// ErrInvalidOwner indicates that the user is unauthorized to transfer money from the account.
	ErrInvalidOwner = errors.New("unauthorized owner")
	// ErrStoreUnavailable indicates a transient store failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Transfer holds an immutable ledger record of a completed transfer.
type Transfer struct {
	ID           string          `json:"id"`
	SrcAccountID string          `json:"srcAccountId"`
	DstAccountID string          `json:"dstAccountId"`
	Amount       decimal.Decimal `json:"amount"` // must be positive
	OccurredAt   time.Time       `json:"occurredAt"`
}

// CreateTransferParams is the input data for the transfer.
type CreateTransferParams struct {
	SrcAccountID string          `json:"srcAccountId"`
	DstAccountID string          `json:"dstAccountId"`
	Amount       decimal.Decimal `json:"amount"`
}

// Validate checks transfer preconditions that do not need the store.
func (p CreateTransferParams) Validate() error {
	if !ValidAccountID(p.SrcAccountID) || !ValidAccountID(p.DstAccountID) {
		return ErrInvalidAccountID
	}

	if p.SrcAccountID == p.DstAccountID {
		return ErrSameAccount
	}

	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	return nil
}
