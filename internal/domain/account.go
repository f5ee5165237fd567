// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountAlreadyExists indicates that the account with the given username already exists.
	ErrAccountAlreadyExists = errors.New("account already exists")
	// ErrVersionConflict indicates that the stored account version differs from the expected one.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrInvalidAccountID indicates malformed account id.
	ErrInvalidAccountID = fmt.Errorf("%w: malformed account id", ErrInvalidArgument)
	// ErrWrongCredentials indicates that the username and password do not match.
	ErrWrongCredentials = errors.New("username and/or password does not match")
)

// accountNamespace seeds account ids. Changing it changes every account id.
var accountNamespace = uuid.MustParse("2f0b8c3e-6c1d-5b7a-9f55-0d2b1c4e8a61")

// Account holds the stored account record.
type Account struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	PasswordHash    string          `json:"password_hash"`
	Salt            string          `json:"salt"`
	Name            string          `json:"name"`
	Surname         string          `json:"surname"`
	VerifiedAccount bool            `json:"verified_account"`
	Balance         decimal.Decimal `json:"balance"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
}

// AccountPublic is Account data excluding credentials.
type AccountPublic struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	Name            string          `json:"name"`
	Surname         string          `json:"surname"`
	VerifiedAccount bool            `json:"verified_account"`
	Balance         decimal.Decimal `json:"balance"`
	Version         int64           `json:"version"`
}

// Public returns the account with removed sensitive data.
func (a Account) Public() AccountPublic {
	return AccountPublic{
		ID:              a.ID,
		Username:        a.Username,
		Name:            a.Name,
		Surname:         a.Surname,
		VerifiedAccount: a.VerifiedAccount,
		Balance:         a.Balance,
		Version:         a.Version,
	}
}

// CreateAccountParams is the input data to create an account.
type CreateAccountParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

// AccountIDFromUsername derives the account id from the username.
//
// The same username always yields the same id.
func AccountIDFromUsername(username string) string {
	return uuid.NewSHA1(accountNamespace, []byte(username)).String()
}

// ValidAccountID reports whether id is a canonical UUID string.
func ValidAccountID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}

	return parsed.String() == id
}
