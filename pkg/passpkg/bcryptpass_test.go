package passpkg

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPassword(t *testing.T) {
	password := "abcdefghijklmnopqrstuvwxyz"

	salt, err := NewSalt()
	require.NoError(t, err)
	require.Len(t, salt, 2*saltSize)

	hashedPassword1, err := Hash(password, salt)
	require.NoError(t, err)
	require.NotEmpty(t, hashedPassword1)

	err = Check(password, salt, hashedPassword1)
	require.NoError(t, err)

	wrongPassword := "abc"
	err = Check(wrongPassword, salt, hashedPassword1)
	require.EqualError(t, err, bcrypt.ErrMismatchedHashAndPassword.Error())

	otherSalt, err := NewSalt()
	require.NoError(t, err)
	require.NotEqual(t, salt, otherSalt)

	err = Check(password, otherSalt, hashedPassword1)
	require.EqualError(t, err, bcrypt.ErrMismatchedHashAndPassword.Error())

	// Test for random bcrypt salt generation
	hashedPassword2, err := Hash(password, salt)
	require.NoError(t, err)
	require.NotEqual(t, hashedPassword1, hashedPassword2)
}
