package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegate/internal/config"
)

func newTestIssuer(t *testing.T, secret string) (*TokenIssuer, *Accounts) {
	t.Helper()
	accounts := testAccounts(t)
	issuer := NewTokenIssuer([]byte(secret), time.Hour, accounts)
	return issuer, accounts
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer, accounts := newTestIssuer(t, "test-secret")

	acct, ok := accounts.Get("bob")
	require.True(t, ok)

	token, err := issuer.Issue(acct)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resolved, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", resolved.Name)
	assert.False(t, resolved.IsAdmin())
}

func TestTokenExpired(t *testing.T) {
	issuer, accounts := newTestIssuer(t, "test-secret")
	acct, _ := accounts.Get("bob")

	token, err := issuer.Issue(acct)
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer, accounts := newTestIssuer(t, "secret-one")
	other, _ := newTestIssuer(t, "secret-two")
	acct, _ := accounts.Get("bob")

	token, err := issuer.Issue(acct)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenGarbage(t *testing.T) {
	issuer, _ := newTestIssuer(t, "test-secret")

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestTokenDisabledAfterIssue(t *testing.T) {
	issuer, accounts := newTestIssuer(t, "test-secret")
	acct, _ := accounts.Get("bob")

	token, err := issuer.Issue(acct)
	require.NoError(t, err)

	require.NoError(t, accounts.SetEnabled("bob", false))

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestTokenUnknownSubject(t *testing.T) {
	issuerA, accountsA := newTestIssuer(t, "shared")
	acct, _ := accountsA.Get("bob")
	token, err := issuerA.Issue(acct)
	require.NoError(t, err)

	// Same secret, different account table without bob.
	other, err := NewAccounts([]config.AccountEntry{
		{Name: "carol", Role: "user", Enabled: true},
	})
	require.NoError(t, err)
	issuerB := NewTokenIssuer([]byte("shared"), time.Hour, other)

	_, err = issuerB.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
