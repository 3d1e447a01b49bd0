package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"codegate/pkg/models"
)

// TokenIssuer mints and verifies signed session tokens. Tokens are
// stateless: validity is the signature plus the expiry claim, with the
// subject account re-resolved on every verification so that disabling an
// account invalidates its outstanding tokens immediately.
type TokenIssuer struct {
	secret   []byte
	ttl      time.Duration
	accounts *Accounts
	now      func() time.Time
}

// NewTokenIssuer creates a TokenIssuer signing with the process-wide secret.
func NewTokenIssuer(secret []byte, ttl time.Duration, accounts *Accounts) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl, accounts: accounts, now: time.Now}
}

// Issue mints a signed token for the account.
func (t *TokenIssuer) Issue(account *models.Account) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   account.Name,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks signature and expiry, then re-resolves the subject
// account and its enabled state.
func (t *TokenIssuer) Verify(raw string) (*models.Account, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrTokenInvalid
			}
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	acct, ok := t.accounts.Get(claims.Subject)
	if !ok {
		return nil, ErrTokenInvalid
	}
	if !acct.Enabled {
		return nil, ErrAccountDisabled
	}
	return acct, nil
}
