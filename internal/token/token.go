// Package token issues and verifies the signed tokens used across the
// auth surface: access and refresh tokens signed with fixed process
// secrets, and password-reset tokens signed with the user's current
// password hash so that changing the password invalidates them.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpiredToken = errors.New("token expired")
	ErrInvalidToken = errors.New("token invalid")
)

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token carrying the subject id, valid for ttl from now.
func Issue(subjectID string, secret []byte, ttl time.Duration) (string, error) {
	return issue(subjectID, "", secret, ttl)
}

// IssueReset signs a password-reset token. The caller passes the user's
// current password hash as the secret; the email claim travels with the
// token so reset links identify the account they were minted for.
func IssueReset(subjectID, email string, secret []byte, ttl time.Duration) (string, error) {
	return issue(subjectID, email, secret, ttl)
}

func issue(subjectID, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return t.SignedString(secret)
}

// Verify checks the signature and expiry and returns the subject id.
// Expiry is reported as ErrExpiredToken; every other failure (bad
// signature, malformed structure, wrong algorithm, empty subject)
// collapses to ErrInvalidToken.
func Verify(tokenStr string, secret []byte) (string, error) {
	parsed := &claims{}
	t, err := jwt.ParseWithClaims(tokenStr, parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !t.Valid || parsed.Subject == "" {
		return "", ErrInvalidToken
	}
	return parsed.Subject, nil
}
