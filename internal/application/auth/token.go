package auth

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/flame-data/pkg/errors"
)

const tokenIssuer = "flame-data"

// sessionClaims ties a cookie to a server-side session. The session id is the
// token id; the subject is the user id.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 session tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for the session and its expiry.
func (s *TokenSigner) Sign(sessionID string, userID int64) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := sessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to sign session token")
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its session and user ids. Any failure
// is reported as Unauthorized.
func (s *TokenSigner) Parse(raw string) (string, int64, error) {
	parsed, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", 0, errors.Wrap(err, errors.ErrCodeUnauthorized, "session expired")
		}
		return "", 0, errors.Wrap(err, errors.ErrCodeUnauthorized, "invalid session token")
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return "", 0, errors.Unauthorized()
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", 0, errors.Wrap(err, errors.ErrCodeUnauthorized, "invalid session subject")
	}
	return claims.ID, userID, nil
}
