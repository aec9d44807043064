// Package token issues and verifies the signed tokens used by the web
// layer: bearer tokens for authenticated API sessions and expiring
// share tokens for public agreement-signing links. Both are HMAC
// signed JWTs distinguished by audience.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token audiences. A token issued for one purpose never verifies for
// the other.
const (
	AudienceAPI       = "api"
	AudienceAgreement = "agreement"
)

// ErrInvalidToken is returned for any token that fails verification,
// including expired and wrong-audience tokens.
var ErrInvalidToken = errors.New("invalid token")

// Signer issues and verifies tokens with a shared HMAC secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer for the given secret.
func NewSigner(secret string) *Signer {
	return &Signer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// IssueAPI returns a bearer token identifying the given user.
func (s *Signer) IssueAPI(username string, lifetime time.Duration) (string, error) {
	return s.issue(username, AudienceAPI, lifetime)
}

// VerifyAPI verifies an API bearer token and returns the username it
// was issued for.
func (s *Signer) VerifyAPI(tokenString string) (string, error) {
	return s.verify(tokenString, AudienceAPI)
}

// IssueAgreement returns an expiring share token wrapping an
// agreement's signing token, for embedding in a public signing link.
func (s *Signer) IssueAgreement(signToken string, lifetime time.Duration) (string, error) {
	return s.issue(signToken, AudienceAgreement, lifetime)
}

// VerifyAgreement verifies an agreement share token and returns the
// signing token it wraps.
func (s *Signer) VerifyAgreement(tokenString string) (string, error) {
	return s.verify(tokenString, AudienceAgreement)
}

func (s *Signer) issue(subject, audience string, lifetime time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}
	return signed, nil
}

func (s *Signer) verify(tokenString, audience string) (string, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// NewSignToken returns a random url-safe token for identifying an
// agreement in its public signing link.
func NewSignToken() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("could not generate sign token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
