// Package auth implements the identity layer: signed, time-limited identity
// tokens and the cookie policy that transports them.
//
// Tokens are stateless: nothing is persisted server-side and validity is
// purely cryptographic plus expiry. That also means logout cannot revoke a
// token. Clearing the transport cookie is all the server can do, and a
// still-valid token presented via the Authorization header keeps
// authenticating until it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single externally visible verification failure.
// Forged signatures, malformed payloads, and expired tokens all wrap it;
// the wrapped cause string distinguishes them for logs and error bodies.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity a verified token resolves to.
type Claims struct {
	UserID string
	Email  string
}

// tokenClaims is the on-the-wire claim set: registered claims plus the email.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256-signed identity tokens. The signing secret
// is process-wide configuration fixed at startup; config.Load refuses to
// start without one, so a zero-length secret never reaches this type in a
// running server.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer returns an Issuer signing with secret and stamping expiries ttl
// from issuance.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// TTL reports the configured token lifetime. The cookie policy uses it so the
// cookie's Max-Age matches the token expiry.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue mints a signed token embedding the user id, email, and an expiry
// derived from the configured ttl.
func (i *Issuer) Issue(userID, email string) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks signature and expiry and returns the embedded identity.
// A syntactically valid but expired token fails exactly like a forged one:
// both return an error wrapping ErrInvalidToken, differing only in cause.
func (i *Issuer) Verify(token string) (*Claims, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: malformed token", ErrInvalidToken)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Claims{UserID: claims.Subject, Email: claims.Email}, nil
}
