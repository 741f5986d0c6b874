// Package token signs and verifies the compact signed tokens that make up a
// session's access/refresh pair. The codec is pure and stateless: keys are
// loaded once at construction and the caller supplies the clock, so the same
// inputs always produce the same verdict.
package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Type tags a token with the operation it may satisfy. Verification fails
// with ErrTypeMismatch when the tag disagrees with the expected type, so an
// access token can never stand in for a refresh token or vice versa.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Verification failures, distinguished so callers can branch on value:
// an expired access token is a rotation signal, the other two are hard
// rejections.
var (
	ErrBadSignature = errors.New("token signature invalid")
	ErrTypeMismatch = errors.New("token type mismatch")
	ErrExpired      = errors.New("token expired")
)

// Claims holds the signed token payload: registered claims plus the type tag.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

// Codec signs and verifies typed session tokens. Construct once at startup
// with NewHMACCodec or NewKeyPairCodec and share; a Codec is immutable and
// safe for concurrent use.
type Codec struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	audience  string
}

// hkdfInfo binds the derived key to this usage so the same master secret can
// safely feed other derivations elsewhere.
const hkdfInfo = "sessioncore/jwt-hs256"

// NewHMACCodec returns a Codec signing with HS256. The signing key is derived
// from secret via HKDF-SHA256 rather than used raw, so a shared or low-entropy
// configuration secret never becomes the literal JWT key.
func NewHMACCodec(secret []byte, issuer, audience string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing secret must not be empty")
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, err
	}
	return &Codec{
		method:    jwt.SigningMethodHS256,
		signKey:   key,
		verifyKey: key,
		issuer:    issuer,
		audience:  audience,
	}, nil
}

// NewKeyPairCodec returns a Codec signing with the given private key using
// RS256 (RSA) or ES256 (ECDSA P-256).
func NewKeyPairCodec(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) (*Codec, error) {
	var method jwt.SigningMethod
	switch privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return nil, errors.New("token: unsupported key type")
	}
	return &Codec{
		method:    method,
		signKey:   privateKey,
		verifyKey: publicKey,
		issuer:    issuer,
		audience:  audience,
	}, nil
}

// Sign issues a token of the given type for subject, valid for ttl from now.
// Returns the compact signed token and its expiry. The clock is truncated to
// whole seconds so the returned expiry equals the one encoded in the claim.
func (c *Codec) Sign(subject string, typ Type, ttl time.Duration, now time.Time) (string, time.Time, error) {
	now = now.UTC().Truncate(time.Second)
	expiry := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		TokenType: string(typ),
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}

// Verify checks tokenString against the codec's key and returns the subject
// and expiry. Failures are reported in a fixed order: ErrBadSignature for a
// malformed token, wrong signature, or wrong issuer/audience; ErrTypeMismatch
// when the type tag disagrees with want; ErrExpired when now is at or past
// the token's expiry. Claims validation is done here, not by the parser, so
// the order holds even for tokens that are both mistyped and expired.
func (c *Codec) Verify(tokenString string, want Type, now time.Time) (string, time.Time, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return c.verifyKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", time.Time{}, ErrBadSignature
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return "", time.Time{}, ErrBadSignature
	}
	if claims.Issuer != c.issuer || !containsAudience(claims.Audience, c.audience) {
		return "", time.Time{}, ErrBadSignature
	}
	if Type(claims.TokenType) != want {
		return "", time.Time{}, ErrTypeMismatch
	}
	if claims.ExpiresAt == nil || !now.UTC().Before(claims.ExpiresAt.Time) {
		return "", time.Time{}, ErrExpired
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
