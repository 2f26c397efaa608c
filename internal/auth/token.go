package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/blog-api/internal/clock"
	"github.com/spec-kit/blog-api/internal/domain"
)

// DefaultIssuer is the iss claim stamped on every token.
const DefaultIssuer = "blog-api"

var errMissingType = errors.New("token carries no type claim")

// Claims describes JWT payload.
type Claims struct {
	Type domain.TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenCodec mints and verifies RS256 signed tokens.
type TokenCodec struct {
	keys   *KeyPair
	issuer string
	clock  clock.Clock
}

// NewTokenCodec builds a codec. An empty issuer falls back to DefaultIssuer.
func NewTokenCodec(keys *KeyPair, issuer string, clk clock.Clock) *TokenCodec {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if clk == nil {
		clk = clock.New()
	}
	return &TokenCodec{keys: keys, issuer: issuer, clock: clk}
}

// Now returns the codec's notion of the current time.
func (tc *TokenCodec) Now() time.Time {
	return tc.clock.Now()
}

// Mint builds and signs a token for subject that expires expiresInSeconds after issuedAt.
func (tc *TokenCodec) Mint(subject string, issuedAt time.Time, expiresInSeconds int64, tokenType domain.TokenType) (domain.IssuedToken, error) {
	if !tokenType.Valid() {
		return domain.IssuedToken{}, errMissingType
	}
	expiresAt := issuedAt.Add(time.Duration(expiresInSeconds) * time.Second)
	claims := &Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tc.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(tc.keys.Private)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{
		Value:     signed,
		Type:      tokenType,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
// A token is expired once the clock reaches its exp claim.
func (tc *TokenCodec) Parse(tokenStr string) (*Claims, error) {
	return tc.parse(tokenStr,
		jwt.WithIssuer(tc.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tc.clock.Now),
	)
}

// Verify reports whether the token has a valid signature and is unexpired.
// Any decoding problem yields false.
func (tc *TokenCodec) Verify(tokenStr string) bool {
	_, err := tc.Parse(tokenStr)
	return err == nil
}

// SubjectOf returns the subject of a token whose signature checks out, ignoring expiry.
func (tc *TokenCodec) SubjectOf(tokenStr string) (string, bool) {
	claims, err := tc.parse(tokenStr, jwt.WithoutClaimsValidation())
	if err != nil || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// TypeOf returns the explicit type claim of a token whose signature checks out.
func (tc *TokenCodec) TypeOf(tokenStr string) (domain.TokenType, bool) {
	claims, err := tc.parse(tokenStr, jwt.WithoutClaimsValidation())
	if err != nil || !claims.Type.Valid() {
		return "", false
	}
	return claims.Type, true
}

// ExpiresAt returns the exp claim of a token whose signature checks out.
func (tc *TokenCodec) ExpiresAt(tokenStr string) (time.Time, bool) {
	claims, err := tc.parse(tokenStr, jwt.WithoutClaimsValidation())
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (tc *TokenCodec) parse(tokenStr string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tc.keys.Public, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
