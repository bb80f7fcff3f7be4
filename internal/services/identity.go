package services

import (
	"context"
	"strings"
	"time"

	"github.com/AnshRaj112/reflect-backend/internal/logger"
	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

// Identity is the verified caller as described by the identity provider.
type Identity struct {
	ExternalID string
	Name       string
	Email      string
	ImageURL   string
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.ExternalID != ""
}

type identityClaims struct {
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Picture    string `json:"picture"`
	jwt.RegisteredClaims
}

// IdentityVerifier checks session tokens issued by the identity provider.
type IdentityVerifier struct {
	keyfunc jwt.Keyfunc
	methods []string
	issuer  string
	jwks    *keyfunc.JWKS
}

// NewJWKSVerifier verifies RS256/ES256 tokens against the provider's JWKS,
// refreshing keys in the background.
func NewJWKSVerifier(jwksURL, issuer string) (*IdentityVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Log.WithError(err).Warn("failed to refresh identity JWKS")
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "load identity JWKS")
	}
	return &IdentityVerifier{
		keyfunc: jwks.Keyfunc,
		methods: []string{"RS256", "ES256"},
		issuer:  issuer,
		jwks:    jwks,
	}, nil
}

// NewHMACVerifier verifies HS256 tokens signed with secret. Meant for local runs.
func NewHMACVerifier(secret, issuer string) *IdentityVerifier {
	key := []byte(secret)
	return &IdentityVerifier{
		keyfunc: func(*jwt.Token) (interface{}, error) { return key, nil },
		methods: []string{"HS256"},
		issuer:  issuer,
	}
}

// Verify parses token and returns the identity it asserts.
func (v *IdentityVerifier) Verify(token string) (Identity, error) {
	var claims identityClaims
	_, err := jwt.ParseWithClaims(token, &claims, v.keyfunc, jwt.WithValidMethods(v.methods))
	if err != nil {
		return Identity{}, errors.Wrap(err, "invalid session token")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Identity{}, errors.New("unexpected token issuer")
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("token has no subject")
	}

	name := claims.Name
	if name == "" {
		name = strings.TrimSpace(claims.GivenName + " " + claims.FamilyName)
	}
	return Identity{
		ExternalID: claims.Subject,
		Name:       name,
		Email:      claims.Email,
		ImageURL:   claims.Picture,
	}, nil
}

// Close stops the background JWKS refresh.
func (v *IdentityVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
