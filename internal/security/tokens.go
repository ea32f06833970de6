package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, has a bad signature, or names the wrong issuer/audience.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned by strict parsing when an otherwise valid token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// DefaultAccessTTL is the lifetime of an access token.
const DefaultAccessTTL = 20 * time.Minute

// Values of the token_use claim. A token is only accepted by the parser for its own use.
const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// AccessClaims holds JWT claims for the access token. It is a pure bearer credential: no session lookup.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string   `json:"name"`
	Roles    []string `json:"roles"`
	TokenUse string   `json:"token_use"`
}

// RefreshClaims holds JWT claims for the refresh token. Its expiry mirrors the owning session's expiry.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	TokenUse  string `json:"token_use"`
}

// TokenProvider issues and parses access and refresh JWTs.
// It signs with HS256 (shared secret) or RS256/ES256 (private/public key).
type TokenProvider struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	audience  string
	accessTTL time.Duration
	now       func() time.Time
}

// Option configures a TokenProvider.
type Option func(*TokenProvider)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *TokenProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithAccessTTL overrides DefaultAccessTTL.
func WithAccessTTL(ttl time.Duration) Option {
	return func(p *TokenProvider) {
		if ttl > 0 {
			p.accessTTL = ttl
		}
	}
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256).
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, opts ...Option) (*TokenProvider, error) {
	var method jwt.SigningMethod
	switch privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	return newProvider(method, privateKey, publicKey, issuer, audience, opts), nil
}

// NewHMACTokenProvider returns a TokenProvider that signs with HS256 using secret.
func NewHMACTokenProvider(secret []byte, issuer, audience string, opts ...Option) (*TokenProvider, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidKey
	}
	return newProvider(jwt.SigningMethodHS256, secret, secret, issuer, audience, opts), nil
}

func newProvider(method jwt.SigningMethod, signKey, verifyKey any, issuer, audience string, opts []Option) *TokenProvider {
	p := &TokenProvider{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		issuer:    issuer,
		audience:  audience,
		accessTTL: DefaultAccessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration {
	return p.accessTTL
}

// IssueAccessToken issues a short-lived access JWT carrying the caller's username and roles.
// Returns the token and its expiry.
func (p *TokenProvider) IssueAccessToken(username, userID string, roles []string) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := p.now().UTC()
	expiresAt := now.Add(p.accessTTL)
	if roles == nil {
		roles = []string{}
	}
	claims := AccessClaims{
		RegisteredClaims: p.registered(jti, userID, now, expiresAt),
		Username:         username,
		Roles:            roles,
		TokenUse:         tokenUseAccess,
	}
	token, err := jwt.NewWithClaims(p.method, claims).SignedString(p.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// IssueRefreshToken issues a refresh JWT bound to sessionID that expires at expiresAt.
func (p *TokenProvider) IssueRefreshToken(sessionID, userID string, expiresAt time.Time) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", err
	}
	claims := RefreshClaims{
		RegisteredClaims: p.registered(jti, userID, p.now().UTC(), expiresAt.UTC()),
		SessionID:        sessionID,
		TokenUse:         tokenUseRefresh,
	}
	return jwt.NewWithClaims(p.method, claims).SignedString(p.signKey)
}

func (p *TokenProvider) registered(jti, subject string, issuedAt, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   subject,
		Issuer:    p.issuer,
		Audience:  jwt.ClaimStrings{p.audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

// ParseAccess verifies signature, expiry, issuer and audience of an access token.
func (p *TokenProvider) ParseAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := p.parse(tokenString, claims, true); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.TokenUse != tokenUseAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefreshStrict verifies signature and expiry of a refresh token.
// Returns ErrTokenExpired for a correctly signed but expired token and ErrInvalidToken for everything else.
func (p *TokenProvider) ParseRefreshStrict(tokenString string) (*RefreshClaims, error) {
	return p.parseRefresh(tokenString, true)
}

// ParseRefreshBestEffort verifies the signature of a refresh token but ignores its expiry.
// Only logout uses it, to recover the session id of an already expired token.
func (p *TokenProvider) ParseRefreshBestEffort(tokenString string) (*RefreshClaims, error) {
	return p.parseRefresh(tokenString, false)
}

func (p *TokenProvider) parseRefresh(tokenString string, strict bool) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := p.parse(tokenString, claims, strict); err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.Subject == "" || claims.TokenUse != tokenUseRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *TokenProvider) parse(tokenString string, claims jwt.Claims, strict bool) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithTimeFunc(p.now),
	}
	if strict {
		opts = append(opts, jwt.WithExpirationRequired(), jwt.WithIssuer(p.issuer), jwt.WithAudience(p.audience))
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return p.verifyKey, nil
	}, opts...)
	if err != nil {
		if strict && errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	if !strict {
		iss, _ := claims.GetIssuer()
		aud, _ := claims.GetAudience()
		if iss != p.issuer || !slices.Contains(aud, p.audience) {
			return ErrInvalidToken
		}
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
