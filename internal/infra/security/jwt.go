package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/Abdulrahman-Alhaleme/hostel-comparison-platform/internal/core/domain"
)

const tokenTypeBearer = "bearer"

var (
	// ErrTokenInvalid indicates the token is malformed, carries a bad signature, or lacks a subject.
	ErrTokenInvalid = errors.New("jwt: invalid token")
	// ErrTokenExpired indicates the token signature is valid but its expiry has passed.
	ErrTokenExpired = errors.New("jwt: token expired")
)

// TokenIssuerConfig is the immutable signing configuration loaded at startup.
type TokenIssuerConfig struct {
	Secret    []byte
	Algorithm string
	TTL       time.Duration
	Issuer    string
}

// TokenIssuer signs and verifies HMAC session tokens whose subject is the account email.
type TokenIssuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	issuer string
}

// NewTokenIssuer validates cfg and constructs a TokenIssuer.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("jwt: token ttl must be positive")
	}

	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("jwt: unsupported signing algorithm %q", cfg.Algorithm)
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenIssuer{
		secret: secret,
		method: method,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
	}, nil
}

// Algorithm returns the configured signing algorithm identifier.
func (i *TokenIssuer) Algorithm() string {
	return i.method.Alg()
}

// TTL returns the lifetime applied to issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for subject valid from now until now+TTL.
func (i *TokenIssuer) Issue(subject string, now time.Time) (domain.IssuedToken, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.IssuedToken{}, fmt.Errorf("jwt: subject is required")
	}

	now = now.UTC()
	expiresAt := now.Add(i.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.IssuedToken{
		AccessToken: signed,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// Parse verifies signature, algorithm and expiry and returns the asserted claims.
func (i *TokenIssuer) Parse(token string) (domain.SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.SessionClaims{}, ErrTokenInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.SessionClaims{}, ErrTokenExpired
		}
		return domain.SessionClaims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if parsed == nil || !parsed.Valid {
		return domain.SessionClaims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.SessionClaims{}, fmt.Errorf("%w: subject missing", ErrTokenInvalid)
	}

	result := domain.SessionClaims{
		Subject: claims.Subject,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}
