package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type TokenVerifier interface {
	Verify(tokenStr string) (*Claims, error)
}

// HMACTokens issues and verifies the HS256 tokens handed out at login.
type HMACTokens struct {
	secret []byte
	ttl    time.Duration
}

func NewHMACTokens(secret string, ttl time.Duration) *HMACTokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HMACTokens{secret: []byte(secret), ttl: ttl}
}

func (h *HMACTokens) Issue(userID, email, name, role string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(h.ttl)
	claims := Claims{
		Role:  role,
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

func (h *HMACTokens) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWKSVerifier accepts tokens signed by an external identity provider.
type JWKSVerifier struct {
	jwks *keyfunc.JWKS
}

func NewJWKSVerifier(ctx context.Context, jwksURL string) (*JWKSVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return &JWKSVerifier{jwks: jwks}, nil
}

func (v *JWKSVerifier) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, v.jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (v *JWKSVerifier) Close() {
	v.jwks.EndBackground()
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier []TokenVerifier

func (c ChainVerifier) Verify(tokenStr string) (*Claims, error) {
	lastErr := ErrInvalidToken
	for _, v := range c {
		if v == nil {
			continue
		}
		claims, err := v.Verify(tokenStr)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
