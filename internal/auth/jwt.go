package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gwi.com/aiclone/internal/common"
)

const (
	TokenTypeAccess        = "access"
	TokenTypePasswordReset = "password_reset"
)

// Claims carries the subject (username), its role and the token purpose.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
	Type string `json:"type,omitempty"`
}

type TokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, resetTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		resetTTL:  resetTTL,
		now:       time.Now,
	}
}

// IssueToken signs an access token for subject valid for ttl (the issuer default when ttl <= 0).
func (i *TokenIssuer) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = i.accessTTL
	}
	return i.sign(subject, role, TokenTypeAccess, ttl)
}

// IssueResetToken signs a single-purpose password reset token.
func (i *TokenIssuer) IssueResetToken(subject string) (string, error) {
	return i.sign(subject, "", TokenTypePasswordReset, i.resetTTL)
}

func (i *TokenIssuer) sign(subject, role, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
		Type: typ,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry and returns the embedded claims.
func (i *TokenIssuer) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>" header value.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", common.Unauthorized("Authorization header is required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", common.Unauthorized("Invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}
