package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"brgykonek/internal/domain"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// JWTService emite y valida los tokens de sesion.
type JWTService struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	denylist TokenDenylist
	now      func() time.Time
}

type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func NewJWTService(secret string, ttl time.Duration, issuer string, denylist TokenDenylist) *JWTService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "brgykonek"
	}
	if denylist == nil {
		denylist = NewMemoryTokenDenylist()
	}
	return &JWTService{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   issuer,
		denylist: denylist,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *JWTService) Issue(user domain.User) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret not configured")
	}
	if strings.TrimSpace(user.ID) == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		UserID: user.ID,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate distingue token vencido de token invalido.
func (s *JWTService) Validate(ctx context.Context, tokenString string) (Claims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return Claims{}, domain.ErrTokenInvalid
	}

	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, domain.ErrTokenExpired
		}
		return Claims{}, domain.ErrTokenInvalid
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return Claims{}, domain.ErrTokenInvalid
	}

	// un fallo del denylist no invalida la sesion
	if revoked, err := s.denylist.Contains(ctx, claims.ID); err == nil && revoked {
		return Claims{}, domain.ErrTokenInvalid
	}
	return claims, nil
}

// Revoke invalida el token hasta su vencimiento natural.
func (s *JWTService) Revoke(ctx context.Context, claims Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return domain.ErrTokenInvalid
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.denylist.Add(ctx, claims.ID, ttl)
}
