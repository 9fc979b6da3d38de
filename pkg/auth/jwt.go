package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the caller identity issued by the authentication service.
type Claims struct {
	jwt.RegisteredClaims
	HospitalID string `json:"hospital_id"`
	UserID     string `json:"user_id"`
}

type Config struct {
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
}

// TokenManager signs and verifies HS256 tokens. Issuing is only used by the
// ops tooling and tests; production tokens come from the auth service.
type TokenManager struct {
	cfg Config
}

func NewTokenManager(cfg Config) *TokenManager {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &TokenManager{cfg: cfg}
}

func (m *TokenManager) Issue(hospitalID, userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TokenTTL)),
		},
		HospitalID: hospitalID.String(),
		UserID:     userID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate returns the tenant and actor of a token.
func (m *TokenManager) Validate(tokenStr string) (hospitalID, userID uuid.UUID, err error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.cfg.Secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	hospitalID, err = uuid.Parse(claims.HospitalID)
	if err != nil || hospitalID == uuid.Nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: hospital_id", ErrInvalidToken)
	}
	userID, err = uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: user_id", ErrInvalidToken)
	}
	return hospitalID, userID, nil
}
