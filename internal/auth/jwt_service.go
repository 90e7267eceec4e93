package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents JWT claims. A token carries exactly one identity:
// UserID for regular logins, AdminID for admin logins. The admin guard
// keys off AdminID alone, so the field name here must stay in sync with
// what the guard reads.
type Claims struct {
	UserID  uint `json:"userId,omitempty"`
	AdminID uint `json:"adminId,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTService creates a new JWT service signing with the given secret.
// Issued tokens expire after ttl.
func NewJWTService(secret string, ttl time.Duration) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// GenerateUserToken issues a token carrying a user identity claim.
func (s *JWTService) GenerateUserToken(userID uint) (string, error) {
	return s.sign(&Claims{
		UserID:           userID,
		RegisteredClaims: s.registered(),
	})
}

// GenerateAdminToken issues a token carrying an admin identity claim.
func (s *JWTService) GenerateAdminToken(adminID uint) (string, error) {
	return s.sign(&Claims{
		AdminID:          adminID,
		RegisteredClaims: s.registered(),
	})
}

func (s *JWTService) registered() jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func (s *JWTService) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
