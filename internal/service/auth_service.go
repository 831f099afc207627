package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vigilexam/vigil-backend/internal/config"
	"github.com/vigilexam/vigil-backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors. All token failures collapse to ErrUnauthorized at
// the API boundary so callers cannot distinguish the cause.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized or expired")
)

// TokenType distinguishes attempt-bound candidate tokens from admin tokens.
type TokenType string

const (
	TokenTypeAttempt TokenType = "attempt"
	TokenTypeAdmin   TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields. Attempt
// tokens carry the attempt binding; validity is additionally re-derived
// per request from the stored attempt.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	UserID    string    `json:"user_id,omitempty"`
	AttemptID string    `json:"attempt_id,omitempty"`
	AdminID   int       `json:"admin_id,omitempty"`
}

// AuthService is the session token authority: it mints attempt-bound
// bearer capabilities whose lifetime never exceeds the attempt's
// remaining time, plus longer-lived admin tokens.
type AuthService struct {
	cfg *config.Config
	now func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg, now: time.Now}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueAttemptToken mints a token bound to the attempt, expiring exactly
// at the attempt deadline. Refuses to mint for a finished or overdue
// attempt.
func (s *AuthService) IssueAttemptToken(a *model.Attempt) (string, error) {
	now := s.now()
	if a.Status != model.AttemptStatusInProgress || a.Remaining(now) <= 0 {
		return "", ErrUnauthorized
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   a.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(a.EndTime),
		},
		TokenType: TokenTypeAttempt,
		UserID:    a.UserID,
		AttemptID: a.AttemptID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueAdminToken mints an admin token with the configured expiry.
func (s *AuthService) IssueAdminToken(admin *model.Admin) (string, error) {
	now := s.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   admin.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AdminTokenExpiry)),
		},
		TokenType: TokenTypeAdmin,
		AdminID:   admin.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized
	}

	return claims, nil
}
