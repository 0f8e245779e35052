package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenSigner mints a signed admin session token.
type TokenSigner func(ttl time.Duration) (string, error)

// AuthService implements the admin gate: one shared password, bcrypt-hashed
// at startup, exchanged for a session token. This gates UI controls only and
// is not a security boundary.
type AuthService struct {
	passHash  []byte
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token string
}

func NewAuthService(password string, signer TokenSigner) (*AuthService, error) {
	if strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("admin password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		passHash:  hash,
		signToken: signer,
		tokenTTL:  30 * 24 * time.Hour,
	}, nil
}

// Login exchanges the admin password for a session token.
func (s *AuthService) Login(password string) (*AuthResult, error) {
	if strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("password required")
	}
	if err := bcrypt.CompareHashAndPassword(s.passHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid password")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
