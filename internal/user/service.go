package user

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/auth"
)

// Service owns account provisioning and the login flow.
type Service struct {
	repo     *Repository
	issuer   string
	key      string
	tokenTTL time.Duration
}

// NewService creates a service issuing tokens with the given policy.
func NewService(repo *Repository, issuer, signingKey string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{repo: repo, issuer: issuer, key: signingKey, tokenTTL: tokenTTL}
}

// Register provisions a new account with a hashed password.
func (s *Service) Register(ctx context.Context, email, password string, role auth.Role) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, apperr.Validation("valid email required")
	}
	if len(password) < 8 {
		return User{}, apperr.Validation("password must be at least 8 characters")
	}
	if !role.Valid() {
		return User{}, apperr.Validation("unknown role")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, apperr.Internal("hash password", err)
	}
	return s.repo.Create(ctx, email, string(hash), role)
}

// Login verifies credentials and issues a session token. A missing
// user and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, User{}, apperr.Unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", time.Time{}, User{}, apperr.Unauthorized("invalid credentials")
	}
	token, exp, err := auth.Issue(u.ID, u.Email, u.Role, s.issuer, s.key, s.tokenTTL)
	if err != nil {
		return "", time.Time{}, User{}, apperr.Internal("issue token", err)
	}
	return token, exp, u, nil
}

// EnsureAdmin provisions the bootstrap admin account if it does not
// exist yet. Called once at startup when configured.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.repo.FindByEmail(ctx, strings.ToLower(email)); err == nil {
		return nil
	}
	_, err := s.Register(ctx, email, password, auth.RoleAdmin)
	if apperr.Is(err, apperr.CodeConflict) {
		return nil
	}
	return err
}
