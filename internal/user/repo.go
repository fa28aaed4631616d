package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/LaythSaleem/student-attendance-system-sub003/internal/apperr"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/auth"
	"github.com/LaythSaleem/student-attendance-system-sub003/internal/store"
)

// User is a provisioned account. The password hash never leaves this
// package except for comparison at login.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists user credentials in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindByEmail returns the user registered under email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM users WHERE email = $1
	`, email)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, apperr.Internal("find user", err)
	}
	return u, nil
}

// Create inserts a new user. A duplicate email yields Conflict.
func (r *Repository) Create(ctx context.Context, email, passwordHash string, role auth.Role) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, u.ID, u.Email, u.PasswordHash, u.Role)
	if err := row.Scan(&u.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, apperr.Conflict("email already registered")
		}
		return User{}, apperr.Internal("create user", err)
	}
	return u, nil
}
