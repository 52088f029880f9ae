package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// UserRepo is the identity store: accounts in 'users' and their role
// set in 'user_roles'.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts the user together with its roles.  The password must
// already be hashed.  A duplicate email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u model.User, roles []string) error {
	u.Email = normalizeEmail(u.Email)
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, email, full_name, password_hash, is_active, created_at) VALUES (?,?,?,?,?,?)",
		u.ID, u.Email, u.FullName, u.PasswordHash, u.IsActive, u.CreatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role) VALUES (?,?)", u.ID, role); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "email", normalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetRoles returns the user's current role names.  An unknown user has
// an empty role set.
func (r *UserRepo) GetRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT role FROM user_roles WHERE user_id=? ORDER BY role", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *UserRepo) getOne(ctx context.Context, col, val string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,full_name,password_hash,is_active,created_at FROM users WHERE "+col+"=? LIMIT 1",
		val).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
