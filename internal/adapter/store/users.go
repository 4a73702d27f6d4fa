package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
)

const userColumns = `id, username, email, password, name, avatar_url, role, is_active,
	verification_token, reset_token, reset_token_expires, last_login, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &u.AvatarURL, &u.Role, &u.IsActive,
		&u.VerificationToken, &u.ResetToken, &u.ResetTokenExpires, &u.LastLogin,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, lookupErr("get user", err, port.ErrUserNotFound)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by exact email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, lookupErr("get user by email", err, port.ErrUserNotFound)
	}
	return u, nil
}

// CreateUser inserts a new user. The UNIQUE constraints on email and username
// are the race-safety mechanism for concurrent registrations.
func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	query := `INSERT INTO users (username, email, password, name, avatar_url, role, is_active, verification_token)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING ` + userColumns

	created, err := scanUser(s.db.QueryRowContext(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.Name, u.AvatarURL, role, u.IsActive, u.VerificationToken,
	))
	if err != nil {
		if pqErr, ok := isUniqueViolation(err); ok {
			if strings.Contains(pqErr.Constraint, "username") {
				return nil, port.ErrUsernameTaken
			}
			return nil, port.ErrEmailTaken
		}
		return nil, storageErr("create user", err)
	}
	return created, nil
}

// UpdateUser applies the non-nil fields of upd.
func (s *PostgresStore) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error) {
	if upd.Empty() {
		return s.GetUserByID(ctx, id)
	}

	var sets []string
	args := []interface{}{}
	argIdx := 1
	add := func(column string, v interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, v)
		argIdx++
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.AvatarURL != nil {
		add("avatar_url", *upd.AvatarURL)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}

	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argIdx, userColumns)
	args = append(args, id)

	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if _, ok := isUniqueViolation(err); ok {
			return nil, port.ErrUsernameTaken
		}
		return nil, lookupErr("update user", err, port.ErrUserNotFound)
	}
	return u, nil
}

// ListUsers returns all users, newest first.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storageErr("scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}

// VerifyUser consumes a verification token. The token is cleared in the same
// statement, so a second call with it finds nothing.
func (s *PostgresStore) VerifyUser(ctx context.Context, token string) (*domain.User, error) {
	query := `UPDATE users SET is_active = TRUE, verification_token = NULL, updated_at = NOW()
	          WHERE verification_token = $1
	          RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRowContext(ctx, query, token))
	if err != nil {
		return nil, lookupErr("verify user", err, port.ErrInvalidToken)
	}
	return u, nil
}

// SetVerificationToken stores a fresh verification token for the user.
func (s *PostgresStore) SetVerificationToken(ctx context.Context, id int64, token string) error {
	query := `UPDATE users SET verification_token = $1, updated_at = NOW() WHERE id = $2`
	res, err := s.db.ExecContext(ctx, query, token, id)
	if err != nil {
		return storageErr("set verification token", err)
	}
	return requireAffected(res, port.ErrUserNotFound)
}

// SetResetToken stores a password reset token on the user owning email.
func (s *PostgresStore) SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) (*domain.User, error) {
	query := `UPDATE users SET reset_token = $1, reset_token_expires = $2, updated_at = NOW()
	          WHERE email = $3
	          RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRowContext(ctx, query, token, expiresAt, email))
	if err != nil {
		return nil, lookupErr("set reset token", err, port.ErrUserNotFound)
	}
	return u, nil
}

// ResetPassword consumes an unexpired reset token and sets the new password hash.
func (s *PostgresStore) ResetPassword(ctx context.Context, token, passwordHash string) (int64, error) {
	query := `UPDATE users SET password = $1, reset_token = NULL, reset_token_expires = NULL, updated_at = NOW()
	          WHERE reset_token = $2 AND reset_token_expires > NOW()
	          RETURNING id`

	var id int64
	if err := s.db.QueryRowContext(ctx, query, passwordHash, token).Scan(&id); err != nil {
		return 0, lookupErr("reset password", err, port.ErrInvalidToken)
	}
	return id, nil
}

// UpdatePassword replaces the password hash of a user.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2`
	res, err := s.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return storageErr("update password", err)
	}
	return requireAffected(res, port.ErrUserNotFound)
}

// UpdateLastLogin stamps last_login with the current time.
func (s *PostgresStore) UpdateLastLogin(ctx context.Context, id int64) error {
	query := `UPDATE users SET last_login = NOW() WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return storageErr("update last login", err)
	}
	return nil
}

// RecordPasswordChange appends a password change record.
func (s *PostgresStore) RecordPasswordChange(ctx context.Context, id int64) error {
	query := `INSERT INTO password_changes (user_id) VALUES ($1)`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return storageErr("record password change", err)
	}
	return nil
}

// GetLastPasswordChange returns the most recent password change of a user.
func (s *PostgresStore) GetLastPasswordChange(ctx context.Context, id int64) (*domain.PasswordChange, error) {
	query := `SELECT id, user_id, changed_at FROM password_changes
	          WHERE user_id = $1 ORDER BY changed_at DESC LIMIT 1`

	var pc domain.PasswordChange
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&pc.ID, &pc.UserID, &pc.ChangedAt); err != nil {
		return nil, lookupErr("last password change", err, port.ErrNotFound)
	}
	return &pc, nil
}
