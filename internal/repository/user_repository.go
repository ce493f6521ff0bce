package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/wbs-api/internal/models"
	appErrors "github.com/noah-isme/wbs-api/pkg/errors"
)

const userColumns = `id, nik, name, username, email, password_hash, phone, role, refresh_token, created_at, updated_at`

// uniqueViolation is the SQLSTATE Postgres reports for unique index conflicts.
const uniqueViolation = "23505"

// Unique columns and the label used when reporting a duplicate, checked in this order.
var uniqueFields = []struct {
	column string
	label  string
}{
	{"username", "Username"},
	{"email", "Email"},
	{"nik", "NIK"},
	{"phone", "Phone number"},
}

// UserRepository provides database access for accounts and their refresh tokens.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id", id)
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", email)
}

// FindByUsername returns a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username", username)
}

// FindByRefreshToken returns the user currently holding token.
func (r *UserRepository) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, "refresh_token", token)
}

func (r *UserRepository) findOne(ctx context.Context, column, value string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s = $1 LIMIT 1", userColumns, column)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find user by %s: %w", column, err)
	}
	return &user, nil
}

// FindDuplicateField returns the label of the first unique field of user that
// is already taken, or an empty string when none is.
func (r *UserRepository) FindDuplicateField(ctx context.Context, user *models.User) (string, error) {
	values := map[string]*string{
		"username": user.Username,
		"email":    user.Email,
		"nik":      user.NIK,
		"phone":    user.Phone,
	}

	var conditions []string
	var args []interface{}
	for _, f := range uniqueFields {
		if v := values[f.column]; v != nil && *v != "" {
			args = append(args, *v)
			conditions = append(conditions, fmt.Sprintf("%s = $%d", f.column, len(args)))
		}
	}
	if len(conditions) == 0 {
		return "", nil
	}

	query := fmt.Sprintf("SELECT %s FROM users WHERE %s", userColumns, strings.Join(conditions, " OR "))
	var existing []models.User
	if err := r.db.SelectContext(ctx, &existing, query, args...); err != nil {
		return "", fmt.Errorf("find duplicate user: %w", err)
	}

	for _, f := range uniqueFields {
		want := values[f.column]
		if want == nil || *want == "" {
			continue
		}
		for i := range existing {
			if got := uniqueValue(&existing[i], f.column); got != nil && *got == *want {
				return f.label, nil
			}
		}
	}
	return "", nil
}

func uniqueValue(u *models.User, column string) *string {
	switch column {
	case "username":
		return u.Username
	case "email":
		return u.Email
	case "nik":
		return u.NIK
	case "phone":
		return u.Phone
	}
	return nil
}

// EmailTaken reports whether another account already uses email.
func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, email, excludeID); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return taken, nil
}

// CountByRole returns the number of accounts holding role.
func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, role); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return total, nil
}

// Create inserts a new user. A unique index violation is reported as a conflict
// naming the offending field.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, nik, name, username, email, password_hash, phone, role, created_at, updated_at) VALUES (:id, :nik, :name, :username, :email, :password_hash, :phone, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		if conflict := conflictFromPQ(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash and drops the stored refresh token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, refresh_token = NULL, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateProfile changes the name and, when non-nil, the email of a user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id, name string, email *string, updatedAt time.Time) error {
	const query = `UPDATE users SET name = $2, email = COALESCE($3, email), updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, name, email, updatedAt); err != nil {
		if conflict := conflictFromPQ(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// SetRefreshToken replaces the stored refresh token after a login.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	const query = `UPDATE users SET refresh_token = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RotateRefreshToken swaps oldToken for newToken only while oldToken is still
// the stored value. It reports false when another request rotated it first.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) (bool, error) {
	const query = `UPDATE users SET refresh_token = $3 WHERE id = $1 AND refresh_token = $2`
	res, err := r.db.ExecContext(ctx, query, id, oldToken, newToken)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return n == 1, nil
}

// ClearRefreshToken drops token only when it belongs to the given account.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id, token string) error {
	const query = `UPDATE users SET refresh_token = NULL WHERE id = $1 AND refresh_token = $2`
	if _, err := r.db.ExecContext(ctx, query, id, token); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func conflictFromPQ(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return nil
	}
	for _, f := range uniqueFields {
		if strings.Contains(pqErr.Constraint, f.column) {
			return appErrors.Clone(appErrors.ErrConflict, f.label+" already exists")
		}
	}
	return appErrors.Clone(appErrors.ErrConflict, "User already exists")
}
