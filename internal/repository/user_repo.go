package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"auth-service/internal/model"
)

const userColumns = `id, name, email, password_hash, role, is_active, last_login, login_count, created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.IsActive,
		&u.LastLogin, &u.LoginCount, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.User{}, err
	}

	parsed, err := model.ParseRole(role)
	if err != nil {
		return model.User{}, fmt.Errorf("scan user %s: %w", u.ID, err)
	}
	u.Role = parsed

	return u, nil
}

func (r *UserRepository) queryOne(ctx context.Context, op string, sql string, args ...any) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if isUniqueViolation(err) {
		return model.User{}, model.ErrEmailExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.User{}, model.ErrUserNotFound
	}

	return r.queryOne(ctx, "find user by id",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail only matches records of the given role.
func (r *UserRepository) FindByEmail(ctx context.Context, email string, role model.Role) (model.User, error) {
	return r.queryOne(ctx, "find user by email",
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1 AND role = $2`,
		model.NormalizeEmail(email), role.String())
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = $1)`,
		model.NormalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, is_active, login_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Name, model.NormalizeEmail(u.Email), u.PasswordHash, u.Role.String(), u.IsActive,
		u.LoginCount, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// RecordLogin stamps last_login and bumps login_count in one statement.
func (r *UserRepository) RecordLogin(ctx context.Context, id string, at time.Time) (model.User, error) {
	return r.queryOne(ctx, "record login",
		`UPDATE users
		 SET last_login = $2, login_count = login_count + 1, updated_at = $2
		 WHERE id = $1
		 RETURNING `+userColumns, id, at)
}

func (r *UserRepository) Update(ctx context.Context, id string, update model.UserUpdate, at time.Time) (model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.User{}, model.ErrUserNotFound
	}

	var email *string
	if update.Email != nil {
		normalized := model.NormalizeEmail(*update.Email)
		email = &normalized
	}

	return r.queryOne(ctx, "update user",
		`UPDATE users
		 SET name = COALESCE($2, name), email = COALESCE($3, email), updated_at = $4
		 WHERE id = $1
		 RETURNING `+userColumns, id, update.Name, email, at)
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) (model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.User{}, model.ErrUserNotFound
	}

	return r.queryOne(ctx, "set user active",
		`UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1 RETURNING `+userColumns,
		id, active, at)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.ErrUserNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, filter model.UserFilter) ([]model.User, error) {
	where, args := filterClause(filter)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM users %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			userColumns, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context, filter model.UserFilter) (int, error) {
	where, args := filterClause(filter)

	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func filterClause(filter model.UserFilter) (string, []any) {
	conds := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if filter.Role.Valid() {
		args = append(args, filter.Role.String())
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
