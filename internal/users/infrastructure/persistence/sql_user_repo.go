// Package persistence implements the user repository over SQL datastores.
package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
	"github.com/felixgeelhaar/conduit/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/conduit/internal/users/domain"
)

// SQLUserRepository persists users in whichever datastore the current
// request targets: the executor is resolved from the active transaction
// alias, falling back to the default connection outside a transaction.
type SQLUserRepository struct {
	db *database.Manager
}

// NewSQLUserRepository creates a repository over the connection manager.
func NewSQLUserRepository(db *database.Manager) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

func (r *SQLUserRepository) executor(ctx context.Context) (database.Executor, database.Driver, error) {
	alias := r.db.ActiveAlias(ctx)
	conn, err := r.db.Get(alias)
	if err != nil {
		return nil, "", err
	}
	return database.ExecutorFromContext(ctx, alias, conn), conn.Driver(), nil
}

// Create implements domain.Repository.
func (r *SQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query := database.Rebind(driver, `
		INSERT INTO users (id, username, email, user_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err = exec.Exec(ctx, query,
		user.ID.String(), user.Username, user.Email, string(user.UserType),
		user.CreatedAt, user.UpdatedAt,
	)
	if database.IsUniqueViolation(err) {
		return application.NewConflict("username or email already taken").WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update implements domain.Repository.
func (r *SQLUserRepository) Update(ctx context.Context, user *domain.User) error {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query := database.Rebind(driver, `
		UPDATE users
		SET username = ?, email = ?, user_type = ?, updated_at = ?
		WHERE id = ?`)
	res, err := exec.Exec(ctx, query,
		user.Username, user.Email, string(user.UserType), user.UpdatedAt,
		user.ID.String(),
	)
	if database.IsUniqueViolation(err) {
		return application.NewConflict("username or email already taken").WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return application.NewNotFound("user not found")
	}
	return nil
}

// Delete implements domain.Repository.
func (r *SQLUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query := database.Rebind(driver, `DELETE FROM users WHERE id = ?`)
	res, err := exec.Exec(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return application.NewNotFound("user not found")
	}
	return nil
}

// GetByID implements domain.Repository.
func (r *SQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query := database.Rebind(driver, `
		SELECT id, username, email, user_type, created_at, updated_at
		FROM users WHERE id = ?`)
	return r.scanUser(exec.QueryRow(ctx, query, id.String()))
}

// GetByUsername implements domain.Repository.
func (r *SQLUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query := database.Rebind(driver, `
		SELECT id, username, email, user_type, created_at, updated_at
		FROM users WHERE username = ?`)
	return r.scanUser(exec.QueryRow(ctx, query, username))
}

// List implements domain.Repository.
func (r *SQLUserRepository) List(ctx context.Context, page, pageSize int) ([]*domain.User, int64, error) {
	exec, driver, err := r.executor(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	countQuery := database.Rebind(driver, `SELECT COUNT(*) FROM users`)
	if err := exec.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := database.Rebind(driver, `
		SELECT id, username, email, user_type, created_at, updated_at
		FROM users
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`)
	rows, err := exec.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLUserRepository) scanUser(row scanner) (*domain.User, error) {
	user, err := scanUserRow(row)
	if database.IsNoRows(err) {
		return nil, application.NewNotFound("user not found")
	}
	return user, err
}

func scanUserRow(row scanner) (*domain.User, error) {
	var (
		user     domain.User
		id       string
		userType string
	)
	err := row.Scan(&id, &user.Username, &user.Email, &userType, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", id, err)
	}
	user.ID = parsed
	user.UserType = domain.UserType(userType)
	return &user, nil
}
