package store

import (
	"context"
	"fmt"
	"time"

	"github.com/codr1/courtbook/internal/authz"
	"github.com/codr1/courtbook/internal/models"
)

const listRoles = `SELECT id, name FROM roles ORDER BY id`

func (q *Queries) ListRoles(ctx context.Context) ([]authz.RoleRecord, error) {
	rows, err := q.db.QueryContext(ctx, listRoles)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []authz.RoleRecord
	for rows.Next() {
		var role authz.RoleRecord
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

const createRole = `INSERT INTO roles (name) VALUES (?) RETURNING id`

func (q *Queries) CreateRole(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := q.db.QueryRowContext(ctx, createRole, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("create role: %w", err)
	}
	return id, nil
}

type CreateUserParams struct {
	Name   string
	Email  string
	RoleID int64
	Now    time.Time
}

const createUser = `
INSERT INTO users (name, email, role_id, created_at)
VALUES (?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createUser, arg.Name, arg.Email, arg.RoleID, toUnix(arg.Now)).Scan(&id)
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return models.User{ID: id, Name: arg.Name, Email: arg.Email, RoleID: arg.RoleID}, nil
}

const getUser = `
SELECT id, name, email, role_id
FROM users
WHERE id = ? AND deleted_at IS NULL`

// GetUser returns sql.ErrNoRows for unknown or soft-deleted users.
func (q *Queries) GetUser(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(&user.ID, &user.Name, &user.Email, &user.RoleID)
	return user, err
}
