package repository

import (
	"context"
)

const createUser = `
INSERT INTO users (
    id, username, email, name, password, role, groups, provider, created_at
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?, ?
)
RETURNING id, username, email, name, password, role, groups, provider, created_at
`

type CreateUserParams struct {
	ID        string
	Username  string
	Email     string
	Name      string
	Password  string
	Role      string
	Groups    string
	Provider  string
	CreatedAt int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.ID,
		arg.Username,
		arg.Email,
		arg.Name,
		arg.Password,
		arg.Role,
		arg.Groups,
		arg.Provider,
		arg.CreatedAt,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Name,
		&i.Password,
		&i.Role,
		&i.Groups,
		&i.Provider,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByID = `
SELECT id, username, email, name, password, role, groups, provider, created_at FROM users
WHERE id = ? LIMIT 1
`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Name,
		&i.Password,
		&i.Role,
		&i.Groups,
		&i.Provider,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByUsername = `
SELECT id, username, email, name, password, role, groups, provider, created_at FROM users
WHERE username = ? LIMIT 1
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Name,
		&i.Password,
		&i.Role,
		&i.Groups,
		&i.Provider,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByEmail = `
SELECT id, username, email, name, password, role, groups, provider, created_at FROM users
WHERE email = ? AND email != '' LIMIT 1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Name,
		&i.Password,
		&i.Role,
		&i.Groups,
		&i.Provider,
		&i.CreatedAt,
	)
	return i, err
}

const updateUserProfile = `
UPDATE users SET
    email = ?,
    name = ?,
    groups = ?
WHERE id = ?
RETURNING id, username, email, name, password, role, groups, provider, created_at
`

type UpdateUserProfileParams struct {
	Email  string
	Name   string
	Groups string
	ID     string
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRowContext(ctx, updateUserProfile,
		arg.Email,
		arg.Name,
		arg.Groups,
		arg.ID,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Name,
		&i.Password,
		&i.Role,
		&i.Groups,
		&i.Provider,
		&i.CreatedAt,
	)
	return i, err
}
