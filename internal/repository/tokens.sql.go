package repository

import (
	"context"
	"database/sql"
)

const createAuthorizationCode = `
INSERT INTO authorization_codes (
    code, client_id, user_id, redirect_uri, scope, created_at
) VALUES (
    ?, ?, ?, ?, ?, ?
)
`

type CreateAuthorizationCodeParams struct {
	Code        string
	ClientID    string
	UserID      string
	RedirectURI string
	Scope       string
	CreatedAt   int64
}

func (q *Queries) CreateAuthorizationCode(ctx context.Context, arg CreateAuthorizationCodeParams) error {
	_, err := q.db.ExecContext(ctx, createAuthorizationCode,
		arg.Code,
		arg.ClientID,
		arg.UserID,
		arg.RedirectURI,
		arg.Scope,
		arg.CreatedAt,
	)
	return err
}

const getAuthorizationCode = `
SELECT client_id, user_id, redirect_uri, scope, created_at FROM authorization_codes
WHERE code = ? LIMIT 1
`

func (q *Queries) GetAuthorizationCode(ctx context.Context, code string) (AuthorizationCode, error) {
	row := q.db.QueryRowContext(ctx, getAuthorizationCode, code)
	var i AuthorizationCode
	err := row.Scan(
		&i.ClientID,
		&i.UserID,
		&i.RedirectURI,
		&i.Scope,
		&i.CreatedAt,
	)
	return i, err
}

const deleteAuthorizationCode = `
DELETE FROM authorization_codes
WHERE code = ?
`

func (q *Queries) DeleteAuthorizationCode(ctx context.Context, code string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAuthorizationCode, code)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createAccessToken = `
INSERT INTO access_tokens (
    token, user_id, client_id, expiration_date, scope
) VALUES (
    ?, ?, ?, ?, ?
)
`

type CreateAccessTokenParams struct {
	Token          string
	UserID         sql.NullString
	ClientID       string
	ExpirationDate int64
	Scope          string
}

func (q *Queries) CreateAccessToken(ctx context.Context, arg CreateAccessTokenParams) error {
	_, err := q.db.ExecContext(ctx, createAccessToken,
		arg.Token,
		arg.UserID,
		arg.ClientID,
		arg.ExpirationDate,
		arg.Scope,
	)
	return err
}

const getAccessToken = `
SELECT user_id, client_id, expiration_date, scope FROM access_tokens
WHERE token = ? LIMIT 1
`

func (q *Queries) GetAccessToken(ctx context.Context, token string) (AccessToken, error) {
	row := q.db.QueryRowContext(ctx, getAccessToken, token)
	var i AccessToken
	err := row.Scan(
		&i.UserID,
		&i.ClientID,
		&i.ExpirationDate,
		&i.Scope,
	)
	return i, err
}

const deleteAccessToken = `
DELETE FROM access_tokens
WHERE token = ?
`

func (q *Queries) DeleteAccessToken(ctx context.Context, token string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAccessToken, token)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpiredAccessTokens = `
DELETE FROM access_tokens
WHERE expiration_date < ?
`

func (q *Queries) DeleteExpiredAccessTokens(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredAccessTokens, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createRefreshToken = `
INSERT INTO refresh_tokens (
    token, user_id, client_id, scope
) VALUES (
    ?, ?, ?, ?
)
`

type CreateRefreshTokenParams struct {
	Token    string
	UserID   sql.NullString
	ClientID string
	Scope    string
}

func (q *Queries) CreateRefreshToken(ctx context.Context, arg CreateRefreshTokenParams) error {
	_, err := q.db.ExecContext(ctx, createRefreshToken,
		arg.Token,
		arg.UserID,
		arg.ClientID,
		arg.Scope,
	)
	return err
}

const getRefreshToken = `
SELECT user_id, client_id, scope FROM refresh_tokens
WHERE token = ? LIMIT 1
`

func (q *Queries) GetRefreshToken(ctx context.Context, token string) (RefreshToken, error) {
	row := q.db.QueryRowContext(ctx, getRefreshToken, token)
	var i RefreshToken
	err := row.Scan(
		&i.UserID,
		&i.ClientID,
		&i.Scope,
	)
	return i, err
}

const deleteRefreshToken = `
DELETE FROM refresh_tokens
WHERE token = ?
`

func (q *Queries) DeleteRefreshToken(ctx context.Context, token string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRefreshToken, token)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
