package repository

import (
	"context"
)

const createSession = `
INSERT INTO sessions (
    uuid, user_id, provider, csrf_token, return_to, expiry, created_at
) VALUES (
    ?, ?, ?, ?, ?, ?, ?
)
RETURNING uuid, user_id, provider, csrf_token, return_to, expiry, created_at
`

type CreateSessionParams struct {
	UUID      string
	UserID    string
	Provider  string
	CsrfToken string
	ReturnTo  string
	Expiry    int64
	CreatedAt int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, createSession,
		arg.UUID,
		arg.UserID,
		arg.Provider,
		arg.CsrfToken,
		arg.ReturnTo,
		arg.Expiry,
		arg.CreatedAt,
	)
	var i Session
	err := row.Scan(
		&i.UUID,
		&i.UserID,
		&i.Provider,
		&i.CsrfToken,
		&i.ReturnTo,
		&i.Expiry,
		&i.CreatedAt,
	)
	return i, err
}

const getSession = `
SELECT uuid, user_id, provider, csrf_token, return_to, expiry, created_at FROM sessions
WHERE uuid = ? LIMIT 1
`

func (q *Queries) GetSession(ctx context.Context, uuid string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, uuid)
	var i Session
	err := row.Scan(
		&i.UUID,
		&i.UserID,
		&i.Provider,
		&i.CsrfToken,
		&i.ReturnTo,
		&i.Expiry,
		&i.CreatedAt,
	)
	return i, err
}

const updateSessionUser = `
UPDATE sessions SET
    user_id = ?,
    provider = ?,
    expiry = ?
WHERE uuid = ?
`

type UpdateSessionUserParams struct {
	UserID   string
	Provider string
	Expiry   int64
	UUID     string
}

func (q *Queries) UpdateSessionUser(ctx context.Context, arg UpdateSessionUserParams) error {
	_, err := q.db.ExecContext(ctx, updateSessionUser,
		arg.UserID,
		arg.Provider,
		arg.Expiry,
		arg.UUID,
	)
	return err
}

const updateSessionCsrfToken = `
UPDATE sessions SET
    csrf_token = ?
WHERE uuid = ?
`

func (q *Queries) UpdateSessionCsrfToken(ctx context.Context, csrfToken string, uuid string) error {
	_, err := q.db.ExecContext(ctx, updateSessionCsrfToken, csrfToken, uuid)
	return err
}

const updateSessionReturnTo = `
UPDATE sessions SET
    return_to = ?
WHERE uuid = ?
`

func (q *Queries) UpdateSessionReturnTo(ctx context.Context, returnTo string, uuid string) error {
	_, err := q.db.ExecContext(ctx, updateSessionReturnTo, returnTo, uuid)
	return err
}

const deleteSession = `
DELETE FROM sessions
WHERE uuid = ?
`

func (q *Queries) DeleteSession(ctx context.Context, uuid string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, uuid)
	return err
}

const deleteExpiredSessions = `
DELETE FROM sessions
WHERE expiry < ?
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, expiry int64) error {
	_, err := q.db.ExecContext(ctx, deleteExpiredSessions, expiry)
	return err
}
