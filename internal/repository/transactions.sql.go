package repository

import (
	"context"
)

const createTransaction = `
INSERT INTO oauth_transactions (
    id, session_uuid, user_id, client_id, redirect_uri, response_type, scope, state, expiry
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?, ?
)
`

type CreateTransactionParams struct {
	ID           string
	SessionUUID  string
	UserID       string
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scope        string
	State        string
	Expiry       int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID,
		arg.SessionUUID,
		arg.UserID,
		arg.ClientID,
		arg.RedirectURI,
		arg.ResponseType,
		arg.Scope,
		arg.State,
		arg.Expiry,
	)
	return err
}

const getTransaction = `
SELECT id, session_uuid, user_id, client_id, redirect_uri, response_type, scope, state, expiry FROM oauth_transactions
WHERE id = ? LIMIT 1
`

func (q *Queries) GetTransaction(ctx context.Context, id string) (OauthTransaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i OauthTransaction
	err := row.Scan(
		&i.ID,
		&i.SessionUUID,
		&i.UserID,
		&i.ClientID,
		&i.RedirectURI,
		&i.ResponseType,
		&i.Scope,
		&i.State,
		&i.Expiry,
	)
	return i, err
}

const deleteTransaction = `
DELETE FROM oauth_transactions
WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpiredTransactions = `
DELETE FROM oauth_transactions
WHERE expiry < ?
`

func (q *Queries) DeleteExpiredTransactions(ctx context.Context, expiry int64) error {
	_, err := q.db.ExecContext(ctx, deleteExpiredTransactions, expiry)
	return err
}
