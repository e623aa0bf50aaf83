package repository

import (
	"context"
)

const upsertClient = `
INSERT INTO clients (
    id, client_id, client_secret, name, trusted_client, redirect_uri, allowed_scopes, created_at
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?
)
ON CONFLICT (client_id) DO UPDATE SET
    client_secret = excluded.client_secret,
    name = excluded.name,
    trusted_client = excluded.trusted_client,
    redirect_uri = excluded.redirect_uri,
    allowed_scopes = excluded.allowed_scopes
RETURNING id, client_id, client_secret, name, trusted_client, redirect_uri, allowed_scopes, created_at
`

type UpsertClientParams struct {
	ID            string
	ClientID      string
	ClientSecret  string
	Name          string
	TrustedClient bool
	RedirectURI   string
	AllowedScopes string
	CreatedAt     int64
}

func (q *Queries) UpsertClient(ctx context.Context, arg UpsertClientParams) (Client, error) {
	row := q.db.QueryRowContext(ctx, upsertClient,
		arg.ID,
		arg.ClientID,
		arg.ClientSecret,
		arg.Name,
		arg.TrustedClient,
		arg.RedirectURI,
		arg.AllowedScopes,
		arg.CreatedAt,
	)
	var i Client
	err := row.Scan(
		&i.ID,
		&i.ClientID,
		&i.ClientSecret,
		&i.Name,
		&i.TrustedClient,
		&i.RedirectURI,
		&i.AllowedScopes,
		&i.CreatedAt,
	)
	return i, err
}

const getClientByID = `
SELECT id, client_id, client_secret, name, trusted_client, redirect_uri, allowed_scopes, created_at FROM clients
WHERE id = ? LIMIT 1
`

func (q *Queries) GetClientByID(ctx context.Context, id string) (Client, error) {
	row := q.db.QueryRowContext(ctx, getClientByID, id)
	var i Client
	err := row.Scan(
		&i.ID,
		&i.ClientID,
		&i.ClientSecret,
		&i.Name,
		&i.TrustedClient,
		&i.RedirectURI,
		&i.AllowedScopes,
		&i.CreatedAt,
	)
	return i, err
}

const getClientByClientID = `
SELECT id, client_id, client_secret, name, trusted_client, redirect_uri, allowed_scopes, created_at FROM clients
WHERE client_id = ? LIMIT 1
`

func (q *Queries) GetClientByClientID(ctx context.Context, clientID string) (Client, error) {
	row := q.db.QueryRowContext(ctx, getClientByClientID, clientID)
	var i Client
	err := row.Scan(
		&i.ID,
		&i.ClientID,
		&i.ClientSecret,
		&i.Name,
		&i.TrustedClient,
		&i.RedirectURI,
		&i.AllowedScopes,
		&i.CreatedAt,
	)
	return i, err
}

const getClientByRedirectPrefix = `
SELECT id, client_id, client_secret, name, trusted_client, redirect_uri, allowed_scopes, created_at FROM clients
WHERE redirect_uri != '' AND substr(?1, 1, length(redirect_uri)) = redirect_uri
ORDER BY rowid ASC LIMIT 1
`

func (q *Queries) GetClientByRedirectPrefix(ctx context.Context, uri string) (Client, error) {
	row := q.db.QueryRowContext(ctx, getClientByRedirectPrefix, uri)
	var i Client
	err := row.Scan(
		&i.ID,
		&i.ClientID,
		&i.ClientSecret,
		&i.Name,
		&i.TrustedClient,
		&i.RedirectURI,
		&i.AllowedScopes,
		&i.CreatedAt,
	)
	return i, err
}
