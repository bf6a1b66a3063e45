package db

import (
	"context"
)

const getUser = `
SELECT email_address, prefix, token, generated_at, expired_at
FROM registrar
WHERE prefix = $1
`

func (q *Queries) GetUser(ctx context.Context, prefix string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, prefix)
	var i User
	err := row.Scan(&i.EmailAddress, &i.Prefix, &i.Token, &i.GeneratedAt, &i.ExpiredAt)
	return i, err
}

const createUser = `
INSERT INTO registrar (email_address, prefix, token, generated_at, expired_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING email_address, prefix, token, generated_at, expired_at
`

type CreateUserParams struct {
	EmailAddress string
	Prefix       string
	Token        string
	GeneratedAt  string
	ExpiredAt    string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.EmailAddress, arg.Prefix, arg.Token, arg.GeneratedAt, arg.ExpiredAt)
	var i User
	err := row.Scan(&i.EmailAddress, &i.Prefix, &i.Token, &i.GeneratedAt, &i.ExpiredAt)
	return i, err
}
