// Package store persists shop owners' account details in PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx used here.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// ErrNotFound is returned when no account exists for an email.
var ErrNotFound = errors.New("account not found")

// Account is a shop owner's contact details.
type Account struct {
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	ShopName  string    `json:"shopName"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Normalize trims every field and lower-cases the email.
func (a Account) Normalize() Account {
	a.Name = strings.TrimSpace(a.Name)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.ShopName = strings.TrimSpace(a.ShopName)
	a.Address = strings.TrimSpace(a.Address)
	return a
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS account_details (
	email      TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	phone      TEXT,
	shop_name  TEXT NOT NULL,
	address    TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const getAccountSQL = `
SELECT email, name, phone, shop_name, address, updated_at
FROM account_details
WHERE email = $1`

const upsertAccountSQL = `
INSERT INTO account_details (email, name, phone, shop_name, address, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (email) DO UPDATE SET
	name = EXCLUDED.name,
	phone = EXCLUDED.phone,
	shop_name = EXCLUDED.shop_name,
	address = EXCLUDED.address,
	updated_at = now()
RETURNING email, name, phone, shop_name, address, updated_at`

// Accounts reads and writes account details.
type Accounts struct {
	db DBTX
}

// NewAccounts creates a repository over db.
func NewAccounts(db DBTX) *Accounts {
	return &Accounts{db: db}
}

// EnsureSchema creates the account table if needed.
func (a *Accounts) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create account_details: %w", err)
	}
	return nil
}

// Get loads the account for email.
func (a *Accounts) Get(ctx context.Context, email string) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	acc, err := scanAccount(a.db.QueryRow(ctx, getAccountSQL, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

// Upsert creates or replaces the account keyed by its email.
func (a *Accounts) Upsert(ctx context.Context, acc Account) (Account, error) {
	acc = acc.Normalize()
	saved, err := scanAccount(a.db.QueryRow(ctx, upsertAccountSQL,
		acc.Email, acc.Name, textOrNull(acc.Phone), acc.ShopName, textOrNull(acc.Address)))
	if err != nil {
		return Account{}, fmt.Errorf("save account: %w", err)
	}
	return saved, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc       Account
		phone     pgtype.Text
		address   pgtype.Text
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&acc.Email, &acc.Name, &phone, &acc.ShopName, &address, &updatedAt); err != nil {
		return Account{}, err
	}
	acc.Phone = phone.String
	acc.Address = address.String
	if updatedAt.Valid {
		acc.UpdatedAt = updatedAt.Time
	}
	return acc, nil
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
