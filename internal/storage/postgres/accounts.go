package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const accountColumns = `id, user_id, name, type, balance::text, is_default, created_at, updated_at`

func scanAccount(row rowScanner) (*core.Account, error) {
	var (
		a       core.Account
		balance string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &balance, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if a.Balance, err = scanDecimal(balance); err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *DB) CreateAccount(ctx context.Context, a *core.Account) error {
	query := `
		INSERT INTO accounts (user_id, name, type, balance, is_default)
		VALUES ($1, $2, $3, $4::numeric, $5)
		RETURNING id, created_at, updated_at`

	err := d.q.QueryRow(ctx, query,
		a.UserID, a.Name, a.Type, a.Balance.String(), a.IsDefault,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (d *DB) GetAccount(ctx context.Context, id, userID uuid.UUID) (*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`

	a, err := scanAccount(d.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("account: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (d *DB) ListAccounts(ctx context.Context, userID uuid.UUID) ([]storage.AccountSummary, error) {
	query := `
		SELECT a.id, a.user_id, a.name, a.type, a.balance::text, a.is_default,
		       a.created_at, a.updated_at, count(t.id)
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		WHERE a.user_id = $1
		GROUP BY a.id
		ORDER BY a.created_at DESC`

	rows, err := d.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []storage.AccountSummary
	for rows.Next() {
		var (
			s       storage.AccountSummary
			balance string
		)
		err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Type, &balance,
			&s.IsDefault, &s.CreatedAt, &s.UpdatedAt, &s.TransactionCount)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if s.Balance, err = scanDecimal(balance); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (d *DB) AccountOwned(ctx context.Context, accountID, userID uuid.UUID) error {
	var one int
	err := d.q.QueryRow(ctx,
		`SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2`,
		accountID, userID,
	).Scan(&one)
	if err != nil {
		if noRows(err) {
			return fmt.Errorf("account: %w", core.ErrNotFound)
		}
		return fmt.Errorf("check account ownership: %w", err)
	}
	return nil
}

func (d *DB) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) error {
	tag, err := d.q.Exec(ctx,
		`UPDATE accounts SET balance = balance + $2::numeric, updated_at = now() WHERE id = $1`,
		accountID, delta.String())
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjust balance: account: %w", core.ErrNotFound)
	}
	return nil
}

func (d *DB) ClearDefaultAccount(ctx context.Context, userID uuid.UUID) error {
	_, err := d.q.Exec(ctx,
		`UPDATE accounts SET is_default = false, updated_at = now() WHERE user_id = $1 AND is_default`,
		userID)
	if err != nil {
		return fmt.Errorf("clear default account: %w", err)
	}
	return nil
}

func (d *DB) SetDefaultAccount(ctx context.Context, accountID, userID uuid.UUID) (*core.Account, error) {
	query := `
		UPDATE accounts SET is_default = true, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + accountColumns

	a, err := scanAccount(d.q.QueryRow(ctx, query, accountID, userID))
	if err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("account: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("set default account: %w", err)
	}
	return a, nil
}
