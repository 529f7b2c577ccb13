package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func scanBudget(row rowScanner) (*core.Budget, error) {
	var (
		b      core.Budget
		amount string
		alert  sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &amount, &alert, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if b.Amount, err = scanDecimal(amount); err != nil {
		return nil, err
	}
	if alert.Valid {
		v := alert.Time
		b.LastAlertSent = &v
	}
	return &b, nil
}

func (d *DB) GetBudget(ctx context.Context, userID uuid.UUID) (*core.Budget, error) {
	query := `
		SELECT id, user_id, amount::text, last_alert_sent, created_at, updated_at
		FROM budgets WHERE user_id = $1`

	b, err := scanBudget(d.q.QueryRow(ctx, query, userID))
	if err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("budget: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (d *DB) UpsertBudget(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*core.Budget, error) {
	query := `
		INSERT INTO budgets (user_id, amount)
		VALUES ($1, $2::numeric)
		ON CONFLICT (user_id) DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()
		RETURNING id, user_id, amount::text, last_alert_sent, created_at, updated_at`

	b, err := scanBudget(d.q.QueryRow(ctx, query, userID, amount.String()))
	if err != nil {
		return nil, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

func (d *DB) MarkBudgetAlerted(ctx context.Context, userID uuid.UUID, at time.Time) error {
	tag, err := d.q.Exec(ctx,
		`UPDATE budgets SET last_alert_sent = $2, updated_at = now() WHERE user_id = $1`,
		userID, at)
	if err != nil {
		return fmt.Errorf("mark budget alerted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("budget: %w", core.ErrNotFound)
	}
	return nil
}
