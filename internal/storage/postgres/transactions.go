package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const transactionColumns = `id, user_id, account_id, type, amount::text, description, category,
	date, receipt_url, is_recurring, recurring_interval, next_recurring_date,
	last_processed, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var (
		t        core.Transaction
		amount   string
		interval sql.NullString
		next     sql.NullTime
		last     sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Type, &amount, &t.Description,
		&t.Category, &t.Date, &t.ReceiptURL, &t.IsRecurring, &interval, &next,
		&last, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.Amount, err = scanDecimal(amount); err != nil {
		return nil, err
	}
	if interval.Valid {
		t.RecurringInterval = core.RecurringInterval(interval.String)
	}
	if next.Valid {
		v := next.Time
		t.NextRecurringDate = &v
	}
	if last.Valid {
		v := last.Time
		t.LastProcessed = &v
	}
	return &t, nil
}

// nullInterval maps the empty interval to SQL NULL.
func nullInterval(i core.RecurringInterval) any {
	if i == "" {
		return nil
	}
	return string(i)
}

func (d *DB) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, account_id, type, amount, description, category,
			date, receipt_url, is_recurring, recurring_interval, next_recurring_date,
			last_processed, status)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := d.q.QueryRow(ctx, query,
		t.UserID, t.AccountID, t.Type, t.Amount.String(), t.Description, t.Category,
		t.Date, t.ReceiptURL, t.IsRecurring, nullInterval(t.RecurringInterval),
		t.NextRecurringDate, t.LastProcessed, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (d *DB) GetTransaction(ctx context.Context, id, userID uuid.UUID) (*core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`

	t, err := scanTransaction(d.q.QueryRow(ctx, query, id, userID))
	if err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("transaction: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (d *DB) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	query := `
		UPDATE transactions
		SET account_id = $3, type = $4, amount = $5::numeric, description = $6,
			category = $7, date = $8, receipt_url = $9, is_recurring = $10,
			recurring_interval = $11, next_recurring_date = $12, status = $13,
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := d.q.QueryRow(ctx, query,
		t.ID, t.UserID, t.AccountID, t.Type, t.Amount.String(), t.Description,
		t.Category, t.Date, t.ReceiptURL, t.IsRecurring,
		nullInterval(t.RecurringInterval), t.NextRecurringDate, t.Status,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return fmt.Errorf("transaction: %w", core.ErrNotFound)
		}
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

func (d *DB) DeleteTransaction(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := d.q.Exec(ctx,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction: %w", core.ErrNotFound)
	}
	return nil
}

func (d *DB) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{f.UserID}

	add := func(clause string, v any) {
		args = append(args, v)
		query += " AND " + clause + "$" + strconv.Itoa(len(args))
	}
	if f.AccountID != nil {
		add("account_id = ", *f.AccountID)
	}
	if f.Type != nil {
		add("type = ", *f.Type)
	}
	if f.Status != nil {
		add("status = ", *f.Status)
	}
	if f.Category != "" {
		add("category = ", f.Category)
	}
	if f.From != nil {
		add("date >= ", *f.From)
	}
	if f.To != nil {
		add("date <= ", *f.To)
	}

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)
	query += fmt.Sprintf(" ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := d.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (d *DB) ListTransactionsByIDs(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ANY($1) AND user_id = $2`

	rows, err := d.q.Query(ctx, query, ids, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by ids: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions by ids: %w", err)
	}
	return out, nil
}

func (d *DB) DeleteTransactionsByIDs(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) error {
	_, err := d.q.Exec(ctx,
		`DELETE FROM transactions WHERE id = ANY($1) AND user_id = $2`, ids, userID)
	if err != nil {
		return fmt.Errorf("delete transactions by ids: %w", err)
	}
	return nil
}

func (d *DB) SumExpenses(ctx context.Context, userID, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var sum string
	err := d.q.QueryRow(ctx, `
		SELECT COALESCE(sum(amount), 0)::text
		FROM transactions
		WHERE user_id = $1 AND account_id = $2 AND type = 'EXPENSE'
		  AND date >= $3 AND date <= $4`,
		userID, accountID, from, to,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return scanDecimal(sum)
}

func (d *DB) ListDueRecurring(ctx context.Context, due time.Time, limit int) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE is_recurring AND next_recurring_date IS NOT NULL AND next_recurring_date <= $1
		ORDER BY next_recurring_date
		LIMIT $2`

	rows, err := d.q.Query(ctx, query, due, limit)
	if err != nil {
		return nil, fmt.Errorf("list due recurring: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due recurring: %w", err)
	}
	return out, nil
}

func (d *DB) MarkRecurringProcessed(ctx context.Context, id uuid.UUID, processedAt, next time.Time) error {
	tag, err := d.q.Exec(ctx, `
		UPDATE transactions
		SET last_processed = $2, next_recurring_date = $3, updated_at = now()
		WHERE id = $1`,
		id, processedAt, next)
	if err != nil {
		return fmt.Errorf("mark recurring processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction: %w", core.ErrNotFound)
	}
	return nil
}
