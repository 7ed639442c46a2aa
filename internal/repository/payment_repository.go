package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronkov/tutorhub/internal/model"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// CreateDue выставляет платёж на весь текущий долг леджера.
// Вставка обусловлена самим леджером: если долг к этому моменту уже закрыт
// расчётом (или не дотягивает до порога), строка не создаётся и метод
// возвращает nil. FOR UPDATE заставляет вставку дождаться конкурентной
// транзакции расчёта и перечитать долг после её коммита.
func (r *PaymentRepository) CreateDue(ctx context.Context, ledgerID int64, hourlyRateCents int64, dueDate time.Time) (*model.Payment, error) {
	query := `
		INSERT INTO payments (ledger_id, amount_cents, hours_included, status, due_date)
		SELECT l.id, ROUND(l.unpaid_hours * $2)::bigint, l.unpaid_hours, 'due', $3
		FROM lecture_hours_ledgers l
		WHERE l.id = $1 AND l.unpaid_hours >= l.payment_interval_hours
		FOR UPDATE
		RETURNING id, amount_cents, hours_included, created_at, updated_at
	`

	payment := &model.Payment{
		LedgerID: ledgerID,
		Status:   model.PaymentStatusDue,
		DueDate:  &dueDate,
	}
	err := r.pool.QueryRow(ctx, query, ledgerID, hourlyRateCents, dueDate).Scan(
		&payment.ID,
		&payment.AmountCents,
		&payment.HoursIncluded,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("create due payment: %w", err)
	}

	return payment, nil
}

// GetOpenDue получает неоплаченный платёж по леджеру, если он есть
func (r *PaymentRepository) GetOpenDue(ctx context.Context, ledgerID int64) (*model.Payment, error) {
	query := paymentColumns + `
		WHERE ledger_id = $1 AND status = 'due'
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payment model.Payment
	err := r.pool.QueryRow(ctx, query, ledgerID).Scan(
		&payment.ID,
		&payment.LedgerID,
		&payment.AmountCents,
		&payment.HoursIncluded,
		&payment.Status,
		&payment.DueDate,
		&payment.PaidDate,
		&payment.RemindersSent,
		&payment.LastReminderAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get open payment: %w", err)
	}

	return &payment, nil
}

// BumpReminder увеличивает счётчик напоминаний по платежу
func (r *PaymentRepository) BumpReminder(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE payments
		SET reminders_sent = reminders_sent + 1, last_reminder_at = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("bump payment reminder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment not found")
	}

	return nil
}

// ListByLedger получает все платежи по леджеру
func (r *PaymentRepository) ListByLedger(ctx context.Context, ledgerID int64) ([]*model.Payment, error) {
	query := paymentColumns + `
		WHERE ledger_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("get payments by ledger: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		var payment model.Payment
		err := rows.Scan(
			&payment.ID,
			&payment.LedgerID,
			&payment.AmountCents,
			&payment.HoursIncluded,
			&payment.Status,
			&payment.DueDate,
			&payment.PaidDate,
			&payment.RemindersSent,
			&payment.LastReminderAt,
			&payment.CreatedAt,
			&payment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, &payment)
	}

	return payments, nil
}

const paymentColumns = `
		SELECT id, ledger_id, amount_cents, hours_included, status, due_date, paid_date,
		       reminders_sent, last_reminder_at, created_at, updated_at
		FROM payments`
