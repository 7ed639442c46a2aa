package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronkov/tutorhub/internal/model"
)

type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// ApplyCompletion атомарно начисляет часы по тройке (ученик, репетитор, предмет).
// Леджер создаётся лениво при первом завершённом занятии; одновременные
// начисления по одной тройке сериализуются самим upsert-ом, по разным —
// идут независимо.
func (r *LedgerRepository) ApplyCompletion(ctx context.Context, studentID, tutorID int64, subject string, hours float64, sessionAt time.Time, defaultIntervalHours float64) (*model.LectureHoursLedger, error) {
	query := `
		INSERT INTO lecture_hours_ledgers
			(student_id, tutor_id, subject, total_hours, unpaid_hours, payment_interval_hours, last_session_at)
		VALUES ($1, $2, $3, $4, $4, $5, $6)
		ON CONFLICT (student_id, tutor_id, subject) DO UPDATE
		SET total_hours = lecture_hours_ledgers.total_hours + EXCLUDED.total_hours,
		    unpaid_hours = lecture_hours_ledgers.unpaid_hours + EXCLUDED.unpaid_hours,
		    last_session_at = EXCLUDED.last_session_at,
		    updated_at = NOW()
		RETURNING id, student_id, tutor_id, subject, total_hours, unpaid_hours,
		          payment_interval_hours, reminder_pending, last_session_at, created_at, updated_at
	`

	ledger, err := r.scanOne(r.pool.QueryRow(ctx, query, studentID, tutorID, subject, hours, defaultIntervalHours, sessionAt))
	if err != nil {
		return nil, fmt.Errorf("apply completion: %w", err)
	}

	return ledger, nil
}

// Get получает леджер по тройке (ученик, репетитор, предмет)
func (r *LedgerRepository) Get(ctx context.Context, studentID, tutorID int64, subject string) (*model.LectureHoursLedger, error) {
	query := ledgerColumns + `
		WHERE student_id = $1 AND tutor_id = $2 AND subject = $3
	`

	ledger, err := r.scanOne(r.pool.QueryRow(ctx, query, studentID, tutorID, subject))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return ledger, nil
}

// List получает леджеры, опционально фильтруя по ученику и/или репетитору
func (r *LedgerRepository) List(ctx context.Context, studentID, tutorID *int64) ([]*model.LectureHoursLedger, error) {
	query := ledgerColumns + `
		WHERE ($1::bigint IS NULL OR student_id = $1)
		  AND ($2::bigint IS NULL OR tutor_id = $2)
		ORDER BY id
	`

	return r.queryMany(ctx, query, studentID, tutorID)
}

// ListOverdue получает леджеры, достигшие порога оплаты
func (r *LedgerRepository) ListOverdue(ctx context.Context) ([]*model.LectureHoursLedger, error) {
	query := ledgerColumns + `
		WHERE unpaid_hours >= payment_interval_hours
		ORDER BY id
	`

	return r.queryMany(ctx, query)
}

// Settle в одной транзакции обнуляет долг и фиксирует оплату: либо
// коммитятся и списание, и платёж, либо долг остаётся на леджере и расчёт
// можно повторить. Леджер с нулевым долгом не трогается — повторный расчёт
// получает ErrNothingToSettle, а не нулевой платёж.
func (r *LedgerRepository) Settle(ctx context.Context, ledgerID int64, hourlyRateCents int64, paidAt time.Time) (*model.Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	// FOR UPDATE держит строку леджера до коммита: конкурентный расчёт
	// или выставление напоминания дождутся итога этой транзакции
	settleQuery := `
		UPDATE lecture_hours_ledgers l
		SET unpaid_hours = 0, reminder_pending = FALSE, updated_at = NOW()
		FROM (
			SELECT id, unpaid_hours
			FROM lecture_hours_ledgers
			WHERE id = $1
			FOR UPDATE
		) prev
		WHERE l.id = prev.id AND prev.unpaid_hours > 0
		RETURNING prev.unpaid_hours
	`

	var hours float64
	if err := tx.QueryRow(ctx, settleQuery, ledgerID).Scan(&hours); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("settle ledger %d: %w", ledgerID, model.ErrNothingToSettle)
		}
		return nil, fmt.Errorf("settle ledger: %w", err)
	}

	amount := int64(math.Round(hours * float64(hourlyRateCents)))
	payment := &model.Payment{
		LedgerID:      ledgerID,
		AmountCents:   amount,
		HoursIncluded: hours,
		Status:        model.PaymentStatusPaid,
		PaidDate:      &paidAt,
	}

	// Если по леджеру уже выставлен платёж, закрываем его, а не плодим новый
	closeQuery := `
		UPDATE payments
		SET status = 'paid', amount_cents = $1, hours_included = $2, paid_date = $3, updated_at = NOW()
		WHERE id = (
			SELECT id FROM payments
			WHERE ledger_id = $4 AND status = 'due'
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING id, due_date, reminders_sent, last_reminder_at, created_at, updated_at
	`

	err = tx.QueryRow(ctx, closeQuery, amount, hours, paidAt, ledgerID).Scan(
		&payment.ID,
		&payment.DueDate,
		&payment.RemindersSent,
		&payment.LastReminderAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		insertQuery := `
			INSERT INTO payments (ledger_id, amount_cents, hours_included, status, paid_date)
			VALUES ($1, $2, $3, 'paid', $4)
			RETURNING id, created_at, updated_at
		`
		err = tx.QueryRow(ctx, insertQuery, ledgerID, amount, hours, paidAt).
			Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("record settlement payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	return payment, nil
}

// SetReminderPending выставляет флаг ожидающего напоминания
func (r *LedgerRepository) SetReminderPending(ctx context.Context, ledgerID int64, pending bool) error {
	query := `
		UPDATE lecture_hours_ledgers
		SET reminder_pending = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, pending, ledgerID)
	if err != nil {
		return fmt.Errorf("set reminder pending: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("ledger not found")
	}

	return nil
}

const ledgerColumns = `
		SELECT id, student_id, tutor_id, subject, total_hours, unpaid_hours,
		       payment_interval_hours, reminder_pending, last_session_at, created_at, updated_at
		FROM lecture_hours_ledgers`

func (r *LedgerRepository) scanOne(row pgx.Row) (*model.LectureHoursLedger, error) {
	var ledger model.LectureHoursLedger
	err := row.Scan(
		&ledger.ID,
		&ledger.StudentID,
		&ledger.TutorID,
		&ledger.Subject,
		&ledger.TotalHours,
		&ledger.UnpaidHours,
		&ledger.PaymentIntervalHours,
		&ledger.ReminderPending,
		&ledger.LastSessionAt,
		&ledger.CreatedAt,
		&ledger.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *LedgerRepository) queryMany(ctx context.Context, query string, args ...any) ([]*model.LectureHoursLedger, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []*model.LectureHoursLedger
	for rows.Next() {
		ledger, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		ledgers = append(ledgers, ledger)
	}

	return ledgers, nil
}
