package model

import "time"

type PaymentStatus string

const (
	PaymentStatusDue  PaymentStatus = "due"  // Выставлен, ждёт оплаты
	PaymentStatusPaid PaymentStatus = "paid" // Оплачен
)

// Payment — расчёт по конкретному леджеру.
// После перехода в paid запись не меняется, кроме полей учёта напоминаний.
type Payment struct {
	ID             int64         `json:"id"`
	LedgerID       int64         `json:"ledger_id"`
	AmountCents    int64         `json:"amount_cents"` // сумма в копейках/центах
	HoursIncluded  float64       `json:"hours_included"`
	Status         PaymentStatus `json:"status"`
	DueDate        *time.Time    `json:"due_date"`
	PaidDate       *time.Time    `json:"paid_date"`
	RemindersSent  int           `json:"reminders_sent"`
	LastReminderAt *time.Time    `json:"last_reminder_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
