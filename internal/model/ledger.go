package model

import "time"

type LedgerStatus string

const (
	LedgerStatusUpToDate LedgerStatus = "up_to_date"  // задолженности нет
	LedgerStatusDueSoon  LedgerStatus = "payment_due" // порог скоро будет достигнут
	LedgerStatusOverdue  LedgerStatus = "overdue"     // порог достигнут или превышен
)

// LectureHoursLedger — накопитель часов по тройке (ученик, репетитор, предмет).
// total_hours только растёт; unpaid_hours обнуляется расчётом.
type LectureHoursLedger struct {
	ID                   int64      `json:"id"`
	StudentID            int64      `json:"student_id"`
	TutorID              int64      `json:"tutor_id"`
	Subject              string     `json:"subject"`
	TotalHours           float64    `json:"total_hours"`
	UnpaidHours          float64    `json:"unpaid_hours"`
	PaymentIntervalHours float64    `json:"payment_interval_hours"` // порог напоминания об оплате
	ReminderPending      bool       `json:"reminder_pending"`
	LastSessionAt        *time.Time `json:"last_session_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Classify вычисляет платёжный статус по текущему долгу.
// Статус нигде не хранится, всегда считается на лету.
// dueSoonWindow — за сколько часов до порога начинать предупреждать.
func (l *LectureHoursLedger) Classify(dueSoonWindow float64) LedgerStatus {
	switch {
	case l.UnpaidHours <= 0:
		return LedgerStatusUpToDate
	case l.UnpaidHours >= l.PaymentIntervalHours:
		return LedgerStatusOverdue
	case l.UnpaidHours >= l.PaymentIntervalHours-dueSoonWindow:
		return LedgerStatusDueSoon
	default:
		return LedgerStatusUpToDate
	}
}
