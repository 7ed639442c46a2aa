package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avoronkov/tutorhub/internal/model"
)

// Интерфейсы хранилищ, которые нужны сервисам. В проде их реализуют
// pgx-репозитории из internal/repository, в тестах — in-memory двойники.

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type RuleStore interface {
	Create(ctx context.Context, rule *model.WeeklyAvailabilityRule) error
	GetByID(ctx context.Context, id int64) (*model.WeeklyAvailabilityRule, error)
	GetByTutorID(ctx context.Context, tutorID int64) ([]*model.WeeklyAvailabilityRule, error)
	GetActiveByTutorID(ctx context.Context, tutorID int64) ([]*model.WeeklyAvailabilityRule, error)
	Update(ctx context.Context, rule *model.WeeklyAvailabilityRule) error
}

type AppointmentStore interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*model.Appointment, error)
	FindOverlapping(ctx context.Context, tutorID int64, start, end time.Time) (*model.Appointment, error)
	ListActiveInRange(ctx context.Context, tutorID int64, from, to time.Time) ([]*model.Appointment, error)
	ListByTutorID(ctx context.Context, tutorID int64) ([]*model.Appointment, error)
	ListByStudentID(ctx context.Context, studentID int64) ([]*model.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.AppointmentStatus) error
}

type LedgerStore interface {
	ApplyCompletion(ctx context.Context, studentID, tutorID int64, subject string, hours float64, sessionAt time.Time, defaultIntervalHours float64) (*model.LectureHoursLedger, error)
	Get(ctx context.Context, studentID, tutorID int64, subject string) (*model.LectureHoursLedger, error)
	List(ctx context.Context, studentID, tutorID *int64) ([]*model.LectureHoursLedger, error)
	ListOverdue(ctx context.Context) ([]*model.LectureHoursLedger, error)
	Settle(ctx context.Context, ledgerID int64, hourlyRateCents int64, paidAt time.Time) (*model.Payment, error)
	SetReminderPending(ctx context.Context, ledgerID int64, pending bool) error
}

type PaymentStore interface {
	CreateDue(ctx context.Context, ledgerID int64, hourlyRateCents int64, dueDate time.Time) (*model.Payment, error)
	GetOpenDue(ctx context.Context, ledgerID int64) (*model.Payment, error)
	BumpReminder(ctx context.Context, id int64, at time.Time) error
	ListByLedger(ctx context.Context, ledgerID int64) ([]*model.Payment, error)
}
