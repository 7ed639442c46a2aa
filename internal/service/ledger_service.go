package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avoronkov/tutorhub/internal/model"
)

type LedgerService struct {
	users    UserStore
	ledgers  LedgerStore
	payments PaymentStore
	notifier Notifier
	logger   *zap.Logger

	defaultIntervalHours float64
	dueSoonWindowHours   float64
	reminderDueIn        time.Duration

	// Точка захвата «сейчас»; в тестах подменяется
	now func() time.Time
}

func NewLedgerService(
	users UserStore,
	ledgers LedgerStore,
	payments PaymentStore,
	notifier Notifier,
	logger *zap.Logger,
	defaultIntervalHours float64,
	dueSoonWindowHours float64,
) *LedgerService {
	return &LedgerService{
		users:                users,
		ledgers:              ledgers,
		payments:             payments,
		notifier:             notifier,
		logger:               logger,
		defaultIntervalHours: defaultIntervalHours,
		dueSoonWindowHours:   dueSoonWindowHours,
		reminderDueIn:        7 * 24 * time.Hour,
		now:                  time.Now,
	}
}

// OnCompleted начисляет часы завершённого занятия в леджер.
// Длительность считается по разнице абсолютных моментов, поэтому переводы
// часов между бронированием и проведением занятия на начисление не влияют.
func (s *LedgerService) OnCompleted(ctx context.Context, appointment *model.Appointment) (*model.LectureHoursLedger, error) {
	hours := appointment.DurationHours()
	if hours <= 0 {
		return nil, fmt.Errorf("%w: appointment %d has non-positive duration", model.ErrInvalidRange, appointment.ID)
	}

	ledger, err := s.ledgers.ApplyCompletion(
		ctx,
		appointment.StudentID,
		appointment.TutorID,
		appointment.Subject,
		hours,
		appointment.EndTime,
		s.defaultIntervalHours,
	)
	if err != nil {
		return nil, fmt.Errorf("apply completion: %w", err)
	}

	s.logger.Info("Hours added to ledger",
		zap.Int64("ledger_id", ledger.ID),
		zap.Int64("student_id", ledger.StudentID),
		zap.Int64("tutor_id", ledger.TutorID),
		zap.String("subject", ledger.Subject),
		zap.Float64("hours", hours),
		zap.Float64("unpaid_hours", ledger.UnpaidHours),
	)

	return ledger, nil
}

// Classify возвращает платёжный статус леджера
func (s *LedgerService) Classify(ledger *model.LectureHoursLedger) model.LedgerStatus {
	return ledger.Classify(s.dueSoonWindowHours)
}

// List получает леджеры с опциональными фильтрами по ученику и репетитору
func (s *LedgerService) List(ctx context.Context, studentID, tutorID *int64) ([]*model.LectureHoursLedger, error) {
	return s.ledgers.List(ctx, studentID, tutorID)
}

// Settle закрывает долг по тройке (ученик, репетитор, предмет) платежом
// на полную неоплаченную сумму. Списание долга и запись платежа — одна
// транзакция хранилища: при сбое долг остаётся на леджере и расчёт можно
// повторить. Повторный расчёт по нулевому долгу — ErrNothingToSettle,
// а не платёж на ноль.
func (s *LedgerService) Settle(ctx context.Context, studentID, tutorID int64, subject string) (*model.Payment, error) {
	ledger, err := s.ledgers.Get(ctx, studentID, tutorID, subject)
	if err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger (%d, %d, %s): %w", studentID, tutorID, subject, model.ErrNotFound)
	}

	tutor, err := s.users.GetByID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return nil, fmt.Errorf("tutor %d: %w", tutorID, model.ErrNotFound)
	}

	payment, err := s.ledgers.Settle(ctx, ledger.ID, tutor.HourlyRateCents, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ledger settled",
		zap.Int64("ledger_id", ledger.ID),
		zap.Int64("payment_id", payment.ID),
		zap.Float64("hours", payment.HoursIncluded),
		zap.Int64("amount_cents", payment.AmountCents),
	)

	return payment, nil
}

// RunReminderPass обходит леджеры, достигшие порога оплаты: выставляет платёж,
// если его ещё нет, учитывает напоминание и публикует событие PaymentDue.
// Вызывается периодически фоновым планировщиком.
func (s *LedgerService) RunReminderPass(ctx context.Context) error {
	overdue, err := s.ledgers.ListOverdue(ctx)
	if err != nil {
		return fmt.Errorf("list overdue ledgers: %w", err)
	}

	for _, ledger := range overdue {
		if err := s.remind(ctx, ledger); err != nil {
			// Одна проблемная тройка не должна останавливать весь обход
			s.logger.Error("Failed to process payment reminder",
				zap.Int64("ledger_id", ledger.ID),
				zap.Error(err),
			)
		}
	}

	if len(overdue) > 0 {
		s.logger.Info("Payment reminder pass finished",
			zap.Int("overdue_ledgers", len(overdue)),
		)
	}

	return nil
}

func (s *LedgerService) remind(ctx context.Context, ledger *model.LectureHoursLedger) error {
	payment, err := s.payments.GetOpenDue(ctx, ledger.ID)
	if err != nil {
		return fmt.Errorf("get open payment: %w", err)
	}

	now := s.now().UTC()

	if payment == nil {
		tutor, err := s.users.GetByID(ctx, ledger.TutorID)
		if err != nil {
			return fmt.Errorf("get tutor: %w", err)
		}
		if tutor == nil {
			return fmt.Errorf("tutor %d: %w", ledger.TutorID, model.ErrNotFound)
		}

		payment, err = s.payments.CreateDue(ctx, ledger.ID, tutor.HourlyRateCents, now.Add(s.reminderDueIn))
		if err != nil {
			return fmt.Errorf("create due payment: %w", err)
		}
		if payment == nil {
			// Долг закрыли расчётом между выборкой просроченных и этим шагом
			return nil
		}
	}

	if err := s.payments.BumpReminder(ctx, payment.ID, now); err != nil {
		return fmt.Errorf("bump reminder: %w", err)
	}
	payment.RemindersSent++
	payment.LastReminderAt = &now

	if !ledger.ReminderPending {
		if err := s.ledgers.SetReminderPending(ctx, ledger.ID, true); err != nil {
			return fmt.Errorf("set reminder pending: %w", err)
		}
		ledger.ReminderPending = true
	}

	s.notifier.PaymentDue(ctx, model.PaymentDueEvent{Ledger: ledger, Payment: payment})

	return nil
}
