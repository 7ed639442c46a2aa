package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/avoronkov/tutorhub/internal/model"
)

// Сколько раз повторяем транзиентную ошибку хранилища внутри критической
// секции, не перепроверяя условия заново
const maxStorageRetries = 3

// CompletionSink получает завершённые занятия.
// Реализуется LedgerService; интерфейс разрывает цикл между сервисами.
type CompletionSink interface {
	OnCompleted(ctx context.Context, appointment *model.Appointment) (*model.LectureHoursLedger, error)
}

// tutorLocks выдаёт мьютекс на каждого репетитора: все бронирования одного
// репетитора проходят через одну критическую секцию, по разным — независимо
type tutorLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newTutorLocks() *tutorLocks {
	return &tutorLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *tutorLocks) get(tutorID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[tutorID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[tutorID] = lock
	}
	return lock
}

type BookingService struct {
	users        UserStore
	appointments AppointmentStore
	completions  CompletionSink
	notifier     Notifier
	logger       *zap.Logger
	locks        *tutorLocks
}

func NewBookingService(
	users UserStore,
	appointments AppointmentStore,
	completions CompletionSink,
	notifier Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		users:        users,
		appointments: appointments,
		completions:  completions,
		notifier:     notifier,
		logger:       logger,
		locks:        newTutorLocks(),
	}
}

type BookRequest struct {
	TutorID        int64
	StudentID      int64
	Subject        string
	Start          time.Time
	End            time.Time
	Notes          string
	IdempotencyKey *uuid.UUID // клиентский ключ для безопасного повтора после таймаута
}

// Book атомарно создаёт запись на занятие либо отклоняет запрос как конфликт.
//
// Гарантия: на интервал [start, end) у репетитора может существовать не более
// одной неотменённой записи даже при одновременных запросах. Проверка и
// вставка выполняются под мьютексом репетитора; exclusion constraint в БД
// страхует от гонки между несколькими экземплярами сервиса.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	if req.Start.IsZero() || req.End.IsZero() || !req.Start.Before(req.End) {
		return nil, fmt.Errorf("%w: start must be before end", model.ErrInvalidRange)
	}
	if req.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", model.ErrInvalidRange)
	}

	start := req.Start.UTC()
	end := req.End.UTC()

	tutor, err := s.users.GetByID(ctx, req.TutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil || !tutor.IsTutor {
		return nil, fmt.Errorf("tutor %d: %w", req.TutorID, model.ErrNotFound)
	}

	student, err := s.users.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %d: %w", req.StudentID, model.ErrNotFound)
	}

	// Критическая секция: все бронирования этого репетитора строго по одному
	lock := s.locks.get(req.TutorID)
	lock.Lock()
	defer lock.Unlock()

	// Повтор с тем же ключом возвращает уже созданную запись, а не конфликт
	if req.IdempotencyKey != nil {
		existing, err := s.appointments.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("check idempotency key: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate booking request, returning existing appointment",
				zap.Int64("appointment_id", existing.ID),
				zap.String("idempotency_key", req.IdempotencyKey.String()),
			)
			return existing, nil
		}
	}

	var appointment *model.Appointment
	backoff := retry.WithMaxRetries(maxStorageRetries, retry.NewExponential(50*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		existing, err := s.appointments.FindOverlapping(ctx, req.TutorID, start, end)
		if err != nil {
			return retry.RetryableError(err)
		}
		if existing != nil {
			return model.ErrConflict
		}

		candidate := &model.Appointment{
			TutorID:        req.TutorID,
			StudentID:      req.StudentID,
			Subject:        req.Subject,
			StartTime:      start,
			EndTime:        end,
			Status:         model.AppointmentStatusScheduled,
			Notes:          req.Notes,
			IdempotencyKey: req.IdempotencyKey,
		}
		if err := s.appointments.Create(ctx, candidate); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return err
			}
			return retry.RetryableError(err)
		}

		appointment = candidate
		return nil
	})

	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			s.logger.Info("Booking rejected: interval already taken",
				zap.Int64("tutor_id", req.TutorID),
				zap.Int64("student_id", req.StudentID),
				zap.Time("start_time", start),
			)
			return nil, model.ErrConflict
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("book appointment: %w", ctx.Err())
		}
		s.logger.Error("Booking failed after retries",
			zap.Int64("tutor_id", req.TutorID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("book appointment: %w", model.ErrUnavailable)
	}

	s.logger.Info("Appointment booked",
		zap.Int64("appointment_id", appointment.ID),
		zap.Int64("tutor_id", appointment.TutorID),
		zap.Int64("student_id", appointment.StudentID),
		zap.String("subject", appointment.Subject),
		zap.Time("start_time", appointment.StartTime),
		zap.Time("end_time", appointment.EndTime),
	)

	s.notifier.AppointmentBooked(ctx, model.AppointmentBookedEvent{Appointment: appointment})

	return appointment, nil
}

// GetByID получает запись по ID
func (s *BookingService) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appointment == nil {
		return nil, fmt.Errorf("appointment %d: %w", id, model.ErrNotFound)
	}
	return appointment, nil
}

// ListByTutor получает все записи репетитора
func (s *BookingService) ListByTutor(ctx context.Context, tutorID int64) ([]*model.Appointment, error) {
	return s.appointments.ListByTutorID(ctx, tutorID)
}

// ListByStudent получает все записи ученика
func (s *BookingService) ListByStudent(ctx context.Context, studentID int64) ([]*model.Appointment, error) {
	return s.appointments.ListByStudentID(ctx, studentID)
}

// Transition переводит запись в новый статус от имени участника.
//
// Машина состояний: scheduled -> {confirmed, cancelled},
// confirmed -> {completed, cancelled}; completed и cancelled терминальны.
// Отмена не удаляет строку и сразу освобождает интервал для новых
// бронирований. Завершение — единственный триггер начисления часов в леджер.
//
// Переход выполняется как compare-and-swap от прочитанного статуса: из
// конкурентных запросов побеждает ровно один, поэтому начисление за
// завершённое занятие не может сработать дважды, а терминальный статус —
// ожить обратно.
func (s *BookingService) Transition(ctx context.Context, appointmentID, actorID int64, next model.AppointmentStatus) (*model.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appointment == nil {
		return nil, fmt.Errorf("appointment %d: %w", appointmentID, model.ErrNotFound)
	}

	if actorID != appointment.TutorID && actorID != appointment.StudentID {
		return nil, fmt.Errorf("user %d is not a participant: %w", actorID, model.ErrForbidden)
	}

	current := appointment.Status
	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, current, next)
	}

	if err := s.appointments.UpdateStatus(ctx, appointmentID, current, next); err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			// Статус успел поменять конкурентный запрос
			return nil, err
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	appointment.Status = next

	s.logger.Info("Appointment status changed",
		zap.Int64("appointment_id", appointmentID),
		zap.Int64("actor_id", actorID),
		zap.String("status", string(next)),
	)

	switch next {
	case model.AppointmentStatusCancelled:
		s.notifier.AppointmentCancelled(ctx, model.AppointmentCancelledEvent{
			Appointment: appointment,
			CancelledBy: actorID,
		})
	case model.AppointmentStatusCompleted:
		if _, err := s.completions.OnCompleted(ctx, appointment); err != nil {
			// Возвращаем статус обратно, иначе часы пропадут навсегда:
			// completed терминален и повторного начисления не будет
			if revertErr := s.appointments.UpdateStatus(ctx, appointmentID, next, current); revertErr != nil {
				s.logger.Error("Failed to revert appointment after ledger error",
					zap.Int64("appointment_id", appointmentID),
					zap.Error(revertErr),
				)
			}
			s.logger.Error("Failed to record completed hours",
				zap.Int64("appointment_id", appointmentID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("record completion: %w", err)
		}
	}

	return appointment, nil
}
