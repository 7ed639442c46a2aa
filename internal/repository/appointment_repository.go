package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronkov/tutorhub/internal/model"
)

// Коды ошибок PostgreSQL, которые репозиторий переводит в доменные
const (
	pgExclusionViolation = "23P01" // сработал exclusion constraint на пересечение интервалов
	pgUniqueViolation    = "23505"
)

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// Create создаёт новую запись на занятие.
// Exclusion constraint в схеме не даст вставить пересекающийся интервал даже
// при гонке нескольких процессов — его срабатывание переводится в ErrConflict.
func (r *AppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments
			(tutor_id, student_id, subject, start_time, end_time, status, notes, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		appointment.TutorID,
		appointment.StudentID,
		appointment.Subject,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Status,
		appointment.Notes,
		appointment.IdempotencyKey,
	).Scan(&appointment.ID, &appointment.CreatedAt, &appointment.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == pgExclusionViolation || pgErr.Code == pgUniqueViolation) {
			return fmt.Errorf("create appointment: %w", model.ErrConflict)
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := appointmentColumns + `
		WHERE id = $1
	`

	return r.queryOne(ctx, query, id)
}

// GetByIdempotencyKey получает запись по клиентскому ключу идемпотентности
func (r *AppointmentRepository) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*model.Appointment, error) {
	query := appointmentColumns + `
		WHERE idempotency_key = $1
	`

	return r.queryOne(ctx, query, key)
}

// FindOverlapping ищет активную запись репетитора, пересекающуюся с [start, end).
// Отменённые записи интервал не занимают.
func (r *AppointmentRepository) FindOverlapping(ctx context.Context, tutorID int64, start, end time.Time) (*model.Appointment, error) {
	query := appointmentColumns + `
		WHERE tutor_id = $1
		  AND status != 'cancelled'
		  AND start_time < $3
		  AND end_time > $2
		LIMIT 1
	`

	return r.queryOne(ctx, query, tutorID, start, end)
}

// ListActiveInRange получает активные записи репетитора в интервале [from, to)
func (r *AppointmentRepository) ListActiveInRange(ctx context.Context, tutorID int64, from, to time.Time) ([]*model.Appointment, error) {
	query := appointmentColumns + `
		WHERE tutor_id = $1
		  AND status != 'cancelled'
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`

	return r.queryMany(ctx, query, tutorID, from, to)
}

// ListByTutorID получает все записи репетитора
func (r *AppointmentRepository) ListByTutorID(ctx context.Context, tutorID int64) ([]*model.Appointment, error) {
	query := appointmentColumns + `
		WHERE tutor_id = $1
		ORDER BY start_time DESC
	`

	return r.queryMany(ctx, query, tutorID)
}

// ListByStudentID получает все записи ученика
func (r *AppointmentRepository) ListByStudentID(ctx context.Context, studentID int64) ([]*model.Appointment, error) {
	query := appointmentColumns + `
		WHERE student_id = $1
		ORDER BY start_time DESC
	`

	return r.queryMany(ctx, query, studentID)
}

// UpdateStatus переводит запись из ожидаемого статуса в новый.
// Сравнение статуса прямо в WHERE закрывает гонку двух конкурентных
// переходов: из нескольких одновременных запросов строку находит ровно
// один, остальные получают ErrInvalidTransition.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id int64, from, to model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment %d is no longer %s: %w", id, from, model.ErrInvalidTransition)
	}

	return nil
}

const appointmentColumns = `
		SELECT id, tutor_id, student_id, subject, start_time, end_time,
		       status, notes, idempotency_key, created_at, updated_at
		FROM appointments`

func (r *AppointmentRepository) queryOne(ctx context.Context, query string, args ...any) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&appointment.ID,
		&appointment.TutorID,
		&appointment.StudentID,
		&appointment.Subject,
		&appointment.StartTime,
		&appointment.EndTime,
		&appointment.Status,
		&appointment.Notes,
		&appointment.IdempotencyKey,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}

	return &appointment, nil
}

func (r *AppointmentRepository) queryMany(ctx context.Context, query string, args ...any) ([]*model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*model.Appointment
	for rows.Next() {
		var appointment model.Appointment
		err := rows.Scan(
			&appointment.ID,
			&appointment.TutorID,
			&appointment.StudentID,
			&appointment.Subject,
			&appointment.StartTime,
			&appointment.EndTime,
			&appointment.Status,
			&appointment.Notes,
			&appointment.IdempotencyKey,
			&appointment.CreatedAt,
			&appointment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, &appointment)
	}

	return appointments, nil
}
