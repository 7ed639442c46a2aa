package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled" // Создано, ждёт подтверждения репетитора
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // Подтверждено
	AppointmentStatusCompleted AppointmentStatus = "completed" // Занятие проведено
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменено (строка остаётся для истории)
)

// CanTransitionTo проверяет допустимость перехода статуса.
// completed и cancelled — терминальные состояния.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusScheduled:
		return next == AppointmentStatusConfirmed || next == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return next == AppointmentStatusCompleted || next == AppointmentStatusCancelled
	default:
		return false
	}
}

type Appointment struct {
	ID             int64             `json:"id"`
	TutorID        int64             `json:"tutor_id"`
	StudentID      int64             `json:"student_id"`
	Subject        string            `json:"subject"`
	StartTime      time.Time         `json:"start_time"` // абсолютный момент, UTC
	EndTime        time.Time         `json:"end_time"`   // абсолютный момент, UTC
	Status         AppointmentStatus `json:"status"`
	Notes          string            `json:"notes"`
	IdempotencyKey *uuid.UUID        `json:"idempotency_key,omitempty"` // клиентский ключ для безопасных повторов
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IsActive — занимает ли запись интервал в расписании репетитора
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentStatusCancelled
}

// Overlaps — пересекается ли запись с интервалом [start, end)
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && a.EndTime.After(start)
}

// DurationHours возвращает длительность занятия в часах.
// Считается по абсолютным моментам, поэтому переходы на летнее время
// на результат не влияют.
func (a *Appointment) DurationHours() float64 {
	return a.EndTime.Sub(a.StartTime).Hours()
}
