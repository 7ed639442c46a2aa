package server

import (
	"time"

	"github.com/google/uuid"

	"github.com/avoronkov/tutorhub/internal/model"
)

type userRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Timezone        string `json:"timezone"`
	IsTutor         bool   `json:"is_tutor"`
	HourlyRateCents int64  `json:"hourly_rate_cents" validate:"min=0"`
}

type timezoneRequest struct {
	Timezone string `json:"timezone" validate:"required"`
}

type bookingRequest struct {
	TutorID        int64      `json:"tutor_id" validate:"required"`
	StudentID      int64      `json:"student_id" validate:"required"`
	Subject        string     `json:"subject" validate:"required"`
	Start          time.Time  `json:"start" validate:"required"`
	End            time.Time  `json:"end" validate:"required"`
	Notes          string     `json:"notes"`
	IdempotencyKey *uuid.UUID `json:"idempotency_key"`
}

type ruleRequest struct {
	Weekday     int `json:"weekday" validate:"min=0,max=6"`
	StartHour   int `json:"start_hour" validate:"min=0,max=23"`
	StartMinute int `json:"start_minute" validate:"min=0,max=59"`
	EndHour     int `json:"end_hour" validate:"min=0,max=23"`
	EndMinute   int `json:"end_minute" validate:"min=0,max=59"`
}

type rulePatchRequest struct {
	TutorID     int64 `json:"tutor_id" validate:"required"`
	Weekday     *int  `json:"weekday" validate:"omitempty,min=0,max=6"`
	StartHour   *int  `json:"start_hour" validate:"omitempty,min=0,max=23"`
	StartMinute *int  `json:"start_minute" validate:"omitempty,min=0,max=59"`
	EndHour     *int  `json:"end_hour" validate:"omitempty,min=0,max=23"`
	EndMinute   *int  `json:"end_minute" validate:"omitempty,min=0,max=59"`
	IsActive    *bool `json:"is_active"`
}

type transitionRequest struct {
	Status  string `json:"status" validate:"required,oneof=confirmed completed cancelled"`
	ActorID int64  `json:"actor_id" validate:"required"`
}

type settlementRequest struct {
	StudentID int64  `json:"student_id" validate:"required"`
	TutorID   int64  `json:"tutor_id" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
}

type ledgerResponse struct {
	*model.LectureHoursLedger
	PaymentStatus model.LedgerStatus `json:"payment_status"`
}
