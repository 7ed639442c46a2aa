package model

import "time"

// WeeklyAvailabilityRule представляет шаблон еженедельной доступности репетитора.
// Время начала и конца — локальное «настенное» время в зоне репетитора;
// зона читается из профиля репетитора в момент разворачивания, а не хранится здесь.
type WeeklyAvailabilityRule struct {
	ID          int64     `json:"id"`
	TutorID     int64     `json:"tutor_id"`
	Weekday     int       `json:"weekday"`      // 0 = Sunday, 6 = Saturday
	StartHour   int       `json:"start_hour"`   // 0-23
	StartMinute int       `json:"start_minute"` // 0-59
	EndHour     int       `json:"end_hour"`
	EndMinute   int       `json:"end_minute"`
	IsActive    bool      `json:"is_active"` // мягкое отключение, правило не удаляется
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StartMinuteOfDay возвращает начало правила в минутах от полуночи
func (r *WeeklyAvailabilityRule) StartMinuteOfDay() int {
	return r.StartHour*60 + r.StartMinute
}

// EndMinuteOfDay возвращает конец правила в минутах от полуночи
func (r *WeeklyAvailabilityRule) EndMinuteOfDay() int {
	return r.EndHour*60 + r.EndMinute
}
