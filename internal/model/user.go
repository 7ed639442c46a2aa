package model

import "time"

type User struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Timezone        string    `json:"timezone"` // IANA-имя зоны, например "Europe/Moscow"
	IsTutor         bool      `json:"is_tutor"`
	HourlyRateCents int64     `json:"hourly_rate_cents"` // ставка за час в копейках/центах (только для репетиторов)
	CreatedAt       time.Time `json:"created_at"`
}
