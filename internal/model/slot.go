package model

import "time"

// Slot — кандидат на бронирование, развёрнутый из еженедельного правила.
// Существует только в памяти и в ответах API, в БД не сохраняется.
type Slot struct {
	TutorID   int64     `json:"tutor_id"`
	RuleID    int64     `json:"rule_id"`
	StartTime time.Time `json:"start_time"` // абсолютный момент, UTC
	EndTime   time.Time `json:"end_time"`   // абсолютный момент, UTC
}

// Overlaps — пересекается ли слот с интервалом [start, end)
func (s *Slot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}
