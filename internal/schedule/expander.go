// Package schedule разворачивает еженедельные правила доступности в конкретные
// датированные слоты. Пакет чистый: не обращается к БД и не хранит состояния,
// поэтому безопасен для вызова из любого числа горутин.
package schedule

import (
	"fmt"
	"time"

	"github.com/avoronkov/tutorhub/internal/localtime"
	"github.com/avoronkov/tutorhub/internal/model"
)

// ValidateRule проверяет корректность еженедельного правила
func ValidateRule(rule *model.WeeklyAvailabilityRule) error {
	if rule.Weekday < 0 || rule.Weekday > 6 {
		return fmt.Errorf("%w: weekday %d out of range", model.ErrInvalidRange, rule.Weekday)
	}
	if rule.StartHour < 0 || rule.StartHour > 23 || rule.EndHour < 0 || rule.EndHour > 23 {
		return fmt.Errorf("%w: hour out of range", model.ErrInvalidRange)
	}
	if rule.StartMinute < 0 || rule.StartMinute > 59 || rule.EndMinute < 0 || rule.EndMinute > 59 {
		return fmt.Errorf("%w: minute out of range", model.ErrInvalidRange)
	}
	if rule.StartMinuteOfDay() >= rule.EndMinuteOfDay() {
		return fmt.Errorf("%w: rule start must be before end within the same day", model.ErrInvalidRange)
	}
	return nil
}

// Expand разворачивает правило в упорядоченный список слотов в диапазоне дат.
// Обе границы диапазона включительны. Диапазон без подходящего дня недели —
// это пустой результат, а не ошибка. Неактивное правило не даёт слотов.
//
// Локальные границы слота переводятся в абсолютные моменты в зоне репетитора,
// поэтому на неделях с переводом часов соседние слоты отстоят друг от друга
// не ровно на 168 часов — это корректно.
func Expand(rule *model.WeeklyAvailabilityRule, loc *time.Location, rangeStart, rangeEnd localtime.Date) ([]model.Slot, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}
	if rangeStart.After(rangeEnd) {
		return nil, fmt.Errorf("%w: range start %s is after range end %s", model.ErrInvalidRange, rangeStart, rangeEnd)
	}
	if !rule.IsActive {
		return nil, nil
	}

	// Первая подходящая дата не раньше начала диапазона, дальше шаг ровно 7 дней
	offset := (rule.Weekday - int(rangeStart.Weekday()) + 7) % 7
	day := rangeStart.AddDays(offset)

	var slots []model.Slot
	for !day.After(rangeEnd) {
		slots = append(slots, model.Slot{
			TutorID:   rule.TutorID,
			RuleID:    rule.ID,
			StartTime: localtime.ToInstant(day.At(rule.StartHour, rule.StartMinute), loc),
			EndTime:   localtime.ToInstant(day.At(rule.EndHour, rule.EndMinute), loc),
		})
		day = day.AddDays(7)
	}

	return slots, nil
}
