package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/avoronkov/tutorhub/internal/localtime"
	"github.com/avoronkov/tutorhub/internal/model"
	"github.com/avoronkov/tutorhub/internal/schedule"
)

type AvailabilityService struct {
	users        UserStore
	rules        RuleStore
	appointments AppointmentStore
	logger       *zap.Logger
}

func NewAvailabilityService(
	users UserStore,
	rules RuleStore,
	appointments AppointmentStore,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		users:        users,
		rules:        rules,
		appointments: appointments,
		logger:       logger,
	}
}

// GetOpenSlots разворачивает активные правила репетитора в слоты и убирает те,
// что пересекаются с существующими неотменёнными записями. Зона репетитора
// читается из профиля в момент вызова: если репетитор переехал, слоты сразу
// считаются в новой зоне.
func (s *AvailabilityService) GetOpenSlots(ctx context.Context, tutorID int64, from, to localtime.Date) ([]model.Slot, error) {
	if from.After(to) {
		return nil, fmt.Errorf("%w: range start %s is after range end %s", model.ErrInvalidRange, from, to)
	}

	tutor, err := s.users.GetByID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil || !tutor.IsTutor {
		return nil, fmt.Errorf("tutor %d: %w", tutorID, model.ErrNotFound)
	}

	loc, err := localtime.LoadZone(tutor.Timezone)
	if err != nil {
		return nil, fmt.Errorf("tutor %d timezone: %w", tutorID, err)
	}

	rules, err := s.rules.GetActiveByTutorID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get availability rules: %w", err)
	}

	var slots []model.Slot
	for _, rule := range rules {
		expanded, err := schedule.Expand(rule, loc, from, to)
		if err != nil {
			return nil, fmt.Errorf("expand rule %d: %w", rule.ID, err)
		}
		slots = append(slots, expanded...)
	}

	if len(slots) == 0 {
		return nil, nil
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})

	// Занятость смотрим одним запросом по всему окну развёрнутых слотов
	busy, err := s.appointments.ListActiveInRange(ctx, tutorID, slots[0].StartTime, slots[len(slots)-1].EndTime)
	if err != nil {
		return nil, fmt.Errorf("get busy intervals: %w", err)
	}

	open := slots[:0]
	for _, slot := range slots {
		taken := false
		for _, appointment := range busy {
			if appointment.Overlaps(slot.StartTime, slot.EndTime) {
				taken = true
				break
			}
		}
		if !taken {
			open = append(open, slot)
		}
	}

	return open, nil
}

// CreateRule создаёт правило еженедельной доступности репетитора
func (s *AvailabilityService) CreateRule(ctx context.Context, rule *model.WeeklyAvailabilityRule) (*model.WeeklyAvailabilityRule, error) {
	tutor, err := s.users.GetByID(ctx, rule.TutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil || !tutor.IsTutor {
		return nil, fmt.Errorf("tutor %d: %w", rule.TutorID, model.ErrNotFound)
	}

	rule.IsActive = true
	if err := schedule.ValidateRule(rule); err != nil {
		return nil, err
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}

	s.logger.Info("Availability rule created",
		zap.Int64("rule_id", rule.ID),
		zap.Int64("tutor_id", rule.TutorID),
		zap.Int("weekday", rule.Weekday),
	)

	return rule, nil
}

// ListRules получает все правила репетитора
func (s *AvailabilityService) ListRules(ctx context.Context, tutorID int64) ([]*model.WeeklyAvailabilityRule, error) {
	return s.rules.GetByTutorID(ctx, tutorID)
}

// RulePatch — частичное обновление правила: заполненные поля меняются,
// nil-поля остаются как есть
type RulePatch struct {
	Weekday     *int
	StartHour   *int
	StartMinute *int
	EndHour     *int
	EndMinute   *int
	IsActive    *bool
}

// UpdateRule применяет частичное обновление к правилу репетитора.
// Слияние валидируется целиком до записи. Правило никогда не удаляется
// физически — выключение делается флагом IsActive.
func (s *AvailabilityService) UpdateRule(ctx context.Context, tutorID, ruleID int64, patch RulePatch) (*model.WeeklyAvailabilityRule, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	if rule == nil {
		return nil, fmt.Errorf("rule %d: %w", ruleID, model.ErrNotFound)
	}
	if rule.TutorID != tutorID {
		return nil, fmt.Errorf("rule %d does not belong to tutor %d: %w", ruleID, tutorID, model.ErrForbidden)
	}

	if patch.Weekday != nil {
		rule.Weekday = *patch.Weekday
	}
	if patch.StartHour != nil {
		rule.StartHour = *patch.StartHour
	}
	if patch.StartMinute != nil {
		rule.StartMinute = *patch.StartMinute
	}
	if patch.EndHour != nil {
		rule.EndHour = *patch.EndHour
	}
	if patch.EndMinute != nil {
		rule.EndMinute = *patch.EndMinute
	}
	if patch.IsActive != nil {
		rule.IsActive = *patch.IsActive
	}

	if err := schedule.ValidateRule(rule); err != nil {
		return nil, err
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}

	s.logger.Info("Availability rule updated",
		zap.Int64("rule_id", rule.ID),
		zap.Bool("is_active", rule.IsActive),
	)

	return rule, nil
}
