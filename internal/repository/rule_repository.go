package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronkov/tutorhub/internal/model"
)

type RuleRepository struct {
	pool *pgxpool.Pool
}

func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// Create создаёт новое правило доступности
func (r *RuleRepository) Create(ctx context.Context, rule *model.WeeklyAvailabilityRule) error {
	query := `
		INSERT INTO weekly_availability_rules
			(tutor_id, weekday, start_hour, start_minute, end_hour, end_minute, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		rule.TutorID,
		rule.Weekday,
		rule.StartHour,
		rule.StartMinute,
		rule.EndHour,
		rule.EndMinute,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create availability rule: %w", err)
	}

	return nil
}

// GetByID получает правило по ID
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*model.WeeklyAvailabilityRule, error) {
	query := `
		SELECT id, tutor_id, weekday, start_hour, start_minute, end_hour, end_minute,
		       is_active, created_at, updated_at
		FROM weekly_availability_rules
		WHERE id = $1
	`

	var rule model.WeeklyAvailabilityRule
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rule.ID,
		&rule.TutorID,
		&rule.Weekday,
		&rule.StartHour,
		&rule.StartMinute,
		&rule.EndHour,
		&rule.EndMinute,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability rule by id: %w", err)
	}

	return &rule, nil
}

// GetByTutorID получает все правила репетитора
func (r *RuleRepository) GetByTutorID(ctx context.Context, tutorID int64) ([]*model.WeeklyAvailabilityRule, error) {
	query := `
		SELECT id, tutor_id, weekday, start_hour, start_minute, end_hour, end_minute,
		       is_active, created_at, updated_at
		FROM weekly_availability_rules
		WHERE tutor_id = $1
		ORDER BY weekday, start_hour, start_minute
	`

	return r.queryRules(ctx, query, tutorID)
}

// GetActiveByTutorID получает активные правила репетитора
func (r *RuleRepository) GetActiveByTutorID(ctx context.Context, tutorID int64) ([]*model.WeeklyAvailabilityRule, error) {
	query := `
		SELECT id, tutor_id, weekday, start_hour, start_minute, end_hour, end_minute,
		       is_active, created_at, updated_at
		FROM weekly_availability_rules
		WHERE tutor_id = $1 AND is_active = TRUE
		ORDER BY weekday, start_hour, start_minute
	`

	return r.queryRules(ctx, query, tutorID)
}

// Update сохраняет изменённое правило
func (r *RuleRepository) Update(ctx context.Context, rule *model.WeeklyAvailabilityRule) error {
	query := `
		UPDATE weekly_availability_rules
		SET weekday = $1, start_hour = $2, start_minute = $3, end_hour = $4,
		    end_minute = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		rule.Weekday,
		rule.StartHour,
		rule.StartMinute,
		rule.EndHour,
		rule.EndMinute,
		rule.IsActive,
		rule.ID,
	).Scan(&rule.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("availability rule not found")
		}
		return fmt.Errorf("update availability rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]*model.WeeklyAvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get availability rules: %w", err)
	}
	defer rows.Close()

	var rules []*model.WeeklyAvailabilityRule
	for rows.Next() {
		var rule model.WeeklyAvailabilityRule
		err := rows.Scan(
			&rule.ID,
			&rule.TutorID,
			&rule.Weekday,
			&rule.StartHour,
			&rule.StartMinute,
			&rule.EndHour,
			&rule.EndMinute,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability rule: %w", err)
		}
		rules = append(rules, &rule)
	}

	return rules, nil
}
