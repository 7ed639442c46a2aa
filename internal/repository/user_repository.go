package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronkov/tutorhub/internal/model"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, name, email, timezone, is_tutor, hourly_rate_cents, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Timezone,
		&user.IsTutor,
		&user.HourlyRateCents,
		&user.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (name, email, timezone, is_tutor, hourly_rate_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		user.Name,
		user.Email,
		user.Timezone,
		user.IsTutor,
		user.HourlyRateCents,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// UpdateTimezone обновляет зону пользователя
func (r *UserRepository) UpdateTimezone(ctx context.Context, id int64, timezone string) error {
	query := `
		UPDATE users
		SET timezone = $1
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, timezone, id)
	if err != nil {
		return fmt.Errorf("update user timezone: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update user timezone: %w", model.ErrNotFound)
	}

	return nil
}
