package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/avoronkov/tutorhub/internal/localtime"
	"github.com/avoronkov/tutorhub/internal/model"
)

// UserRegistry — хранилище пользователей с правом записи.
// Остальным сервисам достаточно UserStore (только чтение).
type UserRegistry interface {
	UserStore
	Create(ctx context.Context, user *model.User) error
	UpdateTimezone(ctx context.Context, id int64, timezone string) error
}

type UserService struct {
	users  UserRegistry
	logger *zap.Logger
}

func NewUserService(users UserRegistry, logger *zap.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// Register создаёт пользователя. Зона проверяется сразу: битое IANA-имя в
// профиле позже сломало бы расчёт слотов.
func (s *UserService) Register(ctx context.Context, user *model.User) (*model.User, error) {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(user.Email)

	if user.Name == "" || user.Email == "" {
		return nil, fmt.Errorf("name and email are required: %w", model.ErrInvalidRange)
	}
	if user.HourlyRateCents < 0 {
		return nil, fmt.Errorf("hourly rate must not be negative: %w", model.ErrInvalidRange)
	}
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}
	if _, err := localtime.LoadZone(user.Timezone); err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", user.Timezone, model.ErrInvalidRange)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.Bool("is_tutor", user.IsTutor),
		zap.String("timezone", user.Timezone),
	)

	return user, nil
}

// GetByID получает пользователя
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	return user, nil
}

// ChangeTimezone переводит пользователя в новую зону. Будущие слоты репетитора
// с этого момента считаются в новой зоне, уже забронированные занятия не
// двигаются: в БД хранятся абсолютные моменты.
func (s *UserService) ChangeTimezone(ctx context.Context, id int64, timezone string) (*model.User, error) {
	if _, err := localtime.LoadZone(timezone); err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", timezone, model.ErrInvalidRange)
	}

	if err := s.users.UpdateTimezone(ctx, id, timezone); err != nil {
		return nil, err
	}

	s.logger.Info("User timezone changed",
		zap.Int64("user_id", id),
		zap.String("timezone", timezone),
	)

	return s.GetByID(ctx, id)
}
