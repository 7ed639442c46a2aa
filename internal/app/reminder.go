package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReminderRunner — то, что умеет выполнить один проход по должникам
type ReminderRunner interface {
	RunReminderPass(ctx context.Context) error
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	ledgers  ReminderRunner
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(ledgers ReminderRunner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		ledgers:  ledgers,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	go s.runReminderTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runReminderTask периодически рассылает напоминания об оплате
func (s *Scheduler) runReminderTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.runReminders(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runReminders(ctx)
		case <-s.stopChan:
			s.logger.Info("Reminder task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reminder task cancelled")
			return
		}
	}
}

func (s *Scheduler) runReminders(ctx context.Context) {
	s.logger.Info("Starting payment reminder pass")

	if err := s.ledgers.RunReminderPass(ctx); err != nil {
		s.logger.Error("Reminder pass failed", zap.Error(err))
		return
	}

	s.logger.Info("Payment reminder pass completed")
}
