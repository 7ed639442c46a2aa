package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/avoronkov/tutorhub/internal/model"
)

// Notifier принимает доменные события. Ядро решает только что событие
// произошло; каналы доставки (почта, мессенджеры) подключаются снаружи.
type Notifier interface {
	AppointmentBooked(ctx context.Context, event model.AppointmentBookedEvent)
	AppointmentCancelled(ctx context.Context, event model.AppointmentCancelledEvent)
	PaymentDue(ctx context.Context, event model.PaymentDueEvent)
}

// LogNotifier пишет события в лог. Используется пока не подключена
// настоящая доставка, и как приёмник по умолчанию в разработке.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) AppointmentBooked(_ context.Context, event model.AppointmentBookedEvent) {
	n.logger.Info("Event: appointment booked",
		zap.Int64("appointment_id", event.Appointment.ID),
		zap.Int64("tutor_id", event.Appointment.TutorID),
		zap.Int64("student_id", event.Appointment.StudentID),
		zap.Time("start_time", event.Appointment.StartTime),
	)
}

func (n *LogNotifier) AppointmentCancelled(_ context.Context, event model.AppointmentCancelledEvent) {
	n.logger.Info("Event: appointment cancelled",
		zap.Int64("appointment_id", event.Appointment.ID),
		zap.Int64("cancelled_by", event.CancelledBy),
	)
}

func (n *LogNotifier) PaymentDue(_ context.Context, event model.PaymentDueEvent) {
	n.logger.Info("Event: payment due",
		zap.Int64("ledger_id", event.Ledger.ID),
		zap.Int64("student_id", event.Ledger.StudentID),
		zap.Int64("tutor_id", event.Ledger.TutorID),
		zap.Float64("unpaid_hours", event.Ledger.UnpaidHours),
		zap.Int64("payment_id", event.Payment.ID),
	)
}
