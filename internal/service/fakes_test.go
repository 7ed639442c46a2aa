package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avoronkov/tutorhub/internal/model"
)

// In-memory двойники хранилищ. Повторяют контракт pgx-репозиториев,
// включая атомарность по ключу леджера и «exclusion constraint» на вставке.

var errStorageDown = errors.New("storage temporarily down")

type memUsers struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]*model.User
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{users: make(map[int64]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
		if u.ID > m.seq {
			m.seq = u.ID
		}
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *memUsers) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	user.ID = m.seq
	user.CreatedAt = time.Now().UTC()
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) UpdateTimezone(_ context.Context, id int64, timezone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return model.ErrNotFound
	}
	user.Timezone = timezone
	return nil
}

type memRules struct {
	mu    sync.Mutex
	seq   int64
	items map[int64]*model.WeeklyAvailabilityRule
}

func newMemRules() *memRules {
	return &memRules{items: make(map[int64]*model.WeeklyAvailabilityRule)}
}

func (m *memRules) Create(_ context.Context, rule *model.WeeklyAvailabilityRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	rule.ID = m.seq
	rule.CreatedAt = time.Now().UTC()
	rule.UpdatedAt = rule.CreatedAt
	saved := *rule
	m.items[rule.ID] = &saved
	return nil
}

func (m *memRules) GetByID(_ context.Context, id int64) (*model.WeeklyAvailabilityRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *rule
	return &copied, nil
}

func (m *memRules) GetByTutorID(_ context.Context, tutorID int64) ([]*model.WeeklyAvailabilityRule, error) {
	return m.list(tutorID, false), nil
}

func (m *memRules) GetActiveByTutorID(_ context.Context, tutorID int64) ([]*model.WeeklyAvailabilityRule, error) {
	return m.list(tutorID, true), nil
}

func (m *memRules) list(tutorID int64, onlyActive bool) []*model.WeeklyAvailabilityRule {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.WeeklyAvailabilityRule
	for _, rule := range m.items {
		if rule.TutorID != tutorID || (onlyActive && !rule.IsActive) {
			continue
		}
		copied := *rule
		out = append(out, &copied)
	}
	return out
}

func (m *memRules) Update(_ context.Context, rule *model.WeeklyAvailabilityRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[rule.ID]; !ok {
		return fmt.Errorf("availability rule not found")
	}
	rule.UpdatedAt = time.Now().UTC()
	saved := *rule
	m.items[rule.ID] = &saved
	return nil
}

type memAppointments struct {
	mu    sync.Mutex
	seq   int64
	items map[int64]*model.Appointment

	// Сколько ближайших Create вернут транзиентную ошибку
	failCreates int
}

func newMemAppointments() *memAppointments {
	return &memAppointments{items: make(map[int64]*model.Appointment)}
}

func (m *memAppointments) Create(_ context.Context, appointment *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreates > 0 {
		m.failCreates--
		return errStorageDown
	}

	// Аналог exclusion constraint БД: пересечение с активной записью — конфликт
	for _, existing := range m.items {
		if existing.TutorID == appointment.TutorID && existing.IsActive() &&
			existing.Overlaps(appointment.StartTime, appointment.EndTime) {
			return fmt.Errorf("create appointment: %w", model.ErrConflict)
		}
		if appointment.IdempotencyKey != nil && existing.IdempotencyKey != nil &&
			*existing.IdempotencyKey == *appointment.IdempotencyKey {
			return fmt.Errorf("create appointment: %w", model.ErrConflict)
		}
	}

	m.seq++
	appointment.ID = m.seq
	appointment.CreatedAt = time.Now().UTC()
	appointment.UpdatedAt = appointment.CreatedAt
	saved := *appointment
	m.items[appointment.ID] = &saved
	return nil
}

func (m *memAppointments) GetByID(_ context.Context, id int64) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appointment, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *appointment
	return &copied, nil
}

func (m *memAppointments) GetByIdempotencyKey(_ context.Context, key uuid.UUID) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, appointment := range m.items {
		if appointment.IdempotencyKey != nil && *appointment.IdempotencyKey == key {
			copied := *appointment
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memAppointments) FindOverlapping(_ context.Context, tutorID int64, start, end time.Time) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, appointment := range m.items {
		if appointment.TutorID == tutorID && appointment.IsActive() && appointment.Overlaps(start, end) {
			copied := *appointment
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memAppointments) ListActiveInRange(_ context.Context, tutorID int64, from, to time.Time) ([]*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Appointment
	for _, appointment := range m.items {
		if appointment.TutorID == tutorID && appointment.IsActive() && appointment.Overlaps(from, to) {
			copied := *appointment
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memAppointments) ListByTutorID(_ context.Context, tutorID int64) ([]*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Appointment
	for _, appointment := range m.items {
		if appointment.TutorID == tutorID {
			copied := *appointment
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memAppointments) ListByStudentID(_ context.Context, studentID int64) ([]*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Appointment
	for _, appointment := range m.items {
		if appointment.StudentID == studentID {
			copied := *appointment
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memAppointments) UpdateStatus(_ context.Context, id int64, from, to model.AppointmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	appointment, ok := m.items[id]
	if !ok || appointment.Status != from {
		return fmt.Errorf("appointment %d is no longer %s: %w", id, from, model.ErrInvalidTransition)
	}
	appointment.Status = to
	appointment.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memAppointments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memLedgers struct {
	mu    sync.Mutex
	seq   int64
	items map[int64]*model.LectureHoursLedger

	payments *memPayments

	// Ближайший Settle вернёт эту ошибку, не тронув леджер —
	// как откат транзакции расчёта
	failSettle error
}

// newMemBilling создаёт связанную пару хранилищ: расчёт в леджере пишет
// платёж, а выставление платежа сверяется с долгом — как в одной БД
func newMemBilling() (*memLedgers, *memPayments) {
	ledgers := &memLedgers{items: make(map[int64]*model.LectureHoursLedger)}
	payments := &memPayments{items: make(map[int64]*model.Payment)}
	ledgers.payments = payments
	payments.ledgers = ledgers
	return ledgers, payments
}

func (m *memLedgers) getByID(id int64) *model.LectureHoursLedger {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, ok := m.items[id]
	if !ok {
		return nil
	}
	copied := *ledger
	return &copied
}

func (m *memLedgers) find(studentID, tutorID int64, subject string) *model.LectureHoursLedger {
	for _, ledger := range m.items {
		if ledger.StudentID == studentID && ledger.TutorID == tutorID && ledger.Subject == subject {
			return ledger
		}
	}
	return nil
}

func (m *memLedgers) ApplyCompletion(_ context.Context, studentID, tutorID int64, subject string, hours float64, sessionAt time.Time, defaultIntervalHours float64) (*model.LectureHoursLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger := m.find(studentID, tutorID, subject)
	if ledger == nil {
		m.seq++
		ledger = &model.LectureHoursLedger{
			ID:                   m.seq,
			StudentID:            studentID,
			TutorID:              tutorID,
			Subject:              subject,
			PaymentIntervalHours: defaultIntervalHours,
			CreatedAt:            time.Now().UTC(),
		}
		m.items[ledger.ID] = ledger
	}

	ledger.TotalHours += hours
	ledger.UnpaidHours += hours
	at := sessionAt
	ledger.LastSessionAt = &at
	ledger.UpdatedAt = time.Now().UTC()

	copied := *ledger
	return &copied, nil
}

func (m *memLedgers) Get(_ context.Context, studentID, tutorID int64, subject string) (*model.LectureHoursLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger := m.find(studentID, tutorID, subject)
	if ledger == nil {
		return nil, nil
	}
	copied := *ledger
	return &copied, nil
}

func (m *memLedgers) List(_ context.Context, studentID, tutorID *int64) ([]*model.LectureHoursLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.LectureHoursLedger
	for _, ledger := range m.items {
		if studentID != nil && ledger.StudentID != *studentID {
			continue
		}
		if tutorID != nil && ledger.TutorID != *tutorID {
			continue
		}
		copied := *ledger
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memLedgers) ListOverdue(_ context.Context) ([]*model.LectureHoursLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.LectureHoursLedger
	for _, ledger := range m.items {
		if ledger.UnpaidHours >= ledger.PaymentIntervalHours {
			copied := *ledger
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memLedgers) Settle(_ context.Context, ledgerID int64, hourlyRateCents int64, paidAt time.Time) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, ok := m.items[ledgerID]
	if !ok || ledger.UnpaidHours <= 0 {
		return nil, fmt.Errorf("settle ledger %d: %w", ledgerID, model.ErrNothingToSettle)
	}

	if m.failSettle != nil {
		err := m.failSettle
		m.failSettle = nil
		return nil, err
	}

	hours := ledger.UnpaidHours
	ledger.UnpaidHours = 0
	ledger.ReminderPending = false
	ledger.UpdatedAt = time.Now().UTC()

	amount := int64(math.Round(hours * float64(hourlyRateCents)))
	return m.payments.closeOrCreatePaid(ledgerID, amount, hours, paidAt), nil
}

func (m *memLedgers) SetReminderPending(_ context.Context, ledgerID int64, pending bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger, ok := m.items[ledgerID]
	if !ok {
		return fmt.Errorf("ledger not found")
	}
	ledger.ReminderPending = pending
	return nil
}

type memPayments struct {
	mu    sync.Mutex
	seq   int64
	items map[int64]*model.Payment

	ledgers *memLedgers
}

func (m *memPayments) CreateDue(_ context.Context, ledgerID int64, hourlyRateCents int64, dueDate time.Time) (*model.Payment, error) {
	// Как в SQL: вставка обусловлена текущим долгом самого леджера
	ledger := m.ledgers.getByID(ledgerID)
	if ledger == nil || ledger.UnpaidHours < ledger.PaymentIntervalHours {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	due := dueDate
	payment := &model.Payment{
		LedgerID:      ledgerID,
		AmountCents:   int64(math.Round(ledger.UnpaidHours * float64(hourlyRateCents))),
		HoursIncluded: ledger.UnpaidHours,
		Status:        model.PaymentStatusDue,
		DueDate:       &due,
	}
	m.seq++
	payment.ID = m.seq
	payment.CreatedAt = time.Now().UTC()
	payment.UpdatedAt = payment.CreatedAt
	m.items[payment.ID] = payment

	copied := *payment
	return &copied, nil
}

// closeOrCreatePaid закрывает открытый платёж леджера или создаёт оплаченный.
// Вызывается из Settle леджера — вторая половина «транзакции» расчёта.
func (m *memPayments) closeOrCreatePaid(ledgerID int64, amountCents int64, hours float64, paidAt time.Time) *model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()

	at := paidAt
	for _, payment := range m.items {
		if payment.LedgerID == ledgerID && payment.Status == model.PaymentStatusDue {
			payment.Status = model.PaymentStatusPaid
			payment.AmountCents = amountCents
			payment.HoursIncluded = hours
			payment.PaidDate = &at
			payment.UpdatedAt = time.Now().UTC()
			copied := *payment
			return &copied
		}
	}

	m.seq++
	payment := &model.Payment{
		ID:            m.seq,
		LedgerID:      ledgerID,
		AmountCents:   amountCents,
		HoursIncluded: hours,
		Status:        model.PaymentStatusPaid,
		PaidDate:      &at,
		CreatedAt:     time.Now().UTC(),
	}
	payment.UpdatedAt = payment.CreatedAt
	m.items[payment.ID] = payment

	copied := *payment
	return &copied
}

func (m *memPayments) GetOpenDue(_ context.Context, ledgerID int64) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, payment := range m.items {
		if payment.LedgerID == ledgerID && payment.Status == model.PaymentStatusDue {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memPayments) BumpReminder(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payment, ok := m.items[id]
	if !ok {
		return fmt.Errorf("payment not found")
	}
	payment.RemindersSent++
	when := at
	payment.LastReminderAt = &when
	return nil
}

func (m *memPayments) ListByLedger(_ context.Context, ledgerID int64) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Payment
	for _, payment := range m.items {
		if payment.LedgerID == ledgerID {
			copied := *payment
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memPayments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memNotifier struct {
	mu        sync.Mutex
	booked    []model.AppointmentBookedEvent
	cancelled []model.AppointmentCancelledEvent
	due       []model.PaymentDueEvent
}

func (n *memNotifier) AppointmentBooked(_ context.Context, event model.AppointmentBookedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.booked = append(n.booked, event)
}

func (n *memNotifier) AppointmentCancelled(_ context.Context, event model.AppointmentCancelledEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, event)
}

func (n *memNotifier) PaymentDue(_ context.Context, event model.PaymentDueEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.due = append(n.due, event)
}

type stubCompletions struct {
	mu        sync.Mutex
	completed []*model.Appointment
	err       error
}

func (s *stubCompletions) OnCompleted(_ context.Context, appointment *model.Appointment) (*model.LectureHoursLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.completed = append(s.completed, appointment)
	return &model.LectureHoursLedger{}, nil
}
