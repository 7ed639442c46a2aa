package model

// Доменные события, которые ядро передаёт наружу.
// Ядро решает только что событие произошло, доставка — внешняя забота.

type AppointmentBookedEvent struct {
	Appointment *Appointment
}

type AppointmentCancelledEvent struct {
	Appointment *Appointment
	CancelledBy int64 // кто отменил: репетитор или ученик
}

type PaymentDueEvent struct {
	Ledger  *LectureHoursLedger
	Payment *Payment
}
