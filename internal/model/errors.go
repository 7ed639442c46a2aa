package model

import "errors"

// Ошибки ядра. Все они относятся к одному запросу и не фатальны для процесса;
// HTTP-слой отображает их в коды ответов.
var (
	ErrConflict          = errors.New("booking conflict")    // интервал пересекается с активной записью
	ErrNotFound          = errors.New("not found")           // репетитор/ученик/запись не найдены
	ErrInvalidRange      = errors.New("invalid range")       // некорректное правило или диапазон дат
	ErrInvalidTransition = errors.New("invalid transition")  // недопустимый переход статуса
	ErrForbidden         = errors.New("forbidden")           // действие доступно только участникам записи
	ErrNothingToSettle   = errors.New("nothing to settle")   // повторный расчёт по нулевому долгу
	ErrUnavailable       = errors.New("storage unavailable") // хранилище недоступно после всех попыток
)
