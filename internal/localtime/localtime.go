// Package localtime отделяет локальное «настенное» время от абсолютного момента.
//
// Все моменты в системе хранятся и сравниваются только в UTC. Локальное время
// существует лишь на границе: при разворачивании правил доступности в зоне
// репетитора и при отображении пользователю. WallTime и Date намеренно
// не являются time.Time — превратить их в момент можно только явно, указав зону.
package localtime

import (
	"fmt"
	"time"
)

// WallTime — локальное настенное время без привязки к зоне
type WallTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// Date — календарная дата без времени и зоны
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// LoadZone загружает IANA-зону по имени
func LoadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// ToInstant переводит настенное время в зоне loc в абсолютный момент (UTC).
//
// Весенний «скачок» (несуществующее локальное время): время нормализуется
// вперёд, как если бы ещё действовало смещение до перехода. Момент определён
// однозначно, но при обратном отображении в той же зоне будет показан час
// после перехода, а не исходный — это известная асимметрия, не баг.
//
// Осенняя неоднозначность (время встречается дважды): детерминированно
// выбирается первое (раннее) вхождение. Два разных момента, отображающихся
// в одно и то же локальное время, — ожидаемый результат.
func ToInstant(w WallTime, loc *time.Location) time.Time {
	t := time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, 0, 0, loc)

	// Стандартная библиотека не гарантирует, какое из двух вхождений
	// неоднозначного времени вернёт time.Date. Проверяем кандидатов,
	// сдвинутых на типичные величины DST-перехода, и берём ранний.
	for _, shift := range []time.Duration{-30 * time.Minute, -time.Hour} {
		if alt := t.Add(shift); sameWall(alt, w, loc) {
			t = alt
		}
	}
	return t.UTC()
}

// FromInstant отображает абсолютный момент в настенное время зоны loc
func FromInstant(t time.Time, loc *time.Location) WallTime {
	lt := t.In(loc)
	return WallTime{
		Year:   lt.Year(),
		Month:  lt.Month(),
		Day:    lt.Day(),
		Hour:   lt.Hour(),
		Minute: lt.Minute(),
	}
}

func sameWall(t time.Time, w WallTime, loc *time.Location) bool {
	lt := t.In(loc)
	return lt.Year() == w.Year && lt.Month() == w.Month && lt.Day() == w.Day &&
		lt.Hour() == w.Hour && lt.Minute() == w.Minute
}

// ParseDate разбирает дату в формате YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// At совмещает дату с локальным временем суток
func (d Date) At(hour, minute int) WallTime {
	return WallTime{Year: d.Year, Month: d.Month, Day: d.Day, Hour: hour, Minute: minute}
}

// Weekday возвращает день недели даты (0 = Sunday)
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// AddDays возвращает дату, сдвинутую на n дней
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// After — строго позже ли дата d даты o
func (d Date) After(o Date) bool {
	if d.Year != o.Year {
		return d.Year > o.Year
	}
	if d.Month != o.Month {
		return d.Month > o.Month
	}
	return d.Day > o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
