package localtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadZone(name)
	require.NoError(t, err)
	return loc
}

func TestToInstantPlain(t *testing.T) {
	ny := mustZone(t, "America/New_York")

	// Обычное зимнее время, EST = UTC-5
	got := ToInstant(WallTime{2025, time.January, 15, 10, 0}, ny)
	assert.Equal(t, time.Date(2025, time.January, 15, 15, 0, 0, 0, time.UTC), got)
}

func TestToInstantSpringForwardGap(t *testing.T) {
	ny := mustZone(t, "America/New_York")

	// 02:30 09.03.2025 в Нью-Йорке не существует: в 02:00 часы переводят на 03:00.
	// Момент должен получиться так, будто ещё действовало смещение до перехода
	// (02:30 EST = 07:30 UTC), а обратное отображение покажет 03:30, не 02:30.
	got := ToInstant(WallTime{2025, time.March, 9, 2, 30}, ny)
	assert.Equal(t, time.Date(2025, time.March, 9, 7, 30, 0, 0, time.UTC), got)

	back := FromInstant(got, ny)
	assert.Equal(t, WallTime{2025, time.March, 9, 3, 30}, back)
}

func TestToInstantFallBackAmbiguity(t *testing.T) {
	ny := mustZone(t, "America/New_York")

	// 01:30 02.11.2025 встречается дважды. Берём первое (раннее) вхождение:
	// 01:30 EDT = 05:30 UTC, а не 01:30 EST = 06:30 UTC.
	got := ToInstant(WallTime{2025, time.November, 2, 1, 30}, ny)
	assert.Equal(t, time.Date(2025, time.November, 2, 5, 30, 0, 0, time.UTC), got)
}

func TestFromInstantAmbiguousRendersSameWall(t *testing.T) {
	ny := mustZone(t, "America/New_York")

	// Два разных момента отображаются в одно и то же локальное время —
	// это ожидаемое следствие перевода часов назад.
	first := time.Date(2025, time.November, 2, 5, 30, 0, 0, time.UTC)
	second := time.Date(2025, time.November, 2, 6, 30, 0, 0, time.UTC)

	assert.Equal(t, WallTime{2025, time.November, 2, 1, 30}, FromInstant(first, ny))
	assert.Equal(t, WallTime{2025, time.November, 2, 1, 30}, FromInstant(second, ny))
}

func TestRoundTripOutsideTransitions(t *testing.T) {
	zones := []string{"America/New_York", "Europe/Moscow", "Asia/Tokyo", "Australia/Lord_Howe"}

	instants := []time.Time{
		time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 21, 23, 45, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 6, 15, 0, 0, time.UTC),
	}

	for _, name := range zones {
		loc := mustZone(t, name)
		for _, instant := range instants {
			back := ToInstant(FromInstant(instant, loc), loc)
			assert.Equal(t, instant, back, "zone %s, instant %s", name, instant)
		}
	}
}

func TestToInstantDeterministic(t *testing.T) {
	ny := mustZone(t, "America/New_York")
	w := WallTime{2025, time.November, 2, 1, 30}

	first := ToInstant(w, ny)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ToInstant(w, ny))
	}
}

func TestLoadZoneUnknown(t *testing.T) {
	_, err := LoadZone("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-01-02")
	require.NoError(t, err)
	assert.Equal(t, Date{2023, time.January, 2}, d)
	assert.Equal(t, time.Monday, d.Weekday())

	_, err = ParseDate("02.01.2023")
	assert.Error(t, err)
}

func TestDateHelpers(t *testing.T) {
	d := Date{2023, time.January, 29}

	assert.Equal(t, Date{2023, time.February, 5}, d.AddDays(7))
	assert.True(t, Date{2023, time.February, 1}.After(d))
	assert.False(t, d.After(d))
	assert.Equal(t, "2023-01-29", d.String())
}
