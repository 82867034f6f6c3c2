// Package clock содержит функции фиксированных смещений от текущего момента.
// Все функции чистые: "сейчас" передается явно, чтобы логику истечения
// сроков можно было тестировать без реального времени.
package clock

import "time"

// Clock returns the current instant.
type Clock func() time.Time

// System is the wall clock.
func System() time.Time { return time.Now() }

const (
	FiveMinutes    = 5 * time.Minute
	FifteenMinutes = 15 * time.Minute
	OneHour        = time.Hour
	OneDay         = 24 * time.Hour
	ThirtyDays     = 30 * OneDay
	OneYear        = 365 * OneDay
)

// FromNow returns the instant d after now.
func FromNow(now time.Time, d time.Duration) time.Time { return now.Add(d) }

// Ago returns the instant d before now.
func Ago(now time.Time, d time.Duration) time.Time { return now.Add(-d) }

// Fixed returns a Clock frozen at t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}
