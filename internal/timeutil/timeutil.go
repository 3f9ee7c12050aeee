package timeutil

import (
	"fmt"
	"time"
)

var saoPauloLocation = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("America/Sao_Paulo", -3*60*60)
	}
	return loc
}

// Now returns the current time in America/Sao_Paulo timezone.
func Now() time.Time {
	return time.Now().In(saoPauloLocation)
}

// InSaoPaulo converts provided time to America/Sao_Paulo timezone.
func InSaoPaulo(t time.Time) time.Time {
	return t.In(saoPauloLocation)
}

// Location returns America/Sao_Paulo location instance.
func Location() *time.Location {
	return saoPauloLocation
}

// DueDate returns the due date monthsAhead months after from, on the given
// day of month. A day past the end of the target month is clamped to its
// last day: day 31 in a 30-day month yields day 30, never day 1 of the
// month after.
func DueDate(from time.Time, monthsAhead, day int) time.Time {
	from = from.In(saoPauloLocation)
	firstOfTarget := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, saoPauloLocation).AddDate(0, monthsAhead, 0)
	last := lastDayOfMonth(firstOfTarget.Year(), firstOfTarget.Month())
	if day < 1 {
		day = 1
	}
	if day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, saoPauloLocation)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, saoPauloLocation).Day()
}

// SameDay reports whether a and b fall on the same calendar day in
// America/Sao_Paulo.
func SameDay(a, b time.Time) bool {
	a = a.In(saoPauloLocation)
	b = b.In(saoPauloLocation)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthLabel formats a date as the invoice month label, e.g. "Março/2026".
func MonthLabel(t time.Time) string {
	t = t.In(saoPauloLocation)
	return fmt.Sprintf("%s/%d", monthNames[int(t.Month())-1], t.Year())
}

// MonthKey formats a date as a sortable year-month key, e.g. "2026-03".
// Used to group invoice commitments by calendar month.
func MonthKey(t time.Time) string {
	t = t.In(saoPauloLocation)
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}
