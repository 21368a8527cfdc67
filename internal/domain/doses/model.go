package doses

import (
	"fmt"
	"sort"
	"time"
)

const (
	DateLayout  = "2006/01/02"
	ClockLayout = "15:04:05"

	// RescueInterval es el intervalo mínimo entre dos tomas del medicamento de rescate.
	RescueInterval = 4 * time.Hour

	HistoryDays = 7
)

// DoseEvent es una toma registrada. No tiene id: se identifica por (nombre, día).
type DoseEvent struct {
	Medicine string
	TakenAt  time.Time

	// Raw guarda la fecha/hora persistida cuando el store no pudo interpretarla.
	// En ese caso TakenAt queda en cero.
	Raw string
}

func (e DoseEvent) Malformed() bool {
	return e.TakenAt.IsZero()
}

// Date devuelve "YYYY/MM/DD" en la zona de TakenAt.
func (e DoseEvent) Date() string {
	if e.Malformed() {
		return ""
	}
	return e.TakenAt.Format(DateLayout)
}

// Clock devuelve "HH:MM:SS" en la zona de TakenAt.
func (e DoseEvent) Clock() string {
	if e.Malformed() {
		return ""
	}
	return e.TakenAt.Format(ClockLayout)
}

// Date es un día calendario, sin zona horaria.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Bounds devuelve el rango [inicio, fin) del día en loc.
func (d Date) Bounds(loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// ParseDate interpreta "YYYY/MM/DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Window es un rango semiabierto [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ParseStamp arma un instante a partir de los campos persistidos date/time.
func ParseStamp(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
}

// SortEvents ordena por TakenAt ascendente de forma estable (empates por orden de inserción).
// Un evento malformado conserva su lugar detrás del último evento válido que lo precede.
func SortEvents(events []DoseEvent) {
	keys := make([]time.Time, len(events))
	var last time.Time
	for i, e := range events {
		if !e.Malformed() {
			last = e.TakenAt
		}
		keys[i] = last
	}

	idx := make([]int, len(events))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].Before(keys[idx[b]])
	})

	sorted := make([]DoseEvent, len(events))
	for i, j := range idx {
		sorted[i] = events[j]
	}
	copy(events, sorted)
}
