package doses

import "time"

// DayLog agrupa los eventos de un día, en orden ascendente.
type DayLog struct {
	Date   Date
	Events []DoseEvent
}

// Aggregate arma los últimos days días (hoy primero). Todos los días aparecen,
// aunque no tengan eventos. loc define el día calendario de cada evento.
func Aggregate(history []DoseEvent, today Date, days int, loc *time.Location) []DayLog {
	if days <= 0 {
		return []DayLog{}
	}
	if loc == nil {
		loc = time.UTC
	}

	out := make([]DayLog, days)
	index := make(map[Date]int, days)
	for i := 0; i < days; i++ {
		d := today.AddDays(-i)
		out[i] = DayLog{Date: d, Events: []DoseEvent{}}
		index[d] = i
	}

	for _, e := range history {
		if e.Malformed() {
			continue
		}
		i, ok := index[DateOf(e.TakenAt.In(loc))]
		if !ok {
			continue
		}
		out[i].Events = append(out[i].Events, e)
	}
	return out
}
