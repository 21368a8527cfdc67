package doses

import "time"

type RescueState string

const (
	RescueAvailable RescueState = "available"
	RescueWaiting   RescueState = "waiting"
)

// RescueStatus indica si el medicamento de rescate puede tomarse ahora.
type RescueStatus struct {
	State         RescueState
	Remaining     time.Duration
	NextAvailable time.Time
}

func (r RescueStatus) Available() bool {
	return r.State != RescueWaiting
}

// Hours y Minutes reportan Remaining truncado (los segundos se descartan).
func (r RescueStatus) Hours() int {
	return int(r.Remaining / time.Hour)
}

func (r RescueStatus) Minutes() int {
	return int((r.Remaining % time.Hour) / time.Minute)
}

// Adherence es el estado derivado del día.
type Adherence struct {
	Today          Date
	TakenToday     map[string]bool
	AllRoutineDone bool
	Rescue         RescueStatus

	// Diagnostics acumula problemas de datos que no impiden evaluar.
	Diagnostics []error
}

func (a Adherence) Taken(name string) bool {
	return a.TakenToday[NormalizeName(name)]
}

// Evaluate calcula la adherencia del día de now. history debe venir en orden ascendente.
func Evaluate(history []DoseEvent, now time.Time, catalog Catalog) Adherence {
	today := DateOf(now)
	a := Adherence{
		Today:      today,
		TakenToday: map[string]bool{},
		Rescue:     RescueStatus{State: RescueAvailable},
	}

	routine := map[string]bool{}
	for _, name := range catalog.Routine() {
		routine[name] = true
	}

	rescueName, hasRescue := catalog.Rescue()
	var lastRescue *DoseEvent

	for i := range history {
		e := history[i]
		name := NormalizeName(e.Medicine)

		if hasRescue && name == rescueName {
			lastRescue = &history[i]
		}

		if e.Malformed() || !routine[name] {
			continue
		}
		if DateOf(e.TakenAt.In(now.Location())) == today {
			a.TakenToday[name] = true
		}
	}

	a.AllRoutineDone = true
	for name := range routine {
		if !a.TakenToday[name] {
			a.AllRoutineDone = false
			break
		}
	}

	if lastRescue != nil {
		if lastRescue.Malformed() {
			a.Diagnostics = append(a.Diagnostics, &MalformedTimestampError{
				Medicine: lastRescue.Medicine,
				Raw:      lastRescue.Raw,
			})
		} else {
			a.Rescue = rescueStatus(lastRescue.TakenAt, now)
		}
	}

	return a
}

func rescueStatus(last, now time.Time) RescueStatus {
	next := last.Add(RescueInterval)
	if !now.Before(next) {
		return RescueStatus{State: RescueAvailable, NextAvailable: next}
	}
	return RescueStatus{
		State:         RescueWaiting,
		Remaining:     next.Sub(now),
		NextAvailable: next,
	}
}
