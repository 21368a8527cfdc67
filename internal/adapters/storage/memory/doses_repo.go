package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"med-adherence-tracker/internal/domain/doses"
)

type doseRepo struct {
	mu     sync.RWMutex
	events []doses.DoseEvent
}

func NewDoseRepo() doses.Store {
	return &doseRepo{}
}

func (r *doseRepo) Append(ctx context.Context, e doses.DoseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(e.Medicine) == "" {
		return errors.New("medicine required")
	}
	r.events = append(r.events, e)
	return nil
}

func (r *doseRepo) List(ctx context.Context) ([]doses.DoseEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.DoseEvent, len(r.events))
	copy(out, r.events)
	doses.SortEvents(out)
	return out, nil
}

func (r *doseRepo) DeleteLatest(ctx context.Context, name string, w doses.Window) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	best := -1
	for i, e := range r.events {
		if e.Medicine != name || e.Malformed() || !w.Contains(e.TakenAt) {
			continue
		}
		// >= para que, a igual hora, gane el insertado después
		if best < 0 || !e.TakenAt.Before(r.events[best].TakenAt) {
			best = i
		}
	}
	if best < 0 {
		return false, nil
	}

	r.events = append(r.events[:best], r.events[best+1:]...)
	return true, nil
}
