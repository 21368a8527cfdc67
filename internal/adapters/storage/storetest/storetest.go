// Package storetest contiene la batería común que debe pasar todo doses.Store.
package storetest

import (
	"context"
	"testing"
	"time"

	"med-adherence-tracker/internal/domain/doses"
)

// Factory devuelve un store vacío. Se llama una vez por subtest.
type Factory func(t *testing.T) doses.Store

var loc = time.FixedZone("UTC+9", 9*3600)

// Location es la zona con la que deben construirse los stores bajo prueba.
func Location() *time.Location { return loc }

func at(d, hh, mm, ss int) time.Time {
	return time.Date(2024, time.June, d, hh, mm, ss, 0, loc)
}

func day(d int) doses.Window {
	return doses.Date{Year: 2024, Month: time.June, Day: d}.Bounds(loc)
}

func mustAppend(t *testing.T, s doses.Store, name string, ts time.Time) {
	t.Helper()
	if err := s.Append(context.Background(), doses.DoseEvent{Medicine: name, TakenAt: ts}); err != nil {
		t.Fatalf("Append(%s, %s): %v", name, ts, err)
	}
}

func mustList(t *testing.T, s doses.Store) []doses.DoseEvent {
	t.Helper()
	events, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return events
}

// Run ejecuta la batería contra el store que construye newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("empty", func(t *testing.T) {
		s := newStore(t)
		if got := mustList(t, s); len(got) != 0 {
			t.Fatalf("expected empty log, got %v", got)
		}
		deleted, err := s.DeleteLatest(context.Background(), "A", day(1))
		if err != nil || deleted {
			t.Fatalf("DeleteLatest on empty log = %v, %v", deleted, err)
		}
	})

	t.Run("list ascending with insertion order on ties", func(t *testing.T) {
		s := newStore(t)
		mustAppend(t, s, "late", at(1, 10, 0, 0))
		mustAppend(t, s, "tie-1", at(1, 9, 0, 0))
		mustAppend(t, s, "tie-2", at(1, 9, 0, 0))
		mustAppend(t, s, "early", at(1, 8, 0, 0))
		mustAppend(t, s, "朝の薬(1)", at(1, 11, 0, 0))

		got := mustList(t, s)
		want := []string{"early", "tie-1", "tie-2", "late", "朝の薬(1)"}
		if len(got) != len(want) {
			t.Fatalf("expected %d events, got %v", len(want), got)
		}
		for i, e := range got {
			if e.Medicine != want[i] {
				t.Fatalf("position %d: got %s want %s", i, e.Medicine, want[i])
			}
		}
		if !got[0].TakenAt.Equal(at(1, 8, 0, 0)) {
			t.Fatalf("timestamp not preserved: %v", got[0].TakenAt)
		}
		if got[0].Date() != "2024/06/01" || got[0].Clock() != "08:00:00" {
			t.Fatalf("expected local rendering, got %s %s", got[0].Date(), got[0].Clock())
		}
	})

	t.Run("delete latest within window", func(t *testing.T) {
		s := newStore(t)
		mustAppend(t, s, "A", at(1, 23, 0, 0)) // ayer
		mustAppend(t, s, "A", at(2, 7, 0, 0))
		mustAppend(t, s, "A", at(2, 9, 0, 0))
		mustAppend(t, s, "A", at(2, 8, 0, 0))
		mustAppend(t, s, "B", at(2, 10, 0, 0))

		deleted, err := s.DeleteLatest(context.Background(), "A", day(2))
		if err != nil || !deleted {
			t.Fatalf("DeleteLatest = %v, %v", deleted, err)
		}

		var hours []int
		for _, e := range mustList(t, s) {
			if e.Medicine == "A" {
				hours = append(hours, e.TakenAt.In(loc).Hour())
			}
		}
		if len(hours) != 3 || hours[0] != 23 || hours[1] != 7 || hours[2] != 8 {
			t.Fatalf("expected the 09:00 dose removed, remaining hours %v", hours)
		}
	})

	t.Run("delete on tie removes later insertion", func(t *testing.T) {
		s := newStore(t)
		mustAppend(t, s, "A", at(2, 9, 0, 0))
		mustAppend(t, s, "B", at(2, 9, 0, 0))
		mustAppend(t, s, "A", at(2, 9, 0, 0))
		mustAppend(t, s, "C", at(2, 9, 0, 0))

		if deleted, err := s.DeleteLatest(context.Background(), "A", day(2)); err != nil || !deleted {
			t.Fatalf("DeleteLatest = %v, %v", deleted, err)
		}

		got := mustList(t, s)
		want := []string{"A", "B", "C"}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i, e := range got {
			if e.Medicine != want[i] {
				t.Fatalf("position %d: got %s want %s", i, e.Medicine, want[i])
			}
		}
	})

	t.Run("delete without match is a no-op", func(t *testing.T) {
		s := newStore(t)
		mustAppend(t, s, "A", at(1, 8, 0, 0))
		mustAppend(t, s, "B", at(2, 8, 0, 0))

		for _, name := range []string{"A", "C"} {
			deleted, err := s.DeleteLatest(context.Background(), name, day(2))
			if err != nil || deleted {
				t.Fatalf("DeleteLatest(%s) = %v, %v", name, deleted, err)
			}
		}
		if got := mustList(t, s); len(got) != 2 {
			t.Fatalf("store must be untouched, got %v", got)
		}
	})

	t.Run("window is half-open", func(t *testing.T) {
		s := newStore(t)
		mustAppend(t, s, "A", at(3, 0, 0, 0))

		if deleted, _ := s.DeleteLatest(context.Background(), "A", day(2)); deleted {
			t.Fatalf("midnight belongs to the next day")
		}
		if deleted, _ := s.DeleteLatest(context.Background(), "A", day(3)); !deleted {
			t.Fatalf("expected midnight event deleted from its own day")
		}
	})
}
