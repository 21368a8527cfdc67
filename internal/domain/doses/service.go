package doses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"med-adherence-tracker/internal/platform/logger"
	"med-adherence-tracker/internal/platform/metrics"
)

const recentLimit = 50

var tracer = otel.Tracer("med-adherence-tracker/doses")

type Service struct {
	store   Store
	catalog Catalog
	loc     *time.Location
	log     logger.Logger
	now     func() time.Time
}

func NewService(store Store, catalog Catalog, loc *time.Location, log logger.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:   store,
		catalog: catalog,
		loc:     loc,
		log:     log,
		now:     time.Now,
	}
}

func (s *Service) Catalog() Catalog { return s.catalog }

// SetClock reemplaza el reloj del servicio (tests / entornos con hora fija).
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Location() *time.Location { return s.loc }

// clock devuelve "ahora" en la zona del tracker, truncado a segundos
// (el formato persistido HH:MM:SS no guarda fracciones).
func (s *Service) clock() time.Time {
	return s.now().In(s.loc).Truncate(time.Second)
}

// Record registra una toma de name con la hora del servidor.
func (s *Service) Record(ctx context.Context, name string) (DoseEvent, error) {
	ctx, span := tracer.Start(ctx, "doses.Record")
	defer span.End()

	m, ok := s.catalog.Lookup(name)
	if !ok {
		span.SetStatus(codes.Error, "unknown medicine")
		return DoseEvent{}, fmt.Errorf("%w: %q", ErrUnknownMedicine, name)
	}
	span.SetAttributes(attribute.String("medicine", m.Name))

	now := s.clock()

	if m.Kind == KindRescue {
		history, err := s.store.List(ctx)
		if err != nil {
			// Fail-open: si no podemos leer, no bloqueamos la toma.
			metrics.IncStoreError("list")
			s.log.Warn("rescue cooldown check skipped", map[string]any{"medicine": m.Name, "err": err})
		} else if st := Evaluate(history, now, s.catalog).Rescue; !st.Available() {
			metrics.IncRescueRejected()
			return DoseEvent{}, fmt.Errorf("%w: %dh%dm left", ErrRescueCooldown, st.Hours(), st.Minutes())
		}
	}

	e := DoseEvent{Medicine: m.Name, TakenAt: now}
	if err := s.store.Append(ctx, e); err != nil {
		metrics.IncStoreError("append")
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return DoseEvent{}, storeErr("append", err)
	}

	metrics.IncDoseRecorded(m.Name)
	s.log.Info("dose recorded", map[string]any{
		"medicine": m.Name,
		"date":     e.Date(),
		"time":     e.Clock(),
	})
	return e, nil
}

// DeleteToday borra la toma más reciente de hoy para name. Si no hay, es no-op.
func (s *Service) DeleteToday(ctx context.Context, name string) (bool, error) {
	ctx, span := tracer.Start(ctx, "doses.DeleteToday")
	defer span.End()

	name = NormalizeName(name)
	span.SetAttributes(attribute.String("medicine", name))

	w := DateOf(s.clock()).Bounds(s.loc)
	deleted, err := s.store.DeleteLatest(ctx, name, w)
	if err != nil {
		metrics.IncStoreError("delete")
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return false, storeErr("delete", err)
	}

	if deleted {
		metrics.IncDoseDeleted(name)
		s.log.Info("dose deleted", map[string]any{"medicine": name, "date": DateOf(w.Start).String()})
	} else {
		s.log.Debug("nothing to delete", map[string]any{"medicine": name})
	}
	return deleted, nil
}

// StatusView es lo que necesita la pantalla principal.
type StatusView struct {
	Catalog   Catalog
	Adherence Adherence
	Recent    []DoseEvent

	// Degraded no es nil si el historial no se pudo leer (se evaluó como vacío).
	Degraded error
}

func (s *Service) Status(ctx context.Context) StatusView {
	ctx, span := tracer.Start(ctx, "doses.Status")
	defer span.End()

	now := s.clock()
	history, degraded := s.readHistory(ctx, "status")

	a := Evaluate(history, now, s.catalog)
	for _, d := range a.Diagnostics {
		var mt *MalformedTimestampError
		if errors.As(d, &mt) {
			s.log.Warn("malformed rescue timestamp, treating as available", map[string]any{
				"medicine": mt.Medicine,
				"raw":      mt.Raw,
			})
		}
	}

	return StatusView{
		Catalog:   s.catalog,
		Adherence: a,
		Recent:    recent(history, recentLimit),
		Degraded:  degraded,
	}
}

type HistoryView struct {
	Days     []DayLog
	Degraded error
}

func (s *Service) History(ctx context.Context) HistoryView {
	ctx, span := tracer.Start(ctx, "doses.History")
	defer span.End()

	history, degraded := s.readHistory(ctx, "history")
	return HistoryView{
		Days:     Aggregate(history, DateOf(s.clock()), HistoryDays, s.loc),
		Degraded: degraded,
	}
}

// readHistory nunca falla: ante error de store devuelve historial vacío y el error envuelto.
func (s *Service) readHistory(ctx context.Context, view string) ([]DoseEvent, error) {
	history, err := s.store.List(ctx)
	if err != nil {
		metrics.IncStoreError("list")
		metrics.IncDegradedView(view)
		s.log.Warn("store read failed, rendering empty history", map[string]any{"view": view, "err": err})
		return nil, storeErr("list", err)
	}
	return history, nil
}

// recent devuelve los últimos n eventos, el más nuevo primero.
func recent(history []DoseEvent, n int) []DoseEvent {
	start := 0
	if len(history) > n {
		start = len(history) - n
	}
	out := make([]DoseEvent, 0, len(history)-start)
	for i := len(history) - 1; i >= start; i-- {
		out = append(out, history[i])
	}
	return out
}
