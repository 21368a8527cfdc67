package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"med-adherence-tracker/internal/domain/doses"
)

var header = []string{"date", "time", "name"}

// DoseRepo guarda las tomas en un CSV con cabecera date,time,name
// (compatible con el logs.csv histórico).
type DoseRepo struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
}

func NewDoseRepo(path string, loc *time.Location) *DoseRepo {
	if loc == nil {
		loc = time.Local
	}
	return &DoseRepo{path: filepath.Clean(path), loc: loc}
}

type row struct {
	date string
	time string
	name string
}

func (r row) event(loc *time.Location) doses.DoseEvent {
	t, err := doses.ParseStamp(r.date, r.time, loc)
	if err != nil {
		return doses.DoseEvent{Medicine: r.name, Raw: strings.TrimSpace(r.date + " " + r.time)}
	}
	return doses.DoseEvent{Medicine: r.name, TakenAt: t}
}

// Append agrega una fila respetando el orden de columnas de la cabecera existente.
func (r *DoseRepo) Append(ctx context.Context, e doses.DoseEvent) error {
	if e.Malformed() {
		return errors.New("csvfile: event without timestamp")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("csvfile: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("csvfile: stat: %w", err)
	}

	head := header
	writeHeader := info.Size() == 0
	newline := false
	if info.Size() > 0 {
		head, err = csv.NewReader(f).Read()
		if errors.Is(err, io.EOF) {
			head, writeHeader = header, true
		} else if err != nil {
			return fmt.Errorf("csvfile: read header: %w", err)
		}

		// un logs.csv editado a mano puede no terminar en salto de línea
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil {
			return fmt.Errorf("csvfile: read tail: %w", err)
		}
		newline = last[0] != '\n'
	}
	col, err := columns(head)
	if err != nil {
		return err
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csvfile: seek: %w", err)
	}
	if newline {
		if _, err := f.Write([]byte("\n")); err != nil {
			return fmt.Errorf("csvfile: write: %w", err)
		}
	}

	t := e.TakenAt.In(r.loc)
	rec := make([]string, len(head))
	rec[col["date"]] = t.Format(doses.DateLayout)
	rec[col["time"]] = t.Format(doses.ClockLayout)
	rec[col["name"]] = e.Medicine

	w := csv.NewWriter(f)
	if writeHeader {
		_ = w.Write(header)
	}
	_ = w.Write(rec)
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csvfile: write: %w", err)
	}
	return f.Sync()
}

func (r *DoseRepo) List(ctx context.Context) ([]doses.DoseEvent, error) {
	r.mu.Lock()
	rows, err := r.load()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]doses.DoseEvent, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.event(r.loc))
	}
	doses.SortEvents(out)
	return out, nil
}

func (r *DoseRepo) DeleteLatest(ctx context.Context, name string, w doses.Window) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.load()
	if err != nil {
		return false, err
	}

	best := -1
	var bestAt time.Time
	for i, rw := range rows {
		if doses.NormalizeName(rw.name) != doses.NormalizeName(name) {
			continue
		}
		e := rw.event(r.loc)
		if e.Malformed() || !w.Contains(e.TakenAt) {
			continue
		}
		if best < 0 || !e.TakenAt.Before(bestAt) {
			best, bestAt = i, e.TakenAt
		}
	}
	if best < 0 {
		return false, nil
	}

	rows = append(rows[:best], rows[best+1:]...)
	if err := r.save(rows); err != nil {
		return false, err
	}
	return true, nil
}

// load lee el archivo completo. Un archivo inexistente es un log vacío.
func (r *DoseRepo) load() ([]row, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvfile: open: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvfile: read header: %w", err)
	}

	col, err := columns(head)
	if err != nil {
		return nil, err
	}

	field := func(rec []string, name string) string {
		i := col[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvfile: read: %w", err)
		}
		rows = append(rows, row{
			date: field(rec, "date"),
			time: field(rec, "time"),
			name: field(rec, "name"),
		})
	}
	return rows, nil
}

// columns ubica date/time/name por nombre; tolera BOM y espacios en la cabecera.
func columns(head []string) (map[string]int, error) {
	col := map[string]int{}
	for i, h := range head {
		col[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, h := range header {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("csvfile: missing column %q", h)
		}
	}
	return col, nil
}

// save reescribe el archivo vía temp + rename para que un corte no deje el CSV a medias.
// Las filas malformadas se conservan tal cual.
func (r *DoseRepo) save(rows []row) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csvfile: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	_ = w.Write(header)
	for _, rw := range rows {
		_ = w.Write([]string{rw.date, rw.time, rw.name})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csvfile: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csvfile: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csvfile: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("csvfile: rename: %w", err)
	}
	return nil
}
