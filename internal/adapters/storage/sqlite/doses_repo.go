package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"med-adherence-tracker/internal/domain/doses"
)

const schema = `
CREATE TABLE IF NOT EXISTS dose_events (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	id       TEXT NOT NULL UNIQUE,
	name     TEXT NOT NULL,
	taken_at INTEGER NOT NULL,
	date     TEXT NOT NULL,
	time     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dose_events_name_taken ON dose_events (name, taken_at);
`

// DoseRepo persiste tomas en SQLite (driver modernc, sin cgo).
// taken_at es unix en segundos; date/time replican el layout histórico.
type DoseRepo struct {
	db  *sqlx.DB
	loc *time.Location
}

type doseRow struct {
	Seq     int64  `db:"seq"`
	ID      string `db:"id"`
	Name    string `db:"name"`
	TakenAt int64  `db:"taken_at"`
	Date    string `db:"date"`
	Time    string `db:"time"`
}

// Open abre (o crea) la base y aplica el schema.
func Open(path string, loc *time.Location) (*DoseRepo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if loc == nil {
		loc = time.Local
	}

	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Un solo writer evita SQLITE_BUSY entre conexiones del mismo proceso.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &DoseRepo{db: db, loc: loc}, nil
}

func (r *DoseRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *DoseRepo) Append(ctx context.Context, e doses.DoseEvent) error {
	if e.Malformed() {
		return fmt.Errorf("sqlite: event without timestamp")
	}
	t := e.TakenAt.In(r.loc)

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO dose_events (id, name, taken_at, date, time)
		VALUES (:id, :name, :taken_at, :date, :time)
	`, doseRow{
		ID:      uuid.NewString(),
		Name:    e.Medicine,
		TakenAt: t.Unix(),
		Date:    t.Format(doses.DateLayout),
		Time:    t.Format(doses.ClockLayout),
	})
	return err
}

func (r *DoseRepo) List(ctx context.Context) ([]doses.DoseEvent, error) {
	var rows []doseRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT seq, id, name, taken_at, date, time
		FROM dose_events
		ORDER BY taken_at ASC, seq ASC
	`); err != nil {
		return nil, err
	}

	out := make([]doses.DoseEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, doses.DoseEvent{
			Medicine: row.Name,
			TakenAt:  time.Unix(row.TakenAt, 0).In(r.loc),
		})
	}
	return out, nil
}

func (r *DoseRepo) DeleteLatest(ctx context.Context, name string, w doses.Window) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM dose_events
		WHERE seq = (
			SELECT seq FROM dose_events
			WHERE name = ? AND taken_at >= ? AND taken_at < ?
			ORDER BY taken_at DESC, seq DESC
			LIMIT 1
		)
	`, name, w.Start.Unix(), w.End.Unix())
	if err != nil {
		return false, err
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}
