package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"med-adherence-tracker/internal/domain/doses"
)

type DosesRepo struct {
	db  *sql.DB
	loc *time.Location
}

func NewDosesRepo(db *sql.DB, loc *time.Location) *DosesRepo {
	if loc == nil {
		loc = time.Local
	}
	return &DosesRepo{db: db, loc: loc}
}

func (r *DosesRepo) Append(ctx context.Context, e doses.DoseEvent) error {
	if e.Malformed() {
		return errors.New("postgres: event without timestamp")
	}
	t := e.TakenAt.In(r.loc)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dose_events (id, name, taken_at, date, time)
		VALUES ($1,$2,$3,$4,$5)
	`,
		uuid.NewString(),
		e.Medicine,
		t,
		t.Format(doses.DateLayout),
		t.Format(doses.ClockLayout),
	)
	return err
}

func (r *DosesRepo) List(ctx context.Context) ([]doses.DoseEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, taken_at
		FROM dose_events
		ORDER BY taken_at ASC, seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]doses.DoseEvent, 0)
	for rows.Next() {
		var e doses.DoseEvent
		if err := rows.Scan(&e.Medicine, &e.TakenAt); err != nil {
			return nil, err
		}
		e.TakenAt = e.TakenAt.In(r.loc)
		out = append(out, e)
	}

	return out, rows.Err()
}

// DeleteLatest borra en un único statement para que sea atómico.
func (r *DosesRepo) DeleteLatest(ctx context.Context, name string, w doses.Window) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM dose_events
		WHERE seq = (
			SELECT seq FROM dose_events
			WHERE name = $1 AND taken_at >= $2 AND taken_at < $3
			ORDER BY taken_at DESC, seq DESC
			LIMIT 1
		)
	`, name, w.Start, w.End)
	if err != nil {
		return false, err
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}
