package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"med-adherence-tracker/internal/domain/doses"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// DoseRepo guarda las tomas como JSON en una lista de Redis (RPUSH = orden de inserción).
type DoseRepo struct {
	rdb *redis.Client
	key string
	loc *time.Location
}

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Unix int64  `json:"unix"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// deleteLatest recorre la lista y borra el elemento de mayor unix dentro de
// [ARGV[2], ARGV[3]) para ARGV[1]; a igual hora gana el insertado después.
// Corre como script, así que es atómico en el servidor.
var deleteLatest = redis.NewScript(`
local items = redis.call('LRANGE', KEYS[1], 0, -1)
local best = nil
local bestUnix = nil
local from = tonumber(ARGV[2])
local to = tonumber(ARGV[3])
for i = 1, #items do
	local ok, rec = pcall(cjson.decode, items[i])
	if ok and rec.name == ARGV[1] and rec.unix ~= nil and rec.unix >= from and rec.unix < to then
		if bestUnix == nil or rec.unix >= bestUnix then
			best = items[i]
			bestUnix = rec.unix
		end
	end
end
if best == nil then
	return 0
end
return redis.call('LREM', KEYS[1], -1, best)
`)

func New(cfg Config, loc *time.Location) (*DoseRepo, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("REDIS_ADDR is required")
	}
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = "dose_events"
	}
	if loc == nil {
		loc = time.Local
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &DoseRepo{rdb: rdb, key: key, loc: loc}, nil
}

func (r *DoseRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *DoseRepo) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

func (r *DoseRepo) Append(ctx context.Context, e doses.DoseEvent) error {
	if e.Malformed() {
		return errors.New("redisstore: event without timestamp")
	}
	t := e.TakenAt.In(r.loc)

	b, err := json.Marshal(record{
		ID:   uuid.NewString(),
		Name: e.Medicine,
		Unix: t.Unix(),
		Date: t.Format(doses.DateLayout),
		Time: t.Format(doses.ClockLayout),
	})
	if err != nil {
		return err
	}
	return r.rdb.RPush(ctx, r.key, b).Err()
}

func (r *DoseRepo) List(ctx context.Context) ([]doses.DoseEvent, error) {
	items, err := r.rdb.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]doses.DoseEvent, 0, len(items))
	for _, raw := range items {
		out = append(out, decode(raw, r.loc))
	}
	doses.SortEvents(out)
	return out, nil
}

func (r *DoseRepo) DeleteLatest(ctx context.Context, name string, w doses.Window) (bool, error) {
	n, err := deleteLatest.Run(ctx, r.rdb, []string{r.key}, name, w.Start.Unix(), w.End.Unix()).Int64()
	if err != nil {
		return false, fmt.Errorf("redisstore: delete latest: %w", err)
	}
	return n > 0, nil
}

// decode no falla: un elemento ilegible se devuelve como evento malformado.
func decode(raw string, loc *time.Location) doses.DoseEvent {
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return doses.DoseEvent{Raw: raw}
	}
	if rec.Unix > 0 {
		return doses.DoseEvent{Medicine: rec.Name, TakenAt: time.Unix(rec.Unix, 0).In(loc)}
	}
	// registros escritos a mano sin unix: intentamos date/time
	t, err := doses.ParseStamp(rec.Date, rec.Time, loc)
	if err != nil {
		return doses.DoseEvent{Medicine: rec.Name, Raw: strings.TrimSpace(rec.Date + " " + rec.Time)}
	}
	return doses.DoseEvent{Medicine: rec.Name, TakenAt: t}
}
