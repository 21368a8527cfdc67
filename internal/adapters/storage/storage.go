package storage

import (
	"context"
	"fmt"
	"time"

	"med-adherence-tracker/internal/adapters/storage/csvfile"
	mem "med-adherence-tracker/internal/adapters/storage/memory"
	pg "med-adherence-tracker/internal/adapters/storage/postgres"
	"med-adherence-tracker/internal/adapters/storage/redisstore"
	"med-adherence-tracker/internal/adapters/storage/sqlite"
	"med-adherence-tracker/internal/domain/doses"
	"med-adherence-tracker/internal/platform/config"
	"med-adherence-tracker/internal/platform/logger"
)

// Open construye el store indicado por cfg.Store. El closer devuelto nunca es nil.
func Open(ctx context.Context, cfg config.Config, loc *time.Location, log logger.Logger) (doses.Store, func() error, error) {
	noop := func() error { return nil }
	fields := map[string]any{"store": string(cfg.Store)}

	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store; doses are lost on restart", fields)
		return mem.NewDoseRepo(), noop, nil

	case config.StoreCSV:
		fields["path"] = cfg.CSVPath
		log.Info("store ready", fields)
		return csvfile.NewDoseRepo(cfg.CSVPath, loc), noop, nil

	case config.StoreSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath, loc)
		if err != nil {
			return nil, noop, fmt.Errorf("sqlite store: %w", err)
		}
		fields["path"] = cfg.SQLitePath
		log.Info("store ready", fields)
		return repo, repo.Close, nil

	case config.StorePostgres:
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("postgres store: %w", err)
		}
		if err := pg.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("postgres schema: %w", err)
		}
		log.Info("store ready", fields)
		return pg.NewDosesRepo(db, loc), db.Close, nil

	case config.StoreRedis:
		repo, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		}, loc)
		if err != nil {
			return nil, noop, fmt.Errorf("redis store: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			// Fail-open: el tracker arranca igual y muestra vistas degradadas.
			fields["err"] = err
			log.Warn("redis not reachable at startup", fields)
		} else {
			log.Info("store ready", fields)
		}
		return repo, repo.Close, nil
	}

	return nil, noop, fmt.Errorf("unsupported store %q", cfg.Store)
}
