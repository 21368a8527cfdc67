package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"med-adherence-tracker/internal/domain/doses"
)

type Store string

const (
	StoreMemory   Store = "memory"
	StoreCSV      Store = "csv"
	StoreSQLite   Store = "sqlite"
	StorePostgres Store = "postgres"
	StoreRedis    Store = "redis"
)

type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	AppName   string `env:"APP_NAME" envDefault:"med-adherence-tracker"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// TimeZone (IANA) tiene prioridad sobre TZOffsetHours.
	TimeZone      string `env:"TIME_ZONE"`
	TZOffsetHours int    `env:"TZ_OFFSET_HOURS" envDefault:"9"`

	Medicines []string `env:"MEDICINES" envSeparator:"," envDefault:"朝の薬(1),朝の薬(2),朝の薬(3),頓服:rescue"`

	Store      Store  `env:"STORE" envDefault:"csv"`
	CSVPath    string `env:"CSV_PATH" envDefault:"logs.csv"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"doses.db"`
	DBDSN      string `env:"DB_DSN"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisKey      string `env:"REDIS_KEY" envDefault:"dose_events"`

	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool    `env:"OTEL_INSECURE" envDefault:"true"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`

	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
}

// Load lee la configuración desde env y la valida.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("PORT must be 1-65535"))
	}
	if c.TZOffsetHours < -12 || c.TZOffsetHours > 14 {
		errs = append(errs, errors.New("TZ_OFFSET_HOURS must be between -12 and 14"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Catalog(); err != nil {
		errs = append(errs, fmt.Errorf("MEDICINES: %w", err))
	}

	switch c.Store {
	case StoreMemory:
	case StoreCSV:
		if strings.TrimSpace(c.CSVPath) == "" {
			errs = append(errs, errors.New("CSV_PATH is required for STORE=csv"))
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for STORE=sqlite"))
		}
	case StorePostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			errs = append(errs, errors.New("DB_DSN is required for STORE=postgres"))
		}
	case StoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE %q not supported (memory|csv|sqlite|postgres|redis)", c.Store))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location devuelve la zona horaria local del tracker.
func (c Config) Location() (*time.Location, error) {
	if tz := strings.TrimSpace(c.TimeZone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("TIME_ZONE: %w", err)
		}
		return loc, nil
	}
	name := fmt.Sprintf("UTC%+d", c.TZOffsetHours)
	return time.FixedZone(name, c.TZOffsetHours*3600), nil
}

func (c Config) Catalog() (doses.Catalog, error) {
	return doses.ParseCatalog(c.Medicines)
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
