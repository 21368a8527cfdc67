package router

import (
	"net/http"
	"time"

	"med-adherence-tracker/docs"
	mem "med-adherence-tracker/internal/adapters/storage/memory"
	"med-adherence-tracker/internal/domain/doses"
	"med-adherence-tracker/internal/middleware"
	"med-adherence-tracker/internal/platform/logger"
	"med-adherence-tracker/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	// Opcional: si no viene, usa un store in-memory (modo dev / tests).
	Store doses.Store

	// Opcional: si está vacío, usa doses.DefaultMedicines.
	Catalog *doses.Catalog

	Location *time.Location
	Logger   logger.Logger

	// Now permite fijar el reloj en tests.
	Now func() time.Time
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	store := opts.Store
	if store == nil {
		store = mem.NewDoseRepo()
	}

	catalog := doses.MustCatalog(doses.DefaultMedicines...)
	if opts.Catalog != nil {
		catalog = *opts.Catalog
	}

	svc := doses.NewService(store, catalog, opts.Location, log)
	if opts.Now != nil {
		svc.SetClock(opts.Now)
	}

	metrics.Register()

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(log))
	r.Use(middleware.RequestLog(log, "/health", "/metrics"))
	r.Use(metrics.Instrument)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	docs.SwaggerInfo.BasePath = "/"

	doses.RegisterRoutes(r, svc, log)

	return r
}
