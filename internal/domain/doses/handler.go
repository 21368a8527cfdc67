package doses

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"med-adherence-tracker/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

//go:embed web/*.html web/icon.png
var webFS embed.FS

var pages = template.Must(template.ParseFS(webFS, "web/*.html"))

const (
	noticeUnknownMedicine  = "unknown_medicine"
	noticeStoreUnavailable = "store_unavailable"
	noticeRescueCooldown   = "rescue_cooldown"
)

var noticeText = map[string]string{
	noticeUnknownMedicine:  "そのお薬はリストにないよ",
	noticeStoreUnavailable: "きろくの保存先につながらないよ（表示はからっぽかも）",
	noticeRescueCooldown:   "頓服はまだ時間をあけてね",
}

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}

	// Pantallas HTML (siempre renderizan; los errores se muestran como aviso)
	r.Get("/", indexHandler(svc, log))
	r.Get("/history", historyHandler(svc, log))
	r.Post("/record", recordHandler(svc, log))
	r.Get("/delete/{name}", deleteHandler(svc, log))
	r.Get("/icon.png", iconHandler())

	// API JSON
	r.Route("/api", func(ar chi.Router) {
		ar.Get("/status", apiStatusHandler(svc))
		ar.Get("/history", apiHistoryHandler(svc))
		ar.Post("/doses", apiRecordHandler(svc))
		ar.Delete("/doses/today/{name}", apiDeleteHandler(svc))
	})
}

type buttonView struct {
	Name  string
	Class string
	Label string
}

type indexPage struct {
	Buttons  []buttonView
	AllClear bool
	Recent   []DoseEvent
	Notice   string
}

type historyPage struct {
	Days   []DayLog
	Notice string
}

func indexHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := svc.Status(r.Context())

		page := indexPage{
			AllClear: st.Adherence.AllRoutineDone,
			Recent:   st.Recent,
			Notice:   noticeText[r.URL.Query().Get("notice")],
		}
		if st.Degraded != nil && page.Notice == "" {
			page.Notice = noticeText[noticeStoreUnavailable]
		}

		for _, m := range st.Catalog.Medicines() {
			page.Buttons = append(page.Buttons, toButton(m, st.Adherence))
		}

		render(w, r, log, "index", page)
	}
}

func toButton(m Medicine, a Adherence) buttonView {
	b := buttonView{Name: m.Name}
	switch {
	case m.Kind == KindRescue && a.Rescue.Available():
		b.Class = "tonpuku"
	case m.Kind == KindRescue:
		b.Class = "wait"
		b.Label = fmt.Sprintf("(あと%dh%dm)", a.Rescue.Hours(), a.Rescue.Minutes())
	case a.Taken(m.Name):
		b.Class = "done"
		b.Label = "(済)"
	}
	return b
}

func historyHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hv := svc.History(r.Context())

		page := historyPage{Days: hv.Days}
		if hv.Degraded != nil {
			page.Notice = noticeText[noticeStoreUnavailable]
		}
		render(w, r, log, "history", page)
	}
}

func recordHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PostFormValue("med_name")

		_, err := svc.Record(r.Context(), name)
		if err != nil {
			log.Warn("record failed", map[string]any{
				"medicine":   name,
				"err":        err,
				"request_id": chimw.GetReqID(r.Context()),
			})
			http.Redirect(w, r, "/?notice="+noticeFor(err), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func deleteHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := pathName(r)

		if _, err := svc.DeleteToday(r.Context(), name); err != nil {
			log.Warn("delete failed", map[string]any{
				"medicine":   name,
				"err":        err,
				"request_id": chimw.GetReqID(r.Context()),
			})
			http.Redirect(w, r, "/?notice="+noticeFor(err), http.StatusFound)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

func iconHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := webFS.ReadFile("web/icon.png")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeContent(w, r, "icon.png", time.Time{}, bytes.NewReader(b))
	}
}

// render escribe a un buffer primero para no mandar HTML a medias si el template falla.
func render(w http.ResponseWriter, r *http.Request, log logger.Logger, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error("render failed", map[string]any{
			"template":   name,
			"err":        err,
			"request_id": chimw.GetReqID(r.Context()),
		})
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, ErrUnknownMedicine):
		return noticeUnknownMedicine
	case errors.Is(err, ErrRescueCooldown):
		return noticeRescueCooldown
	default:
		return noticeStoreUnavailable
	}
}

// pathName lee {name} y lo decodifica si chi ruteó sobre RawPath.
func pathName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		if v, err := url.PathUnescape(name); err == nil {
			name = v
		}
	}
	return strings.TrimSpace(name)
}

// ---- API JSON ----

// recordRequest es el cuerpo para registrar una toma.
type recordRequest struct {
	Name string `json:"name" example:"朝の薬(1)"`
}

// doseResponse representa una toma registrada.
type doseResponse struct {
	Medicine string    `json:"medicine"`
	Date     string    `json:"date" example:"2024/01/01"`
	Time     string    `json:"time" example:"08:00:00"`
	TakenAt  time.Time `json:"taken_at"`
}

// rescueResponse es el estado del medicamento de rescate.
type rescueResponse struct {
	Medicine         string     `json:"medicine,omitempty"`
	Available        bool       `json:"available"`
	RemainingHours   int        `json:"remaining_hours"`
	RemainingMinutes int        `json:"remaining_minutes"`
	NextAvailable    *time.Time `json:"next_available,omitempty"`
}

// statusResponse es el estado de adherencia del día.
type statusResponse struct {
	Date           string          `json:"date" example:"2024/01/01"`
	TakenToday     []string        `json:"taken_today"`
	AllRoutineDone bool            `json:"all_routine_done"`
	Rescue         rescueResponse  `json:"rescue"`
	Recent         []doseResponse  `json:"recent"`
	Diagnostics    []string        `json:"diagnostics,omitempty"`
	Degraded       string          `json:"degraded,omitempty"`
	Medicines      []medicineEntry `json:"medicines"`
}

type medicineEntry struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind" enums:"routine,rescue"`
}

// dayResponse agrupa las tomas de un día.
type dayResponse struct {
	Date  string         `json:"date" example:"2024/01/01"`
	Doses []doseResponse `json:"doses"`
}

// historyResponse son los últimos 7 días, hoy primero.
type historyResponse struct {
	Days     []dayResponse `json:"days"`
	Degraded string        `json:"degraded,omitempty"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

// apiStatusHandler godoc
// @Summary Estado del día
// @Description Devuelve qué medicamentos rutinarios se tomaron hoy, si están todos y si el medicamento de rescate está disponible. Si el store no responde, evalúa con historial vacío y lo indica en `degraded`.
// @Tags doses
// @Produce json
// @Success 200 {object} statusResponse
// @Router /api/status [get]
func apiStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := svc.Status(r.Context())
		a := st.Adherence

		out := statusResponse{
			Date:           a.Today.String(),
			TakenToday:     make([]string, 0, len(a.TakenToday)),
			AllRoutineDone: a.AllRoutineDone,
			Rescue: rescueResponse{
				Available:        a.Rescue.Available(),
				RemainingHours:   a.Rescue.Hours(),
				RemainingMinutes: a.Rescue.Minutes(),
			},
			Recent:    toDoseResponses(st.Recent),
			Medicines: make([]medicineEntry, 0),
		}
		if name, ok := st.Catalog.Rescue(); ok {
			out.Rescue.Medicine = name
		}
		if !a.Rescue.NextAvailable.IsZero() {
			next := a.Rescue.NextAvailable
			out.Rescue.NextAvailable = &next
		}
		for _, m := range st.Catalog.Medicines() {
			out.Medicines = append(out.Medicines, medicineEntry{Name: m.Name, Kind: m.Kind})
			if a.Taken(m.Name) {
				out.TakenToday = append(out.TakenToday, m.Name)
			}
		}
		for _, d := range a.Diagnostics {
			out.Diagnostics = append(out.Diagnostics, d.Error())
		}
		if st.Degraded != nil {
			out.Degraded = st.Degraded.Error()
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// apiHistoryHandler godoc
// @Summary Historial de 7 días
// @Description Devuelve las tomas agrupadas por día para los últimos 7 días (hoy primero). Los días sin tomas aparecen con lista vacía.
// @Tags doses
// @Produce json
// @Success 200 {object} historyResponse
// @Router /api/history [get]
func apiHistoryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hv := svc.History(r.Context())

		out := historyResponse{Days: make([]dayResponse, 0, len(hv.Days))}
		for _, d := range hv.Days {
			out.Days = append(out.Days, dayResponse{
				Date:  d.Date.String(),
				Doses: toDoseResponses(d.Events),
			})
		}
		if hv.Degraded != nil {
			out.Degraded = hv.Degraded.Error()
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// apiRecordHandler godoc
// @Summary Registrar una toma
// @Description Registra una toma del medicamento indicado con la hora del servidor. No es idempotente.
// @Tags doses
// @Accept json
// @Produce json
// @Param payload body recordRequest true "Nombre del medicamento (debe estar en el catálogo)"
// @Success 201 {object} doseResponse
// @Failure 400 {string} string "invalid json / unknown medicine"
// @Failure 409 {string} string "rescue medicine still cooling down"
// @Failure 503 {string} string "store unavailable"
// @Router /api/doses [post]
func apiRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		e, err := svc.Record(r.Context(), req.Name)
		if err != nil {
			switch {
			case errors.Is(err, ErrUnknownMedicine):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrRescueCooldown):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toDoseResponse(e))
	}
}

// apiDeleteHandler godoc
// @Summary Borrar la última toma de hoy
// @Description Borra la toma más reciente de hoy para el medicamento indicado. Si no hay ninguna, no hace nada y responde deleted=false.
// @Tags doses
// @Produce json
// @Param name path string true "Nombre del medicamento"
// @Success 200 {object} deleteResponse
// @Failure 503 {string} string "store unavailable"
// @Router /api/doses/today/{name} [delete]
func apiDeleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := svc.DeleteToday(r.Context(), pathName(r))
		if err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
	}
}

func toDoseResponses(events []DoseEvent) []doseResponse {
	out := make([]doseResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toDoseResponse(e))
	}
	return out
}

func toDoseResponse(e DoseEvent) doseResponse {
	return doseResponse{
		Medicine: e.Medicine,
		Date:     e.Date(),
		Time:     e.Clock(),
		TakenAt:  e.TakenAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
