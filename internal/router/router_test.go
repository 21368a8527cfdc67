package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	mem "med-adherence-tracker/internal/adapters/storage/memory"
	"med-adherence-tracker/internal/domain/doses"
	"med-adherence-tracker/internal/router"
)

var jst = time.FixedZone("UTC+9", 9*3600)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newServer(t *testing.T, store doses.Store, clk *clock) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{
		Store:    store,
		Location: jst,
		Now:      clk.now,
	}))
	t.Cleanup(ts.Close)
	return ts
}

// client no sigue redirects para poder verificar el Location.
func client() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func doReq(t *testing.T, method, u string, body io.Reader, contentType string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, u, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

func record(t *testing.T, base, name string) *http.Response {
	t.Helper()
	form := url.Values{"med_name": {name}}
	res, _ := doReq(t, http.MethodPost, base+"/record", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	return res
}

func getStatus(t *testing.T, base string) map[string]any {
	t.Helper()
	res, body := doReq(t, http.MethodGet, base+"/api/status", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /api/status, got %d body=%s", res.StatusCode, body)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode status: %v body=%s", err, body)
	}
	return out
}

func TestHTTP_EndToEnd_DailyFlow(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 8, 0, 0, 0, jst)}
	ts := newServer(t, mem.NewDoseRepo(), clk)

	// 1) Pantalla inicial: sin tomas, rescate disponible
	{
		res, body := doReq(t, http.MethodGet, ts.URL+"/", nil, "")
		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.StatusCode)
		}
		if !strings.Contains(body, `class="btn tonpuku"`) || strings.Contains(body, "(済)") {
			t.Fatalf("unexpected initial page:\n%s", body)
		}
		if !strings.Contains(body, "<li>なし</li>") {
			t.Fatalf("expected empty recent list")
		}
	}

	// 2) Registrar los tres rutinarios
	for _, name := range []string{"朝の薬(1)", "朝の薬(2)", "朝の薬(3)"} {
		res := record(t, ts.URL, name)
		if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/" {
			t.Fatalf("record %s: expected 303 to /, got %d %q", name, res.StatusCode, res.Header.Get("Location"))
		}
	}

	{
		_, body := doReq(t, http.MethodGet, ts.URL+"/", nil, "")
		if strings.Count(body, "(済)") != 3 {
			t.Fatalf("expected 3 done buttons:\n%s", body)
		}
		if !strings.Contains(body, "all-clear-msg") {
			t.Fatalf("expected all clear banner")
		}
		if !strings.Contains(body, "2024/01/01 08:00:00 - 朝の薬(3)") {
			t.Fatalf("expected recent entry with timestamp")
		}
	}

	// 3) Rescate a las 08:00, a las 10:00 quedan 2h0m
	if res := record(t, ts.URL, "頓服"); res.Header.Get("Location") != "/" {
		t.Fatalf("rescue record: unexpected redirect %q", res.Header.Get("Location"))
	}
	clk.t = clk.t.Add(2 * time.Hour)
	{
		_, body := doReq(t, http.MethodGet, ts.URL+"/", nil, "")
		if !strings.Contains(body, `class="btn wait"`) || !strings.Contains(body, "(あと2h0m)") {
			t.Fatalf("expected waiting rescue button:\n%s", body)
		}
	}

	// 4) Un segundo rescate dentro del intervalo se rechaza
	if res := record(t, ts.URL, "頓服"); res.Header.Get("Location") != "/?notice=rescue_cooldown" {
		t.Fatalf("expected cooldown notice, got %q", res.Header.Get("Location"))
	}

	// 5) Borrar la última toma de hoy (nombre url-encoded)
	{
		res, _ := doReq(t, http.MethodGet, ts.URL+"/delete/"+url.PathEscape("朝の薬(2)"), nil, "")
		if res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/" {
			t.Fatalf("expected 302 to /, got %d %q", res.StatusCode, res.Header.Get("Location"))
		}
		st := getStatus(t, ts.URL)
		if st["all_routine_done"] != false {
			t.Fatalf("expected not all done after delete, got %v", st)
		}
	}

	// 6) Historial: siete días, hoy primero
	{
		res, body := doReq(t, http.MethodGet, ts.URL+"/history", nil, "")
		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.StatusCode)
		}
		if strings.Count(body, `class="day"`) != doses.HistoryDays {
			t.Fatalf("expected %d days:\n%s", doses.HistoryDays, body)
		}
		if strings.Index(body, "2024/01/01") > strings.Index(body, "2023/12/31") {
			t.Fatalf("expected today first")
		}
		if strings.Count(body, "<li>なし</li>") != doses.HistoryDays-1 {
			t.Fatalf("expected six empty days")
		}
	}
}

func TestHTTP_RecordUnknownMedicine(t *testing.T) {
	store := mem.NewDoseRepo()
	ts := newServer(t, store, &clock{t: time.Date(2024, 1, 1, 8, 0, 0, 0, jst)})

	res := record(t, ts.URL, "知らない薬")
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/?notice=unknown_medicine" {
		t.Fatalf("expected 303 with notice, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	events, _ := store.List(context.Background())
	if len(events) != 0 {
		t.Fatalf("unknown medicine must not be stored")
	}

	_, body := doReq(t, http.MethodGet, ts.URL+"/?notice=unknown_medicine", nil, "")
	if !strings.Contains(body, `class="notice"`) {
		t.Fatalf("expected notice rendered")
	}
}

func TestHTTP_DeleteWithoutMatchIsNoop(t *testing.T) {
	ts := newServer(t, mem.NewDoseRepo(), &clock{t: time.Date(2024, 1, 1, 8, 0, 0, 0, jst)})

	res, _ := doReq(t, http.MethodGet, ts.URL+"/delete/"+url.PathEscape("朝の薬(1)"), nil, "")
	if res.StatusCode != http.StatusFound || res.Header.Get("Location") != "/" {
		t.Fatalf("expected plain redirect, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}
}

func TestHTTP_API(t *testing.T) {
	clk := &clock{t: time.Date(2024, 3, 10, 21, 30, 0, 0, jst)}
	ts := newServer(t, mem.NewDoseRepo(), clk)

	post := func(body string) (*http.Response, string) {
		return doReq(t, http.MethodPost, ts.URL+"/api/doses", strings.NewReader(body), "application/json")
	}

	// 201 con la hora del servidor
	{
		res, body := post(`{"name":"頓服"}`)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", res.StatusCode, body)
		}
		var d map[string]any
		_ = json.Unmarshal([]byte(body), &d)
		if d["date"] != "2024/03/10" || d["time"] != "21:30:00" || d["medicine"] != "頓服" {
			t.Fatalf("unexpected dose %v", d)
		}
	}

	if res, _ := post(`{"name":"nope"}`); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown medicine, got %d", res.StatusCode)
	}
	if res, _ := post(`{`); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", res.StatusCode)
	}

	clk.t = clk.t.Add(1*time.Hour + 15*time.Minute + 59*time.Second)
	if res, _ := post(`{"name":"頓服"}`); res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 during cooldown, got %d", res.StatusCode)
	}

	st := getStatus(t, ts.URL)
	rescue := st["rescue"].(map[string]any)
	if rescue["available"] != false || rescue["remaining_hours"] != float64(2) || rescue["remaining_minutes"] != float64(44) {
		t.Fatalf("unexpected rescue status %v", rescue)
	}
	if rescue["medicine"] != "頓服" {
		t.Fatalf("expected rescue medicine name, got %v", rescue["medicine"])
	}

	// Cruza la medianoche: 01:30 del día siguiente ya está disponible
	clk.t = time.Date(2024, 3, 11, 1, 30, 0, 0, jst)
	if rescue := getStatus(t, ts.URL)["rescue"].(map[string]any); rescue["available"] != true {
		t.Fatalf("expected available after 4h, got %v", rescue)
	}

	// Historial JSON: siempre 7 días
	{
		res, body := doReq(t, http.MethodGet, ts.URL+"/api/history", nil, "")
		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.StatusCode)
		}
		var h struct {
			Days []struct {
				Date  string           `json:"date"`
				Doses []map[string]any `json:"doses"`
			} `json:"days"`
		}
		if err := json.Unmarshal([]byte(body), &h); err != nil {
			t.Fatalf("decode history: %v", err)
		}
		if len(h.Days) != doses.HistoryDays || h.Days[0].Date != "2024/03/11" || len(h.Days[1].Doses) != 1 {
			t.Fatalf("unexpected history %s", body)
		}
		if h.Days[0].Doses == nil {
			t.Fatalf("empty day must be an empty list, not null")
		}
	}

	// DELETE: hoy (03/11) no hay tomas, el rescate de ayer queda
	{
		req := ts.URL + "/api/doses/today/" + url.PathEscape("頓服")
		res, body := doReq(t, http.MethodDelete, req, nil, "")
		if res.StatusCode != http.StatusOK || !strings.Contains(body, `"deleted":false`) {
			t.Fatalf("expected deleted=false, got %d %s", res.StatusCode, body)
		}
	}
}

// -------------------------
// Store caído
// -------------------------

type brokenStore struct{}

var errDown = errors.New("connection refused")

func (brokenStore) Append(context.Context, doses.DoseEvent) error { return errDown }
func (brokenStore) List(context.Context) ([]doses.DoseEvent, error) {
	return nil, errDown
}
func (brokenStore) DeleteLatest(context.Context, string, doses.Window) (bool, error) {
	return false, errDown
}

func TestHTTP_StoreDown_ViewsDegrade(t *testing.T) {
	ts := newServer(t, brokenStore{}, &clock{t: time.Date(2024, 1, 1, 8, 0, 0, 0, jst)})

	for _, path := range []string{"/", "/history"} {
		res, body := doReq(t, http.MethodGet, ts.URL+path, nil, "")
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200 with empty history, got %d", path, res.StatusCode)
		}
		if !strings.Contains(body, `class="notice"`) {
			t.Fatalf("%s: expected store notice", path)
		}
	}

	st := getStatus(t, ts.URL)
	if st["degraded"] == nil || st["all_routine_done"] != false {
		t.Fatalf("expected degraded status, got %v", st)
	}

	if res := record(t, ts.URL, "朝の薬(1)"); res.Header.Get("Location") != "/?notice=store_unavailable" {
		t.Fatalf("expected store notice on record, got %q", res.Header.Get("Location"))
	}

	res, _ := doReq(t, http.MethodPost, ts.URL+"/api/doses", bytes.NewBufferString(`{"name":"朝の薬(1)"}`), "application/json")
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.StatusCode)
	}
}

func TestHTTP_Ops(t *testing.T) {
	ts := newServer(t, nil, &clock{t: time.Now()})

	if res, body := doReq(t, http.MethodGet, ts.URL+"/health", nil, ""); res.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("health: %d %q", res.StatusCode, body)
	}

	res, body := doReq(t, http.MethodGet, ts.URL+"/icon.png", nil, "")
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != "image/png" || !strings.HasPrefix(body, "\x89PNG") {
		t.Fatalf("icon: %d %q", res.StatusCode, res.Header.Get("Content-Type"))
	}

	// /metrics expone al menos las métricas HTTP de los requests anteriores
	res, body = doReq(t, http.MethodGet, ts.URL+"/metrics", nil, "")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics: %d", res.StatusCode)
	}
	if !strings.Contains(body, `route="/icon.png"`) {
		t.Fatalf("expected route-pattern label in metrics")
	}

	if res, _ := doReq(t, http.MethodGet, ts.URL+"/swagger/doc.json", nil, ""); res.StatusCode != http.StatusOK {
		t.Fatalf("swagger doc: %d", res.StatusCode)
	}
}
