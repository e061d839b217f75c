package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ericbreyer/liturgy/internal/compare"
	"github.com/ericbreyer/liturgy/internal/config"
	"github.com/ericbreyer/liturgy/internal/database"
	"github.com/ericbreyer/liturgy/internal/liturgy"
	"github.com/ericbreyer/liturgy/internal/search"
)

// =============================================================================
// TEST SETUP HELPERS
// =============================================================================

// testEnv sets up a complete test environment with database, config,
// engine and the HTTP router.
type testEnv struct {
	db      *database.DB
	cfg     *config.Config
	router  http.Handler
	cleanup func()
}

// setupTest creates a fresh test environment with two seeded calendars.
//
// The seed data for 2026-08-10 (a Monday) is constructed so a
// comparison across both calendars exercises every status kind:
//
//	tridentine: principal "Saint Lawrence, Martyr" (Feast II Class) with
//	            commemorations "Saint Philomena" and "Saint Paul of the Cross"
//	modern:     principal "Saint Lawrence, Martyr" (Feast); observes
//	            "Saint Philomena" on 2026-08-11 instead; has no
//	            observance of Saint Paul of the Cross at all
func setupTest(t *testing.T) *testEnv {
	t.Helper()

	dbCfg := database.Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Quiet during tests
	}))

	db, err := database.Open(dbCfg, logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	ctx := context.Background()
	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	seedCalendars(t, db)

	cfg := &config.Config{
		Port:            8080,
		Env:             config.EnvDevelopment,
		DatabasePath:    ":memory:",
		SearchThreshold: compare.DefaultThreshold,
		SearchLimit:     search.DefaultLimit,
		LogLevel:        "error",
		LogFormat:       "text",
	}

	searcher := search.NewService(db, cfg.SearchLimit, logger)
	engine := compare.NewEngine(db, searcher, cfg.SearchThreshold, logger)
	handlers := NewHandlers(db, db, searcher, engine, db, cfg, logger)
	router := NewRouter(handlers, cfg, logger)

	return &testEnv{
		db:      db,
		cfg:     cfg,
		router:  router,
		cleanup: func() { db.Close() },
	}
}

func seedCalendars(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()

	tridentine := liturgy.CalendarSystem{
		ID:                          "tridentine",
		DisplayName:                 "Tridentine (1962)",
		CommemorationInterpretation: "Commemorations are read alongside the feast of the day.",
	}
	tridentineRows := []database.ObservanceRow{
		{Date: "2026-08-10", Name: "Saint Lawrence, Martyr", Rank: "Feast II Class", Color: "red", Principal: true},
		{Date: "2026-08-10", Name: "Saint Philomena", Rank: "Commemoration", Color: "red", Position: 1},
		{Date: "2026-08-10", Name: "Saint Paul of the Cross", Rank: "Commemoration", Color: "white", Position: 2},
		{Date: "2026-08-11", Name: "Saint Tiburtius and Susanna, Martyrs", Rank: "Commemoration", Color: "red", Principal: true},
	}
	if err := db.ImportCalendar(ctx, tridentine, tridentineRows); err != nil {
		t.Fatalf("seed tridentine: %v", err)
	}

	modern := liturgy.CalendarSystem{
		ID:                          "modern",
		DisplayName:                 "Modern Roman",
		CommemorationInterpretation: "Optional memorials may replace the weekday office.",
	}
	modernRows := []database.ObservanceRow{
		{Date: "2026-08-10", Name: "Saint Lawrence, Martyr", Rank: "Feast", Color: "red", Principal: true},
		{Date: "2026-08-11", Name: "Saint Philomena", Rank: "Memorial", Color: "white", Principal: true},
		{Date: "2026-08-12", Name: "Saint Jane Frances de Chantal", Rank: "Memorial", Color: "white", Principal: true},
	}
	if err := db.ImportCalendar(ctx, modern, modernRows); err != nil {
		t.Fatalf("seed modern: %v", err)
	}
}

// doRequest performs a request against the test router and decodes the
// response envelope.
func doRequest(t *testing.T, env *testEnv, method, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	var resp Response
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

// dataAs re-marshals the envelope's data field into a typed value.
func dataAs(t *testing.T, resp Response, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

// =============================================================================
// HEALTH & CATALOG
// =============================================================================

func TestHealthCheck(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, resp := doRequest(t, env, http.MethodGet, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !resp.Success {
		t.Error("expected success response")
	}
}

func TestListCalendars(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, resp := doRequest(t, env, http.MethodGet, "/api/v1/calendars")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var data struct {
		Calendars []liturgy.CalendarSystem `json:"calendars"`
	}
	dataAs(t, resp, &data)

	if len(data.Calendars) != 2 {
		t.Fatalf("expected 2 calendars, got %d", len(data.Calendars))
	}
	// Alphabetical by id
	if data.Calendars[0].ID != "modern" || data.Calendars[1].ID != "tridentine" {
		t.Errorf("unexpected calendar order: %q, %q", data.Calendars[0].ID, data.Calendars[1].ID)
	}
}

// =============================================================================
// DAY LOOKUP
// =============================================================================

func TestGetDay(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, resp := doRequest(t, env, http.MethodGet, "/api/v1/calendars/tridentine/day/2026-08-10")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var day liturgy.DayInfo
	dataAs(t, resp, &day)

	if day.Principal == nil {
		t.Fatal("expected a principal observance")
	}
	if day.Principal.Description != "Saint Lawrence, Martyr" {
		t.Errorf("unexpected principal: %q", day.Principal.Description)
	}
	if len(day.Commemorations) != 2 {
		t.Fatalf("expected 2 commemorations, got %d", len(day.Commemorations))
	}
	if day.Commemorations[0].Description != "Saint Philomena" {
		t.Errorf("commemoration order wrong: %q first", day.Commemorations[0].Description)
	}
}

func TestGetDay_InvalidDate(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, resp := doRequest(t, env, http.MethodGet, "/api/v1/calendars/tridentine/day/08-10-2026")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp.Success {
		t.Error("expected error response")
	}
}

func TestGetDay_NotFound(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, _ := doRequest(t, env, http.MethodGet, "/api/v1/calendars/tridentine/day/1999-01-01")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec, _ = doRequest(t, env, http.MethodGet, "/api/v1/calendars/unknown/day/2026-08-10")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown calendar, got %d", rec.Code)
	}
}

// =============================================================================
// SEARCH
// =============================================================================

func TestSearchFeasts(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, resp := doRequest(t, env, http.MethodGet, "/api/v1/calendars/modern/search?q=philomena")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var data struct {
		Query   string                `json:"query"`
		Matches []liturgy.SearchMatch `json:"matches"`
	}
	dataAs(t, resp, &data)

	if len(data.Matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if data.Matches[0].Name != "Saint Philomena" {
		t.Errorf("expected Saint Philomena first, got %q", data.Matches[0].Name)
	}
	if data.Matches[0].Date != "2026-08-11" {
		t.Errorf("expected first occurrence date, got %q", data.Matches[0].Date)
	}
}

func TestSearchFeasts_MissingQuery(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, _ := doRequest(t, env, http.MethodGet, "/api/v1/calendars/modern/search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// =============================================================================
// COMPARISON
// =============================================================================

func TestCompare(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, resp := doRequest(t, env, http.MethodGet,
		"/api/v1/compare?date=2026-08-10&calendars=tridentine,modern")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var data struct {
		Date      string                   `json:"date"`
		Calendars []liturgy.CalendarSystem `json:"calendars"`
		Feasts    []compare.CanonicalFeast `json:"feasts"`
	}
	dataAs(t, resp, &data)

	if data.Date != "2026-08-10" {
		t.Errorf("unexpected date: %q", data.Date)
	}
	if len(data.Calendars) != 2 || data.Calendars[0].ID != "tridentine" {
		t.Errorf("expected calendars in selection order, got %+v", data.Calendars)
	}
	if len(data.Feasts) != 3 {
		t.Fatalf("expected 3 feasts, got %d", len(data.Feasts))
	}

	feasts := make(map[string]compare.CanonicalFeast)
	for _, f := range data.Feasts {
		feasts[f.Name] = f
	}

	// Present in both calendars; the modern rank differs from the base.
	lawrence := feasts["Saint Lawrence, Martyr"]
	if lawrence.BaseCalendarID != "tridentine" {
		t.Errorf("lawrence base: %q", lawrence.BaseCalendarID)
	}
	if lawrence.Statuses["tridentine"].Kind != compare.StatusPresent {
		t.Errorf("lawrence tridentine: %+v", lawrence.Statuses["tridentine"])
	}
	if got := lawrence.Statuses["modern"]; got.Kind != compare.StatusPresent || got.Rank != "Feast" {
		t.Errorf("lawrence modern: %+v", got)
	}

	// Observed in the modern calendar, but on the following day.
	philomena := feasts["Saint Philomena"]
	modern := philomena.Statuses["modern"]
	if modern.Kind != compare.StatusFoundElsewhere {
		t.Fatalf("philomena modern kind: %q", modern.Kind)
	}
	if modern.Date != "2026-08-11" {
		t.Errorf("philomena modern date: %q", modern.Date)
	}
	if !modern.Transferred {
		t.Error("expected philomena marked transferred")
	}
	if !modern.RankChanged {
		t.Error("expected philomena rank change (Commemoration vs Memorial)")
	}

	// Not observed by the modern calendar anywhere.
	paul := feasts["Saint Paul of the Cross"]
	if paul.Statuses["modern"].Kind != compare.StatusAbsent {
		t.Errorf("paul modern: %+v", paul.Statuses["modern"])
	}
	if paul.Statuses["tridentine"].Kind != compare.StatusPresent {
		t.Errorf("paul tridentine: %+v", paul.Statuses["tridentine"])
	}
}

func TestCompare_NoCalendars(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, resp := doRequest(t, env, http.MethodGet, "/api/v1/compare?date=2026-08-10")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp.Error == nil {
		t.Fatal("expected error payload")
	}
}

func TestCompare_InvalidDate(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, _ := doRequest(t, env, http.MethodGet, "/api/v1/compare?date=nope&calendars=modern")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCompare_UnknownCalendarTolerated(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, resp := doRequest(t, env, http.MethodGet,
		"/api/v1/compare?date=2026-08-10&calendars=tridentine,ghost")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var data struct {
		Feasts []compare.CanonicalFeast `json:"feasts"`
	}
	dataAs(t, resp, &data)

	for _, f := range data.Feasts {
		if f.Statuses["ghost"].Kind != compare.StatusAbsent {
			t.Errorf("feast %q: ghost calendar should be absent, got %+v", f.Name, f.Statuses["ghost"])
		}
	}
}

func TestGetCalendarStats(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, resp := doRequest(t, env, http.MethodGet, "/api/v1/calendars/tridentine/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats database.CalendarStats
	dataAs(t, resp, &stats)

	if stats.TotalDays != 2 {
		t.Errorf("total days = %d, want 2", stats.TotalDays)
	}
	if stats.TotalFeasts != 4 {
		t.Errorf("total feasts = %d, want 4", stats.TotalFeasts)
	}
	if stats.EarliestDate != "2026-08-10" || stats.LatestDate != "2026-08-11" {
		t.Errorf("date range: %q .. %q", stats.EarliestDate, stats.LatestDate)
	}

	rec, _ = doRequest(t, env, http.MethodGet, "/api/v1/calendars/unknown/stats")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown calendar, got %d", rec.Code)
	}
}

// =============================================================================
// YEAR EXPORTS
// =============================================================================

func TestExportYearCSV(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendars/tridentine/year/2026/csv", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Errorf("unexpected content type: %q", ct)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "date,name,rank,color,commemorations") {
		t.Errorf("missing header row: %q", strings.SplitN(body, "\n", 2)[0])
	}
	if !strings.Contains(body, "Saint Lawrence, Martyr") {
		t.Error("missing principal observance")
	}
	if !strings.Contains(body, "Saint Philomena; Saint Paul of the Cross") {
		t.Error("commemorations should be joined on the principal's line")
	}
}

func TestExportYearICS(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendars/modern/year/2026/ics", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/calendar") {
		t.Errorf("unexpected content type: %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") {
		t.Error("not an iCalendar document")
	}
	if !strings.Contains(body, "Saint Jane Frances de Chantal") {
		t.Error("missing observance summary")
	}
}

func TestExportYear_Errors(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	rec, _ := doRequest(t, env, http.MethodGet, "/api/v1/calendars/unknown/year/2026/csv")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown calendar, got %d", rec.Code)
	}

	rec, _ = doRequest(t, env, http.MethodGet, "/api/v1/calendars/tridentine/year/1850/csv")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty year, got %d", rec.Code)
	}
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuthMiddleware(t *testing.T) {
	env := setupTest(t)
	defer env.cleanup()

	env.cfg.APIKey = "test-key"

	// Missing key
	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendars", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	// Wrong key
	req = httptest.NewRequest(http.MethodGet, "/api/v1/calendars", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}

	// Correct key
	req = httptest.NewRequest(http.MethodGet, "/api/v1/calendars", nil)
	req.Header.Set("X-API-Key", "test-key")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct key, got %d", rec.Code)
	}

	// Health stays public
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health to stay public, got %d", rec.Code)
	}
}
