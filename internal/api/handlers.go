package api

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ericbreyer/liturgy/internal/compare"
	"github.com/ericbreyer/liturgy/internal/config"
	"github.com/ericbreyer/liturgy/internal/database"
	"github.com/ericbreyer/liturgy/internal/ical"
	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// Handlers contains all HTTP handlers and their dependencies. The
// catalog, lookup and search collaborators may be served locally (the
// database) or by a remote backend; db is nil in remote mode, which
// disables the year exports.
type Handlers struct {
	catalog compare.Catalog
	lookup  compare.DayLookup
	search  compare.Searcher
	engine  *compare.Engine
	db      *database.DB
	cfg     *config.Config
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(catalog compare.Catalog, lookup compare.DayLookup, search compare.Searcher, engine *compare.Engine, db *database.DB, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		catalog: catalog,
		lookup:  lookup,
		search:  search,
		engine:  engine,
		db:      db,
		cfg:     cfg,
		logger:  logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			h.logger.Warn("health check failed", slog.Any("error", err))
			WriteError(w, http.StatusServiceUnavailable, "Database unhealthy", "HEALTH_CHECK_FAILED")
			return
		}
	}

	WriteSuccess(w, map[string]string{
		"status": "healthy",
	})
}

// ListCalendars handles GET /api/v1/calendars
func (h *Handlers) ListCalendars(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	calendars, err := h.catalog.ListCalendars(ctx)
	if err != nil {
		h.logger.Error("failed to list calendars", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve calendars")
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"calendars": calendars,
	})
}

// GetDay handles GET /api/v1/calendars/{calendarID}/day/{date}
func (h *Handlers) GetDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	calendarID := chi.URLParam(r, "calendarID")

	dateStr := chi.URLParam(r, "date")
	date, err := liturgy.ParseDate(dateStr)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid date format: %s. Use YYYY-MM-DD", dateStr))
		return
	}

	day, err := h.lookup.GetDayInfo(ctx, calendarID, date)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, fmt.Sprintf("No data for calendar %q on %s", calendarID, dateStr))
			return
		}
		h.logger.Error("failed to get day info",
			slog.String("calendar", calendarID),
			slog.String("date", dateStr),
			slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve day info")
		return
	}

	WriteSuccess(w, day)
}

// SearchFeasts handles GET /api/v1/calendars/{calendarID}/search?q=query
func (h *Handlers) SearchFeasts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	calendarID := chi.URLParam(r, "calendarID")

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		WriteBadRequest(w, "Query parameter q is required")
		return
	}

	matches, err := h.search.Search(ctx, calendarID, query)
	if err != nil {
		h.logger.Error("search failed",
			slog.String("calendar", calendarID),
			slog.String("query", query),
			slog.Any("error", err))
		WriteInternalError(w, "Search failed")
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"query":   query,
		"matches": matches,
	})
}

// Compare handles GET /api/v1/compare?date=YYYY-MM-DD&calendars=a,b,c
//
// The date defaults to today. The calendars parameter is an ordered,
// comma-separated list; its order decides which calendar becomes each
// feast's base.
func (h *Handlers) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date := time.Now()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := liturgy.ParseDate(dateStr)
		if err != nil {
			WriteBadRequest(w, fmt.Sprintf("Invalid date format: %s. Use YYYY-MM-DD", dateStr))
			return
		}
		date = parsed
	}

	calendarIDs := splitCalendarIDs(r.URL.Query().Get("calendars"))

	feasts, err := h.engine.Reconcile(ctx, date, calendarIDs)
	if err != nil {
		if errors.Is(err, compare.ErrNoCalendars) {
			WriteBadRequest(w, "No calendars selected; nothing to compare")
			return
		}
		if errors.Is(err, context.Canceled) {
			// Client went away mid-run; nothing to write.
			return
		}
		h.logger.Error("comparison failed",
			slog.String("date", liturgy.FormatDate(date)),
			slog.Any("error", err))
		WriteInternalError(w, "Comparison failed")
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"date":      liturgy.FormatDate(date),
		"calendars": h.resolveCalendars(ctx, calendarIDs),
		"feasts":    feasts,
	})
}

// resolveCalendars attaches catalog labels to the selected ids. Falls
// back to bare ids when the catalog is unavailable.
func (h *Handlers) resolveCalendars(ctx context.Context, calendarIDs []string) []liturgy.CalendarSystem {
	known := make(map[string]liturgy.CalendarSystem)
	if systems, err := h.catalog.ListCalendars(ctx); err == nil {
		for _, s := range systems {
			known[s.ID] = s
		}
	}

	out := make([]liturgy.CalendarSystem, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		if s, ok := known[id]; ok {
			out = append(out, s)
		} else {
			out = append(out, liturgy.CalendarSystem{ID: id, DisplayName: id})
		}
	}
	return out
}

// splitCalendarIDs parses the comma-separated calendars parameter,
// preserving order and dropping blanks.
func splitCalendarIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetCalendarStats handles GET /api/v1/calendars/{calendarID}/stats
func (h *Handlers) GetCalendarStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.db == nil {
		WriteError(w, http.StatusNotImplemented,
			"Stats require locally stored calendar data", "NOT_IMPLEMENTED")
		return
	}

	calendarID := chi.URLParam(r, "calendarID")
	if _, err := h.db.GetCalendar(ctx, calendarID); err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, fmt.Sprintf("Calendar %q not found", calendarID))
			return
		}
		h.logger.Error("failed to get calendar", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve calendar")
		return
	}

	stats, err := h.db.GetCalendarStats(ctx, calendarID)
	if err != nil {
		h.logger.Error("failed to get calendar stats",
			slog.String("calendar", calendarID),
			slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve stats")
		return
	}

	WriteSuccess(w, stats)
}

// ExportYearCSV handles GET /api/v1/calendars/{calendarID}/year/{year}/csv
func (h *Handlers) ExportYearCSV(w http.ResponseWriter, r *http.Request) {
	cal, rows, ok := h.yearExportData(w, r)
	if !ok {
		return
	}

	year := chi.URLParam(r, "year")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", cal.ID+"-"+year+".csv"))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"date", "name", "rank", "color", "commemorations"})

	// rows are ordered by date with principals first; commemorations
	// for a date collapse into the principal's line.
	type dayLine struct {
		record  []string
		commems []string
	}
	var dates []string
	lines := make(map[string]*dayLine)

	for _, row := range rows {
		line, ok := lines[row.Date]
		if !ok {
			line = &dayLine{}
			lines[row.Date] = line
			dates = append(dates, row.Date)
		}
		if row.Principal && line.record == nil {
			line.record = []string{row.Date, row.Name, row.Rank, row.Color}
		} else {
			line.commems = append(line.commems, row.Name)
		}
	}

	for _, date := range dates {
		line := lines[date]
		record := line.record
		if record == nil {
			record = []string{date, "", "", ""}
		}
		writer.Write(append(record, strings.Join(line.commems, "; ")))
	}
}

// ExportYearICS handles GET /api/v1/calendars/{calendarID}/year/{year}/ics
func (h *Handlers) ExportYearICS(w http.ResponseWriter, r *http.Request) {
	cal, rows, ok := h.yearExportData(w, r)
	if !ok {
		return
	}

	year, _ := strconv.Atoi(chi.URLParam(r, "year"))
	body, err := ical.Build(*cal, year, rows)
	if err != nil {
		h.logger.Error("ics export failed",
			slog.String("calendar", cal.ID),
			slog.Any("error", err))
		WriteInternalError(w, "Failed to build calendar export")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%d.ics", cal.ID, year)))
	w.Write([]byte(body))
}

// yearExportData validates an export request and loads its data.
// Writes the error response itself when returning ok=false.
func (h *Handlers) yearExportData(w http.ResponseWriter, r *http.Request) (*liturgy.CalendarSystem, []database.ObservanceRow, bool) {
	ctx := r.Context()

	if h.db == nil {
		WriteError(w, http.StatusNotImplemented,
			"Year exports require locally stored calendar data", "NOT_IMPLEMENTED")
		return nil, nil, false
	}

	calendarID := chi.URLParam(r, "calendarID")
	yearStr := chi.URLParam(r, "year")
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 || year > 9999 {
		WriteBadRequest(w, fmt.Sprintf("Invalid year: %s", yearStr))
		return nil, nil, false
	}

	cal, err := h.db.GetCalendar(ctx, calendarID)
	if err != nil {
		if database.IsNotFound(err) {
			WriteNotFound(w, fmt.Sprintf("Calendar %q not found", calendarID))
			return nil, nil, false
		}
		h.logger.Error("failed to get calendar", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve calendar")
		return nil, nil, false
	}

	rows, err := h.db.ListYear(ctx, calendarID, year)
	if err != nil {
		h.logger.Error("failed to list year observances", slog.Any("error", err))
		WriteInternalError(w, "Failed to retrieve year data")
		return nil, nil, false
	}
	if len(rows) == 0 {
		WriteNotFound(w, fmt.Sprintf("No data for calendar %q in %d", calendarID, year))
		return nil, nil, false
	}

	return cal, rows, true
}
