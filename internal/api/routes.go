package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ericbreyer/liturgy/internal/config"
)

// NewRouter builds the HTTP router with all routes and middleware.
func NewRouter(h *Handlers, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(logger))
	r.Use(RecoveryMiddleware(logger))
	r.Use(CORSMiddleware())

	// Public route, no auth
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg, logger))

		r.Get("/calendars", h.ListCalendars)
		r.Get("/calendars/{calendarID}/day/{date}", h.GetDay)
		r.Get("/calendars/{calendarID}/search", h.SearchFeasts)
		r.Get("/calendars/{calendarID}/stats", h.GetCalendarStats)
		r.Get("/calendars/{calendarID}/year/{year}/csv", h.ExportYearCSV)
		r.Get("/calendars/{calendarID}/year/{year}/ics", h.ExportYearICS)
		r.Get("/compare", h.Compare)
	})

	return r
}
