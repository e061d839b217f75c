package database

import (
	"time"

	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// ObservanceRow is one stored observance: a feast (or commemoration)
// resolved to a concrete date within one calendar.
type ObservanceRow struct {
	ID         int64     `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Date       string    `json:"date"` // ISO 8601: YYYY-MM-DD
	Name       string    `json:"name"`
	Rank       string    `json:"rank"`
	Color      string    `json:"color"`
	Principal  bool      `json:"principal"`
	Position   int       `json:"position"` // commemoration order within the day
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Observance converts a row to the domain type.
func (r *ObservanceRow) Observance() liturgy.Observance {
	return liturgy.Observance{
		Description: r.Name,
		Rank:        r.Rank,
		Color:       r.Color,
		Date:        r.Date,
		CalendarID:  r.CalendarID,
	}
}

// CalendarStats summarizes the stored data for one calendar.
type CalendarStats struct {
	CalendarID   string `json:"calendar_id"`
	TotalDays    int    `json:"total_days"`
	TotalFeasts  int    `json:"total_feasts"`
	EarliestDate string `json:"earliest_date"`
	LatestDate   string `json:"latest_date"`
}
