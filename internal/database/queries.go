package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// =============================================================================
// Calendar Queries
// =============================================================================

// UpsertCalendar inserts or updates a calendar system. Idempotent.
func (db *DB) UpsertCalendar(ctx context.Context, cal liturgy.CalendarSystem) error {
	query := `
		INSERT INTO calendars (id, display_name, commemoration_interpretation, description, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			commemoration_interpretation = excluded.commemoration_interpretation,
			description = excluded.description,
			updated_at = datetime('now')
	`

	_, err := db.ExecContext(ctx, query,
		cal.ID,
		cal.DisplayName,
		cal.CommemorationInterpretation,
		cal.Description,
	)
	if err != nil {
		return fmt.Errorf("upsert calendar %q: %w", cal.ID, err)
	}
	return nil
}

// GetCalendar retrieves one calendar system by id.
// Returns ErrNotFound if it doesn't exist.
func (db *DB) GetCalendar(ctx context.Context, id string) (*liturgy.CalendarSystem, error) {
	query := `
		SELECT id, display_name, commemoration_interpretation, description
		FROM calendars
		WHERE id = ?
	`

	var cal liturgy.CalendarSystem
	err := db.QueryRowContext(ctx, query, id).Scan(
		&cal.ID,
		&cal.DisplayName,
		&cal.CommemorationInterpretation,
		&cal.Description,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query calendar %q: %w", id, err)
	}
	return &cal, nil
}

// ListCalendars returns all calendar systems ordered by id.
// Implements the comparison engine's catalog collaborator.
func (db *DB) ListCalendars(ctx context.Context) ([]liturgy.CalendarSystem, error) {
	query := `
		SELECT id, display_name, commemoration_interpretation, description
		FROM calendars
		ORDER BY id ASC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query calendars: %w", err)
	}
	defer rows.Close()

	var calendars []liturgy.CalendarSystem
	for rows.Next() {
		var cal liturgy.CalendarSystem
		err := rows.Scan(
			&cal.ID,
			&cal.DisplayName,
			&cal.CommemorationInterpretation,
			&cal.Description,
		)
		if err != nil {
			return nil, fmt.Errorf("scan calendar row: %w", err)
		}
		calendars = append(calendars, cal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendar rows: %w", err)
	}

	return calendars, nil
}

// =============================================================================
// Observance Queries
// =============================================================================

// GetDayInfo returns a calendar's observances for a date: the principal
// observance (if any) and commemorations in position order. Returns
// ErrNotFound when the calendar has no data for the date. Implements
// the comparison engine's day-lookup collaborator.
func (db *DB) GetDayInfo(ctx context.Context, calendarID string, date time.Time) (*liturgy.DayInfo, error) {
	query := `
		SELECT calendar_id, date, name, rank, color, is_principal, position
		FROM observances
		WHERE calendar_id = ? AND date = ?
		ORDER BY is_principal DESC, position ASC, id ASC
	`

	rows, err := db.QueryContext(ctx, query, calendarID, liturgy.FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("query day observances: %w", err)
	}
	defer rows.Close()

	day := &liturgy.DayInfo{}
	found := false
	for rows.Next() {
		var row ObservanceRow
		err := rows.Scan(
			&row.CalendarID,
			&row.Date,
			&row.Name,
			&row.Rank,
			&row.Color,
			&row.Principal,
			&row.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observance row: %w", err)
		}
		found = true

		obs := row.Observance()
		if row.Principal && day.Principal == nil {
			day.Principal = &obs
		} else {
			day.Commemorations = append(day.Commemorations, obs)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observance rows: %w", err)
	}

	if !found {
		return nil, ErrNotFound
	}
	return day, nil
}

// ListFeastNames returns the distinct feast names recorded for a
// calendar, the corpus the fuzzy search ranks against.
func (db *DB) ListFeastNames(ctx context.Context, calendarID string) ([]string, error) {
	query := `
		SELECT DISTINCT name
		FROM observances
		WHERE calendar_id = ?
		ORDER BY name ASC
	`

	rows, err := db.QueryContext(ctx, query, calendarID)
	if err != nil {
		return nil, fmt.Errorf("query feast names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan feast name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feast names: %w", err)
	}

	return names, nil
}

// GetFeastOccurrence returns a feast's first stored occurrence within a
// calendar. Returns ErrNotFound if the name is not recorded.
func (db *DB) GetFeastOccurrence(ctx context.Context, calendarID, name string) (*liturgy.Observance, error) {
	query := `
		SELECT calendar_id, date, name, rank, color, is_principal, position
		FROM observances
		WHERE calendar_id = ? AND name = ?
		ORDER BY date ASC
		LIMIT 1
	`

	var row ObservanceRow
	err := db.QueryRowContext(ctx, query, calendarID, name).Scan(
		&row.CalendarID,
		&row.Date,
		&row.Name,
		&row.Rank,
		&row.Color,
		&row.Principal,
		&row.Position,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query feast occurrence: %w", err)
	}

	obs := row.Observance()
	return &obs, nil
}

// ListYear returns all observances for a calendar within a year,
// ordered by date with principals before commemorations. Used by the
// CSV and ICS exports.
func (db *DB) ListYear(ctx context.Context, calendarID string, year int) ([]ObservanceRow, error) {
	query := `
		SELECT calendar_id, date, name, rank, color, is_principal, position
		FROM observances
		WHERE calendar_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, is_principal DESC, position ASC, id ASC
	`

	start := fmt.Sprintf("%04d-01-01", year)
	end := fmt.Sprintf("%04d-12-31", year)

	rows, err := db.QueryContext(ctx, query, calendarID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query year observances: %w", err)
	}
	defer rows.Close()

	var out []ObservanceRow
	for rows.Next() {
		var row ObservanceRow
		err := rows.Scan(
			&row.CalendarID,
			&row.Date,
			&row.Name,
			&row.Rank,
			&row.Color,
			&row.Principal,
			&row.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observance row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observance rows: %w", err)
	}

	return out, nil
}

// GetCalendarStats summarizes stored coverage for one calendar.
func (db *DB) GetCalendarStats(ctx context.Context, calendarID string) (*CalendarStats, error) {
	query := `
		SELECT
			COUNT(DISTINCT date) AS total_days,
			COUNT(DISTINCT name) AS total_feasts,
			COALESCE(MIN(date), '') AS earliest_date,
			COALESCE(MAX(date), '') AS latest_date
		FROM observances
		WHERE calendar_id = ?
	`

	stats := CalendarStats{CalendarID: calendarID}
	err := db.QueryRowContext(ctx, query, calendarID).Scan(
		&stats.TotalDays,
		&stats.TotalFeasts,
		&stats.EarliestDate,
		&stats.LatestDate,
	)
	if err != nil {
		return nil, fmt.Errorf("query calendar stats: %w", err)
	}
	return &stats, nil
}

// =============================================================================
// Import
// =============================================================================

// ImportCalendar upserts a calendar and all its observances in a single
// transaction. Safe to re-run with the same data.
func (db *DB) ImportCalendar(ctx context.Context, cal liturgy.CalendarSystem, rows []ObservanceRow) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO calendars (id, display_name, commemoration_interpretation, description, updated_at)
			VALUES (?, ?, ?, ?, datetime('now'))
			ON CONFLICT(id) DO UPDATE SET
				display_name = excluded.display_name,
				commemoration_interpretation = excluded.commemoration_interpretation,
				description = excluded.description,
				updated_at = datetime('now')
		`, cal.ID, cal.DisplayName, cal.CommemorationInterpretation, cal.Description)
		if err != nil {
			return fmt.Errorf("upsert calendar %q: %w", cal.ID, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO observances (calendar_id, date, name, rank, color, is_principal, position, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
			ON CONFLICT(calendar_id, date, name) DO UPDATE SET
				rank = excluded.rank,
				color = excluded.color,
				is_principal = excluded.is_principal,
				position = excluded.position,
				updated_at = datetime('now')
		`)
		if err != nil {
			return fmt.Errorf("prepare observance insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			_, err := stmt.ExecContext(ctx,
				cal.ID,
				row.Date,
				row.Name,
				row.Rank,
				row.Color,
				row.Principal,
				row.Position,
			)
			if err != nil {
				return fmt.Errorf("insert observance %q on %s: %w", row.Name, row.Date, err)
			}
		}

		return nil
	})
}
