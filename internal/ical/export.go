// Package ical renders a calendar's stored year data as an iCalendar
// feed of all-day events.
package ical

import (
	"fmt"
	"strings"

	ics "github.com/arran4/golang-ical"

	"github.com/ericbreyer/liturgy/internal/database"
	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// Build serializes one year of observances as an ICS document.
// Principal observances become all-day VEVENTs; commemorations are
// folded into the matching day's description.
func Build(cal liturgy.CalendarSystem, year int, rows []database.ObservanceRow) (string, error) {
	out := ics.NewCalendar()
	out.SetMethod(ics.MethodPublish)
	out.SetProductId("-//liturgy-compare//calendar-export//EN")
	out.SetName(fmt.Sprintf("%s %d", cal.DisplayName, year))

	// rows arrive ordered by date with principals first, so each
	// principal opens a day and subsequent rows for the same date are
	// its commemorations.
	type dayEvents struct {
		principal *database.ObservanceRow
		commems   []string
	}
	var dates []string
	days := make(map[string]*dayEvents)

	for i := range rows {
		row := &rows[i]
		day, ok := days[row.Date]
		if !ok {
			day = &dayEvents{}
			days[row.Date] = day
			dates = append(dates, row.Date)
		}
		if row.Principal && day.principal == nil {
			day.principal = row
		} else {
			day.commems = append(day.commems, row.Name)
		}
	}

	for _, date := range dates {
		day := days[date]
		if day.principal == nil {
			continue
		}

		start, err := liturgy.ParseDate(date)
		if err != nil {
			return "", fmt.Errorf("observance date: %w", err)
		}

		uid := fmt.Sprintf("%s-%s@liturgy-compare", cal.ID, date)
		event := out.AddEvent(uid)
		event.SetAllDayStartAt(start)
		event.SetAllDayEndAt(start.AddDate(0, 0, 1))
		event.SetSummary(day.principal.Name)

		var desc []string
		if day.principal.Rank != "" {
			desc = append(desc, "Rank: "+day.principal.Rank)
		}
		if day.principal.Color != "" {
			desc = append(desc, "Color: "+day.principal.Color)
		}
		if len(day.commems) > 0 {
			desc = append(desc, "Commemorations: "+strings.Join(day.commems, "; "))
		}
		if len(desc) > 0 {
			event.SetDescription(strings.Join(desc, "\n"))
		}
	}

	return out.Serialize(), nil
}
