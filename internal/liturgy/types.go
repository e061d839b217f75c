// Package liturgy defines the domain types shared by the comparison
// engine, the storage layer, and the remote backend client, plus the
// observance classifier used to filter ferial days out of comparisons.
package liturgy

// CalendarSystem identifies one liturgical calendar tradition.
// Loaded from the calendar catalog and referenced by ID everywhere else.
type CalendarSystem struct {
	ID                          string `json:"id"`
	DisplayName                 string `json:"display_name"`
	CommemorationInterpretation string `json:"commemoration_interpretation"`
	Description                 string `json:"description,omitempty"`
}

// Observance is a single liturgical observance reported by a calendar
// for a date. Missing rank or color is represented by the empty string.
type Observance struct {
	Description string `json:"description"`
	Rank        string `json:"rank"`
	Color       string `json:"color"`
	Date        string `json:"date"` // ISO 8601: YYYY-MM-DD
	CalendarID  string `json:"calendar_id"`
}

// DayInfo is what a calendar reports for one date: at most one principal
// observance and zero or more commemorations alongside it.
type DayInfo struct {
	Principal      *Observance  `json:"principal,omitempty"`
	Commemorations []Observance `json:"commemorations,omitempty"`
}

// Observances returns the day's observances in comparison order:
// the principal first, then commemorations in their recorded order.
func (d *DayInfo) Observances() []Observance {
	if d == nil {
		return nil
	}
	var all []Observance
	if d.Principal != nil {
		all = append(all, *d.Principal)
	}
	return append(all, d.Commemorations...)
}

// SearchMatch is one candidate returned by a calendar's fuzzy search.
// Score is calendar-local: comparable only within one query's results.
// Date is opaque text; remote backends may report a date rule rather
// than a concrete date.
type SearchMatch struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Rank        string  `json:"rank"`
	Color       string  `json:"color"`
	Date        string  `json:"date"`
	Score       float64 `json:"score"`
}
