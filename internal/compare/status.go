package compare

// StatusKind classifies how one calendar relates to a canonical feast.
type StatusKind string

const (
	// StatusPresent: the calendar directly reports the feast on the
	// target date.
	StatusPresent StatusKind = "present"
	// StatusFoundElsewhere: not reported on the target date, but an
	// acceptable fuzzy match exists within the calendar, possibly on a
	// different date.
	StatusFoundElsewhere StatusKind = "found_elsewhere"
	// StatusAbsent: no direct report and no acceptable match.
	StatusAbsent StatusKind = "absent"
)

// ObservanceStatus is one calendar's status for a canonical feast.
// Description, Rank, Color and Date are populated for Present and
// FoundElsewhere; Transferred and RankChanged only for FoundElsewhere.
type ObservanceStatus struct {
	Kind        StatusKind `json:"kind"`
	Description string     `json:"description,omitempty"`
	Rank        string     `json:"rank,omitempty"`
	Color       string     `json:"color,omitempty"`
	Date        string     `json:"date,omitempty"`
	Transferred bool       `json:"transferred,omitempty"`
	RankChanged bool       `json:"rank_changed,omitempty"`
}

// CanonicalFeast is the engine's identity for "the same observance"
// across calendars. Identity is the exact description text: calendars
// wording the same feast differently produce distinct entries.
//
// Statuses holds exactly one entry per calendar in the run's selection;
// an absent calendar is recorded as StatusAbsent, never omitted.
// BaseCalendarID is the first calendar, in selection order, that
// reported the feast directly; its status is always Present.
type CanonicalFeast struct {
	Name           string                      `json:"name"`
	BaseCalendarID string                      `json:"base_calendar_id"`
	Statuses       map[string]ObservanceStatus `json:"statuses"`
}
