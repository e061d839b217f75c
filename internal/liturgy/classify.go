package liturgy

import (
	"regexp"
	"strings"
)

// ferialPatterns match descriptions that name a position in a season
// rather than a feast: "Monday of the 1st Week of Advent", "Weekday",
// "Feria", "Ordinary Time", "Day 3 of the Octave", "4th Sunday of Lent"
// style ordinals. All are anchored at the start of the trimmed text.
var ferialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\s+(of|in|after|before|within)\b`),
	regexp.MustCompile(`(?i)^(feria|weekday)\b`),
	regexp.MustCompile(`(?i)^ordinary\s+time\b`),
	regexp.MustCompile(`(?i)^day\s+\d+\s+(of|in)\b`),
	regexp.MustCompile(`(?i)^\d+(st|nd|rd|th)?\s+(day|weekday|week)\s+(of|in)\b`),
}

// Marian reference and the Saturday/memorial qualifiers that mark an
// observance as an optional Marian commemoration rather than a titled
// Marian feast.
var (
	marianReference = regexp.MustCompile(`(?i)\b(blessed virgin mary|our lady|the blessed virgin|mary)\b`)
	saturdayWord    = regexp.MustCompile(`(?i)\bsaturday\b`)
	marianMemorial  = regexp.MustCompile(`(?i)\bmemorial of\b.*\bmary\b`)
	marianSuffix    = regexp.MustCompile(`(?i)of the blessed virgin mary\s*$`)
)

// IsFeria reports whether an observance should be excluded from
// cross-calendar comparison: either an ordinary weekday ("feria") or an
// optional Saturday commemoration of Mary. A Marian reference without a
// Saturday/memorial qualifier is a real, nameable feast and is kept.
//
// Pure and stateless; unmatched input returns false. The isSunday flag
// is accepted for callers that know the observance date, but Sunday
// suppression is a separate rule applied by the comparison engine.
func IsFeria(description, rank string, isSunday bool) bool {
	_ = rank
	_ = isSunday

	desc := strings.TrimSpace(description)
	if desc == "" {
		return false
	}

	for _, p := range ferialPatterns {
		if p.MatchString(desc) {
			return true
		}
	}

	if marianReference.MatchString(desc) {
		if saturdayWord.MatchString(desc) || marianMemorial.MatchString(desc) || marianSuffix.MatchString(desc) {
			return true
		}
	}

	return false
}
