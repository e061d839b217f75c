// Package compare reconciles how different liturgical calendars observe
// a given day. It retrieves each calendar's observances, filters out
// ferial days, groups the rest into canonical feasts by exact name, and
// uses per-calendar fuzzy search to locate feasts a calendar does not
// report directly.
package compare

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// DayLookup returns a calendar's observances for a date. A failure is
// treated as "no data for this calendar on this date".
type DayLookup interface {
	GetDayInfo(ctx context.Context, calendarID string, date time.Time) (*liturgy.DayInfo, error)
}

// Searcher runs a free-text fuzzy search within one calendar. Scores
// are calendar-local; the engine selects max-by-score itself.
type Searcher interface {
	Search(ctx context.Context, calendarID, query string) ([]liturgy.SearchMatch, error)
}

// Catalog lists the known calendar systems. Not needed by the
// reconciliation algorithm itself; used to resolve display labels.
type Catalog interface {
	ListCalendars(ctx context.Context) ([]liturgy.CalendarSystem, error)
}

// ErrNoCalendars is returned when the selection is empty: there is
// nothing to compare. It is a distinct condition, not a failure.
var ErrNoCalendars = errors.New("no calendars selected")

// DefaultThreshold is the minimum fuzzy-search score (exclusive) for a
// secondary match to be accepted as found-elsewhere rather than absent.
const DefaultThreshold = 0.9

// Engine orchestrates one reconciliation run. Safe for concurrent use;
// each run builds its own state from scratch.
type Engine struct {
	lookup    DayLookup
	search    Searcher
	threshold float64
	logger    *slog.Logger
}

// NewEngine creates an engine. A non-positive threshold selects
// DefaultThreshold; a nil logger selects slog.Default().
func NewEngine(lookup DayLookup, search Searcher, threshold float64, logger *slog.Logger) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		lookup:    lookup,
		search:    search,
		threshold: threshold,
		logger:    logger,
	}
}

// Reconcile compares the given calendars' observances for date and
// returns one CanonicalFeast per distinct feast name, sorted by name.
//
// Per-calendar lookup failures and per-feast search failures degrade to
// missing data and Absent statuses; the only errors returned are an
// empty selection (ErrNoCalendars) and context cancellation.
func (e *Engine) Reconcile(ctx context.Context, date time.Time, calendarIDs []string) ([]CanonicalFeast, error) {
	if len(calendarIDs) == 0 {
		return nil, ErrNoCalendars
	}

	// Step 1: fetch every calendar's day in parallel, proceeding once
	// all have settled. No retry.
	days := e.fetchDays(ctx, date, calendarIDs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Steps 2-3: filter and group by exact description, calendars in
	// selection order, principal before commemorations. The first
	// calendar to report a feast becomes its base.
	isSunday := liturgy.IsSunday(date)
	dateStr := liturgy.FormatDate(date)
	byName := make(map[string]*CanonicalFeast)
	var order []*CanonicalFeast

	for i, id := range calendarIDs {
		for _, obs := range days[i].Observances() {
			if !comparisonWorthy(obs, isSunday) {
				continue
			}
			feast, ok := byName[obs.Description]
			if !ok {
				feast = &CanonicalFeast{
					Name:           obs.Description,
					BaseCalendarID: id,
					Statuses:       make(map[string]ObservanceStatus),
				}
				byName[obs.Description] = feast
				order = append(order, feast)
			}
			if _, seen := feast.Statuses[id]; !seen {
				feast.Statuses[id] = ObservanceStatus{
					Kind:        StatusPresent,
					Description: obs.Description,
					Rank:        obs.Rank,
					Color:       obs.Color,
					Date:        dateStr,
				}
			}
		}
	}

	// Step 4: sequential secondary search for every calendar that has
	// no status yet, in feast-then-calendar order.
	for _, feast := range order {
		baseRank := feast.Statuses[feast.BaseCalendarID].Rank
		for _, id := range calendarIDs {
			if _, ok := feast.Statuses[id]; ok {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			feast.Statuses[id] = e.locateElsewhere(ctx, id, feast, baseRank)
		}
	}

	// Step 5: locale lexical order by canonical name.
	out := make([]CanonicalFeast, 0, len(order))
	for _, feast := range order {
		out = append(out, *feast)
	}
	coll := collate.New(language.English)
	sort.SliceStable(out, func(i, j int) bool {
		return coll.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out, nil
}

// fetchDays issues one day lookup per calendar concurrently. A failed
// lookup leaves a nil entry: that calendar simply has no data this run.
func (e *Engine) fetchDays(ctx context.Context, date time.Time, calendarIDs []string) []*liturgy.DayInfo {
	days := make([]*liturgy.DayInfo, len(calendarIDs))
	var wg sync.WaitGroup
	for i, id := range calendarIDs {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			day, err := e.lookup.GetDayInfo(ctx, id, date)
			if err != nil {
				e.logger.Debug("day lookup failed",
					slog.String("calendar", id),
					slog.String("date", liturgy.FormatDate(date)),
					slog.Any("error", err),
				)
				return
			}
			days[i] = day
		}()
	}
	wg.Wait()
	return days
}

// comparisonWorthy applies the per-observance filter: blank fields and
// ferial days are never compared, and on Sundays anything ranked or
// described as the Sunday/ordinary office is suppressed as well.
func comparisonWorthy(obs liturgy.Observance, isSunday bool) bool {
	desc := strings.TrimSpace(obs.Description)
	rank := strings.TrimSpace(obs.Rank)
	if desc == "" || rank == "" {
		return false
	}
	if liturgy.IsFeria(obs.Description, obs.Rank, isSunday) {
		return false
	}
	if isSunday {
		lowerRank := strings.ToLower(rank)
		if strings.Contains(lowerRank, "sunday") ||
			strings.Contains(lowerRank, "dominica") ||
			strings.Contains(lowerRank, "ordinary") ||
			strings.Contains(strings.ToLower(desc), "ordinary time") {
			return false
		}
	}
	return true
}

// locateElsewhere searches one calendar for a feast it did not report
// directly. Search failures and sub-threshold best scores leave the
// calendar Absent. Ties on score keep the earlier result.
func (e *Engine) locateElsewhere(ctx context.Context, calendarID string, feast *CanonicalFeast, baseRank string) ObservanceStatus {
	matches, err := e.search.Search(ctx, calendarID, feast.Name)
	if err != nil {
		e.logger.Debug("secondary search failed",
			slog.String("calendar", calendarID),
			slog.String("feast", feast.Name),
			slog.Any("error", err),
		)
		return ObservanceStatus{Kind: StatusAbsent}
	}

	var best *liturgy.SearchMatch
	for i := range matches {
		if best == nil || matches[i].Score > best.Score {
			best = &matches[i]
		}
	}
	if best == nil || best.Score <= e.threshold {
		return ObservanceStatus{Kind: StatusAbsent}
	}

	return ObservanceStatus{
		Kind:        StatusFoundElsewhere,
		Description: best.Name,
		Rank:        best.Rank,
		Color:       best.Color,
		Date:        best.Date,
		Transferred: feast.BaseCalendarID != calendarID,
		RankChanged: baseRank != best.Rank,
	}
}
