package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// DefaultLimit caps how many candidates a search returns.
const DefaultLimit = 6

// NameSource supplies a calendar's feast-name corpus and resolves a
// matched name to its stored occurrence. The database implements this.
type NameSource interface {
	ListFeastNames(ctx context.Context, calendarID string) ([]string, error)
	GetFeastOccurrence(ctx context.Context, calendarID, name string) (*liturgy.Observance, error)
}

// Service is the per-calendar search collaborator: it ranks the
// calendar's feast names against a query and joins the best candidates
// with their stored details.
type Service struct {
	src    NameSource
	limit  int
	logger *slog.Logger
}

// NewService creates a search service. A non-positive limit selects
// DefaultLimit; a nil logger selects slog.Default().
func NewService(src NameSource, limit int, logger *slog.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, limit: limit, logger: logger}
}

// Search returns the calendar's best fuzzy matches for query, highest
// score first. Candidates whose details cannot be resolved are skipped.
func (s *Service) Search(ctx context.Context, calendarID, query string) ([]liturgy.SearchMatch, error) {
	names, err := s.src.ListFeastNames(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("list feast names for %q: %w", calendarID, err)
	}

	ranked := BestMatches(query, names, s.limit)
	matches := make([]liturgy.SearchMatch, 0, len(ranked))
	for _, m := range ranked {
		occ, err := s.src.GetFeastOccurrence(ctx, calendarID, m.Name)
		if err != nil {
			s.logger.Debug("no occurrence for matched feast",
				slog.String("calendar", calendarID),
				slog.String("feast", m.Name),
				slog.Any("error", err),
			)
			continue
		}
		matches = append(matches, liturgy.SearchMatch{
			Name:        m.Name,
			Description: occ.Description,
			Rank:        occ.Rank,
			Color:       occ.Color,
			Date:        occ.Date,
			Score:       m.Score,
		})
	}
	return matches, nil
}
