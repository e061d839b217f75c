// Package remote is an HTTP client for an external liturgical calendar
// backend. The backend computes the actual liturgical rules; this
// client only consumes its day, search and catalog endpoints, each
// wrapped in a {success, data, error} envelope.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// Client talks to one backend instance. It implements the comparison
// engine's day-lookup, search and catalog collaborator interfaces.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the backend at baseURL
// (e.g. "http://localhost:3000").
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

// liturgicalUnit is the backend's observance shape.
type liturgicalUnit struct {
	Desc  string `json:"desc"`
	Rank  string `json:"rank"`
	Date  string `json:"date"`
	Color string `json:"color"`
}

func (u liturgicalUnit) observance(calendarID string) liturgy.Observance {
	return liturgy.Observance{
		Description: u.Desc,
		Rank:        u.Rank,
		Color:       u.Color,
		Date:        u.Date,
		CalendarID:  calendarID,
	}
}

// GetDayInfo fetches a calendar's observances for a date. Any transport
// failure or backend error reads as "no data for this calendar".
func (c *Client) GetDayInfo(ctx context.Context, calendarID string, date time.Time) (*liturgy.DayInfo, error) {
	path := fmt.Sprintf("/api/calendars/%s/day/%d/%d/%d",
		url.PathEscape(calendarID), date.Year(), int(date.Month()), date.Day())

	var payload struct {
		Desc struct {
			Date           string           `json:"date"`
			DayInSeason    string           `json:"day_in_season"`
			DayRank        string           `json:"day_rank"`
			Day            liturgicalUnit   `json:"day"`
			Commemorations []liturgicalUnit `json:"commemorations"`
		} `json:"desc"`
	}
	if err := c.get(ctx, path, nil, &payload); err != nil {
		return nil, fmt.Errorf("get day info: %w", err)
	}

	day := &liturgy.DayInfo{}
	principal := payload.Desc.Day.observance(calendarID)
	if principal.Rank == "" {
		principal.Rank = payload.Desc.DayRank
	}
	if principal.Description != "" {
		day.Principal = &principal
	}
	for _, unit := range payload.Desc.Commemorations {
		day.Commemorations = append(day.Commemorations, unit.observance(calendarID))
	}
	return day, nil
}

// Search runs the backend's fuzzy search within one calendar.
func (c *Client) Search(ctx context.Context, calendarID, query string) ([]liturgy.SearchMatch, error) {
	path := fmt.Sprintf("/api/calendars/%s/search", url.PathEscape(calendarID))
	params := url.Values{"q": []string{query}}

	var payload []struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Date        string  `json:"date"`
		Rank        string  `json:"rank"`
		Score       float64 `json:"score"`
		Color       string  `json:"color"`
	}
	if err := c.get(ctx, path, params, &payload); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	matches := make([]liturgy.SearchMatch, 0, len(payload))
	for _, r := range payload {
		matches = append(matches, liturgy.SearchMatch{
			Name:        r.Name,
			Description: r.Description,
			Rank:        r.Rank,
			Color:       r.Color,
			Date:        r.Date,
			Score:       r.Score,
		})
	}
	return matches, nil
}

// ListCalendars fetches the backend's calendar catalog.
func (c *Client) ListCalendars(ctx context.Context) ([]liturgy.CalendarSystem, error) {
	var payload []struct {
		Name                        string `json:"name"`
		DisplayName                 string `json:"display_name"`
		Description                 string `json:"description"`
		CommemorationInterpretation string `json:"commemoration_interpretation"`
	}
	if err := c.get(ctx, "/api/calendars", nil, &payload); err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	systems := make([]liturgy.CalendarSystem, 0, len(payload))
	for _, c := range payload {
		systems = append(systems, liturgy.CalendarSystem{
			ID:                          c.Name,
			DisplayName:                 c.DisplayName,
			CommemorationInterpretation: c.CommemorationInterpretation,
			Description:                 c.Description,
		})
	}
	return systems, nil
}

// get performs one GET, unwraps the envelope, and decodes data into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		if env.Error != nil && *env.Error != "" {
			return errors.New(*env.Error)
		}
		return errors.New("backend reported failure")
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
