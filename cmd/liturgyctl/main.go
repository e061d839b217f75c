// Command liturgyctl is a small CLI over the liturgy comparison API.
//
// Usage:
//
//	liturgyctl calendars
//	liturgyctl day roman-1962 2026-08-10
//	liturgyctl search modern "philomena"
//	liturgyctl compare --date 2026-08-10 roman-1962 modern
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericbreyer/liturgy/internal/compare"
	"github.com/ericbreyer/liturgy/internal/liturgy"
)

var (
	serverAddr string
	apiKey     string
)

func main() {
	root := &cobra.Command{
		Use:           "liturgyctl",
		Short:         "Query and compare liturgical calendars",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8080", "API server address")
	root.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("API_KEY"), "API key")

	root.AddCommand(calendarsCmd(), dayCmd(), searchCmd(), compareCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func calendarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List calendar traditions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data struct {
				Calendars []liturgy.CalendarSystem `json:"calendars"`
			}
			if err := getJSON("/api/v1/calendars", nil, &data); err != nil {
				return err
			}
			for _, cal := range data.Calendars {
				fmt.Printf("%-20s %s\n", cal.ID, cal.DisplayName)
				if cal.Description != "" {
					fmt.Printf("%-20s %s\n", "", cal.Description)
				}
			}
			return nil
		},
	}
}

func dayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "day CALENDAR DATE",
		Short: "Show a calendar's observances for a date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var day liturgy.DayInfo
			path := fmt.Sprintf("/api/v1/calendars/%s/day/%s",
				url.PathEscape(args[0]), url.PathEscape(args[1]))
			if err := getJSON(path, nil, &day); err != nil {
				return err
			}

			if day.Principal == nil {
				fmt.Println("No principal observance.")
			} else {
				fmt.Printf("%s (%s, %s)\n",
					day.Principal.Description, day.Principal.Rank, day.Principal.Color)
			}
			for _, c := range day.Commemorations {
				fmt.Printf("  + %s (%s)\n", c.Description, c.Rank)
			}
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search CALENDAR QUERY",
		Short: "Fuzzy-search feasts within a calendar",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data struct {
				Matches []liturgy.SearchMatch `json:"matches"`
			}
			path := fmt.Sprintf("/api/v1/calendars/%s/search", url.PathEscape(args[0]))
			if err := getJSON(path, url.Values{"q": []string{args[1]}}, &data); err != nil {
				return err
			}

			if len(data.Matches) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for _, m := range data.Matches {
				fmt.Printf("%.2f  %-40s %-12s %s\n", m.Score, m.Name, m.Rank, m.Date)
			}
			return nil
		},
	}
}

func compareCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "compare CALENDAR [CALENDAR...]",
		Short: "Reconcile how calendars observe one day",
		Long: `Reconcile how the given calendars observe one day.

The first calendar listed is preferred as each feast's baseline; the
others are reported as observing the feast directly, observing it
elsewhere (typically another date), or not at all.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"calendars": []string{strings.Join(args, ",")}}
			if date != "" {
				params.Set("date", date)
			}

			var data struct {
				Date      string                   `json:"date"`
				Calendars []liturgy.CalendarSystem `json:"calendars"`
				Feasts    []compare.CanonicalFeast `json:"feasts"`
			}
			if err := getJSON("/api/v1/compare", params, &data); err != nil {
				return err
			}

			fmt.Printf("Date: %s\n\n", data.Date)
			if len(data.Feasts) == 0 {
				fmt.Println("No comparable observances.")
				return nil
			}
			for _, feast := range data.Feasts {
				fmt.Println(feast.Name)
				for _, cal := range data.Calendars {
					printStatus(cal, feast.Statuses[cal.ID])
				}
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date to compare (YYYY-MM-DD, default today)")
	return cmd
}

func printStatus(cal liturgy.CalendarSystem, status compare.ObservanceStatus) {
	label := cal.DisplayName
	if label == "" {
		label = cal.ID
	}

	switch status.Kind {
	case compare.StatusPresent:
		fmt.Printf("  %-24s observed as %s (%s)\n", label, status.Description, status.Rank)
	case compare.StatusFoundElsewhere:
		var notes []string
		if status.Date != "" {
			notes = append(notes, "on "+status.Date)
		}
		if status.RankChanged {
			notes = append(notes, "as "+status.Rank)
		}
		detail := ""
		if len(notes) > 0 {
			detail = " " + strings.Join(notes, ", ")
		}
		fmt.Printf("  %-24s observed elsewhere%s\n", label, detail)
	default:
		fmt.Printf("  %-24s not observed\n", label)
	}
}

// getJSON performs one API GET and decodes the envelope's data field.
func getJSON(path string, params url.Values, out any) error {
	u := strings.TrimRight(serverAddr, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, firstLine(body))
	}
	if !env.Success {
		if env.Error != nil && env.Error.Message != "" {
			return fmt.Errorf("%s", env.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return json.Unmarshal(env.Data, out)
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
