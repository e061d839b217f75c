// Command import loads calendar TOML files into the SQLite database.
//
// Usage:
//
//	go run ./cmd/import -db data/liturgy.db data/calendars/*.toml
//
// Each TOML file describes one calendar tradition and its resolved
// observances:
//
//	id = "roman-1962"
//	display_name = "Roman (1962)"
//	commemoration_interpretation = "Commemorations are read at Lauds."
//	description = "The 1962 Roman calendar."
//
//	[[days]]
//	date = "2026-08-10"
//	name = "Saint Lawrence, Martyr"
//	rank = "Feast II Class"
//	color = "red"
//	commemorations = ["Saint Philomena"]
//
// The import is idempotent: re-running with the same files updates the
// stored rows in place.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ericbreyer/liturgy/internal/database"
	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// calendarFile is the TOML import format.
type calendarFile struct {
	ID                          string `toml:"id"`
	DisplayName                 string `toml:"display_name"`
	CommemorationInterpretation string `toml:"commemoration_interpretation"`
	Description                 string `toml:"description"`

	Days []dayEntry `toml:"days"`
}

type dayEntry struct {
	Date           string   `toml:"date"`
	Name           string   `toml:"name"`
	Rank           string   `toml:"rank"`
	Color          string   `toml:"color"`
	Commemorations []string `toml:"commemorations"`
}

func main() {
	dbPath := flag.String("db", "data/liturgy.db", "Path to SQLite database")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: import [-db path] [-v] calendar.toml [calendar.toml ...]")
		os.Exit(2)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if err := run(*dbPath, flag.Args(), logger); err != nil {
		logger.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("import complete")
}

func run(dbPath string, files []string, logger *slog.Logger) error {
	ctx := context.Background()
	startTime := time.Now()

	db, err := database.Open(database.DefaultConfig(dbPath), logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if applied > 0 {
		logger.Info("applied migrations", slog.Int("count", applied))
	}

	for _, path := range files {
		if err := importFile(ctx, db, path, logger); err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
	}

	logger.Info("all files imported",
		slog.Int("files", len(files)),
		slog.Duration("elapsed", time.Since(startTime)),
	)
	return nil
}

func importFile(ctx context.Context, db *database.DB, path string, logger *slog.Logger) error {
	var file calendarFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := validate(&file); err != nil {
		return err
	}

	cal := liturgy.CalendarSystem{
		ID:                          file.ID,
		DisplayName:                 file.DisplayName,
		CommemorationInterpretation: file.CommemorationInterpretation,
		Description:                 file.Description,
	}

	rows := make([]database.ObservanceRow, 0, len(file.Days))
	for _, day := range file.Days {
		rows = append(rows, database.ObservanceRow{
			Date:      day.Date,
			Name:      day.Name,
			Rank:      day.Rank,
			Color:     day.Color,
			Principal: true,
		})
		for i, commem := range day.Commemorations {
			rows = append(rows, database.ObservanceRow{
				Date:     day.Date,
				Name:     commem,
				Position: i + 1,
			})
		}
	}

	if err := db.ImportCalendar(ctx, cal, rows); err != nil {
		return err
	}

	logger.Info("imported calendar",
		slog.String("calendar", cal.ID),
		slog.Int("days", len(file.Days)),
		slog.Int("observances", len(rows)),
	)
	return nil
}

func validate(file *calendarFile) error {
	if file.ID == "" {
		return fmt.Errorf("missing calendar id")
	}
	if file.DisplayName == "" {
		return fmt.Errorf("missing display_name for %q", file.ID)
	}
	for i, day := range file.Days {
		if day.Date == "" || day.Name == "" {
			return fmt.Errorf("days[%d]: date and name are required", i)
		}
		if _, err := liturgy.ParseDate(day.Date); err != nil {
			return fmt.Errorf("days[%d]: %w", i, err)
		}
	}
	return nil
}
