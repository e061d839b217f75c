package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number.
// Each migration should be idempotent (safe to run multiple times).
var migrationsSQL = map[int]string{
	1: migrationV1CalendarSchema,
}

// migrationV1CalendarSchema creates the calendar comparison schema.
//
// Key design decisions:
//
// 1. RESOLVED DATES, NOT RULES
//   - observances stores already-computed dates for a concrete year,
//     as produced by a calendar generator. This service never applies
//     transferal or precedence rules itself.
//
// 2. TEXT IDENTITY
//   - Feasts carry no surrogate feast id shared across calendars;
//     cross-calendar identity is the exact name text, resolved at
//     comparison time. The observances table therefore indexes
//     (calendar_id, name) for the search corpus.
//
// 3. PRINCIPAL VS COMMEMORATION
//   - One principal observance per calendar/date at most (partial
//     unique index); commemorations are ordered by position.
const migrationV1CalendarSchema = `
-- Migration 001: calendar comparison schema

-- ============================================================================
-- Table: calendars
-- ============================================================================
-- One row per calendar tradition. The commemoration interpretation is a
-- presentation label describing how that tradition reads commemorations.
-- ============================================================================
CREATE TABLE IF NOT EXISTS calendars (
    id TEXT PRIMARY KEY,

    display_name TEXT NOT NULL,
    commemoration_interpretation TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- ============================================================================
-- Table: observances
-- ============================================================================
-- Resolved observances per calendar and date. is_principal marks the
-- day's principal observance; commemorations order by position.
-- ============================================================================
CREATE TABLE IF NOT EXISTS observances (
    id INTEGER PRIMARY KEY AUTOINCREMENT,

    calendar_id TEXT NOT NULL,
    date TEXT NOT NULL,              -- ISO 8601: YYYY-MM-DD
    name TEXT NOT NULL,
    rank TEXT NOT NULL DEFAULT '',
    color TEXT NOT NULL DEFAULT '',
    is_principal INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL DEFAULT 0,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),

    FOREIGN KEY (calendar_id) REFERENCES calendars(id) ON DELETE CASCADE,

    -- A feast appears at most once per calendar per date
    UNIQUE (calendar_id, date, name)
);

-- Day lookup: all observances for a calendar/date
CREATE INDEX IF NOT EXISTS idx_observances_day
    ON observances(calendar_id, date);

-- Search corpus and occurrence lookup by name
CREATE INDEX IF NOT EXISTS idx_observances_name
    ON observances(calendar_id, name);

-- At most one principal observance per calendar/date
CREATE UNIQUE INDEX IF NOT EXISTS idx_observances_principal
    ON observances(calendar_id, date)
    WHERE is_principal = 1;
`
