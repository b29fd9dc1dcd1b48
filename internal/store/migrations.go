package store

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "collected articles",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT 'en',
    published_at TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    fetch_attempted INTEGER NOT NULL DEFAULT 0,
    run_date TEXT NOT NULL,
    collected_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_run_date ON articles(run_date);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "processing results",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS processed (
    article_id TEXT PRIMARY KEY REFERENCES articles(id) ON DELETE CASCADE,
    title_translated TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    key_points TEXT,
    category TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 0,
    impact TEXT NOT NULL DEFAULT '',
    mentioned_people TEXT,
    is_primary INTEGER NOT NULL DEFAULT 1,
    related_event_id TEXT,
    processed_at TEXT NOT NULL
);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "prediction history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS predictions (
    category TEXT NOT NULL,
    timeframe TEXT NOT NULL,
    content TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (category, timeframe)
);
`)
			return err
		},
	},
	{
		Version:     4,
		Description: "briefings and run reports",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS briefings (
    run_date TEXT PRIMARY KEY,
    body_markdown TEXT NOT NULL,
    article_count INTEGER NOT NULL DEFAULT 0,
    category_count INTEGER NOT NULL DEFAULT 0,
    generated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_date TEXT NOT NULL,
    collected INTEGER NOT NULL DEFAULT 0,
    processed INTEGER NOT NULL DEFAULT 0,
    duplicates INTEGER NOT NULL DEFAULT 0,
    predictions INTEGER NOT NULL DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);
`)
			return err
		},
	},
	{
		Version:     5,
		Description: "key people watchlist",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS key_people (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    name_zh TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now'))
);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
