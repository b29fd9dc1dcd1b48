package store

import (
	"database/sql"
	"time"
)

// UpsertBriefing stores the rendered briefing for a run date, replacing any
// earlier render of the same day.
func (s *Store) UpsertBriefing(runDate, bodyMarkdown string, articleCount, categoryCount int) error {
	_, err := s.conn.Exec(
		`INSERT INTO briefings (run_date, body_markdown, article_count, category_count, generated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_date) DO UPDATE SET
			body_markdown = excluded.body_markdown,
			article_count = excluded.article_count,
			category_count = excluded.category_count,
			generated_at = excluded.generated_at`,
		runDate, bodyMarkdown, articleCount, categoryCount, encodeTime(time.Now()),
	)
	return err
}

// GetBriefing returns the stored briefing for a run date, or nil if none.
func (s *Store) GetBriefing(runDate string) (*Briefing, error) {
	row := s.conn.QueryRow(
		`SELECT run_date, body_markdown, article_count, category_count, generated_at
		FROM briefings WHERE run_date = ?`, runDate,
	)
	var b Briefing
	err := row.Scan(&b.RunDate, &b.BodyMarkdown, &b.ArticleCount, &b.CategoryCount, &b.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// InsertRunReport records the step counters of one pipeline run.
func (s *Store) InsertRunReport(runDate string, collected, processed, duplicates, predictions int) error {
	_, err := s.conn.Exec(
		`INSERT INTO run_reports (run_date, collected, processed, duplicates, predictions)
		VALUES (?, ?, ?, ?, ?)`,
		runDate, collected, processed, duplicates, predictions,
	)
	return err
}

// GetLastRunDate returns the run date of the most recent pipeline run, or an
// empty string if no run has completed yet.
func (s *Store) GetLastRunDate() (string, error) {
	var runDate string
	err := s.conn.QueryRow(
		"SELECT run_date FROM run_reports ORDER BY id DESC LIMIT 1",
	).Scan(&runDate)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return runDate, nil
}

// GetStats summarizes database contents for the status command.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	if err := s.conn.QueryRow("SELECT COUNT(*) FROM articles").Scan(&stats.ArticleCount); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM processed").Scan(&stats.ProcessedCount); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM predictions").Scan(&stats.PredictionCount); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM briefings").Scan(&stats.BriefingCount); err != nil {
		return nil, err
	}
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM key_people WHERE active = 1").Scan(&stats.PeopleCount); err != nil {
		return nil, err
	}

	last, err := s.GetLastRunDate()
	if err != nil {
		return nil, err
	}
	stats.LastRunDate = last

	return stats, nil
}
