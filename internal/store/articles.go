package store

import (
	"database/sql"
	"time"
)

// Articles shorter than this get a full-content fetch before processing.
const minContentLength = 500

// InsertArticle inserts a collected article. Returns false if an article with
// the same URL (or id) was already collected.
func (s *Store) InsertArticle(a *RawArticle) (bool, error) {
	result, err := s.conn.Exec(
		`INSERT OR IGNORE INTO articles
		(id, url, title, source, language, published_at, content, run_date, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.URL, a.Title, a.Source, a.Language,
		encodeTime(a.PublishedAt), a.Content, a.RunDate, encodeTime(a.CollectedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetArticlesForRun returns the articles collected for a run date, oldest first.
func (s *Store) GetArticlesForRun(runDate string) ([]RawArticle, error) {
	rows, err := s.conn.Query(
		`SELECT id, url, title, source, language, published_at, content, run_date, collected_at
		FROM articles WHERE run_date = ? ORDER BY published_at`, runDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRawArticles(rows)
}

// GetArticlesNeedingFetch returns articles for a run date whose content is too
// short to summarize and that have not had a fetch attempt yet.
func (s *Store) GetArticlesNeedingFetch(runDate string) ([]RawArticle, error) {
	rows, err := s.conn.Query(
		`SELECT id, url, title, source, language, published_at, content, run_date, collected_at
		FROM articles
		WHERE run_date = ? AND fetch_attempted = 0 AND length(content) < ?
		ORDER BY published_at`, runDate, minContentLength,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRawArticles(rows)
}

// UpdateArticleContent stores fetched content and marks the fetch attempt.
func (s *Store) UpdateArticleContent(articleID, content string) error {
	_, err := s.conn.Exec(
		"UPDATE articles SET content = ?, fetch_attempted = 1 WHERE id = ?",
		content, articleID,
	)
	return err
}

// MarkArticleFetchAttempted records that we tried to fetch content.
func (s *Store) MarkArticleFetchAttempted(articleID string) error {
	_, err := s.conn.Exec(
		"UPDATE articles SET fetch_attempted = 1 WHERE id = ?", articleID,
	)
	return err
}

// CountArticlesForRun returns the number of articles collected for a run date.
func (s *Store) CountArticlesForRun(runDate string) (int, error) {
	var n int
	err := s.conn.QueryRow(
		"SELECT COUNT(*) FROM articles WHERE run_date = ?", runDate,
	).Scan(&n)
	return n, err
}

func scanRawArticles(rows *sql.Rows) ([]RawArticle, error) {
	var articles []RawArticle
	for rows.Next() {
		var a RawArticle
		var published, collected string
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Source, &a.Language,
			&published, &a.Content, &a.RunDate, &collected); err != nil {
			return nil, err
		}
		a.PublishedAt = decodeTime(published)
		a.CollectedAt = decodeTime(collected)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// encodeTime stores timestamps as UTC RFC 3339 text.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// decodeTime tolerates empty or malformed stored timestamps.
func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
