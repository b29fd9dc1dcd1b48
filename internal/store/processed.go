package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dailybrief/dailybrief/internal/classify"
)

// ReplaceProcessedForRun replaces the processing results for a run date.
// Reprocessing a day is idempotent: earlier results for the same articles are
// cleared first.
func (s *Store) ReplaceProcessedForRun(runDate string, articles []*ProcessedArticle) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM processed WHERE article_id IN
		(SELECT id FROM articles WHERE run_date = ?)`, runDate,
	); err != nil {
		return fmt.Errorf("clearing processed results: %w", err)
	}

	for _, a := range articles {
		keyPoints, err := json.Marshal(a.KeyPoints)
		if err != nil {
			return fmt.Errorf("encoding key points for %s: %w", a.ID, err)
		}
		people, err := json.Marshal(a.MentionedPeople)
		if err != nil {
			return fmt.Errorf("encoding mentioned people for %s: %w", a.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO processed
			(article_id, title_translated, summary, key_points, category, confidence,
			impact, mentioned_people, is_primary, related_event_id, processed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.TitleTranslated, a.Summary, string(keyPoints), string(a.Category),
			a.Confidence, a.Impact, string(people), boolToInt(a.IsPrimary),
			a.RelatedEventID, encodeTime(a.ProcessedAt),
		); err != nil {
			return fmt.Errorf("inserting processed article %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// GetProcessedForRun returns the processing results for a run date, oldest
// first, joined with their collected articles.
func (s *Store) GetProcessedForRun(runDate string) ([]*ProcessedArticle, error) {
	rows, err := s.conn.Query(
		`SELECT a.id, a.url, a.title, a.source, a.language, a.published_at,
		p.title_translated, p.summary, p.key_points, p.category, p.confidence,
		p.impact, p.mentioned_people, p.is_primary, p.related_event_id, p.processed_at
		FROM processed p JOIN articles a ON p.article_id = a.id
		WHERE a.run_date = ? ORDER BY a.published_at`, runDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*ProcessedArticle
	for rows.Next() {
		a, err := scanProcessed(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CountProcessedForRun returns the number of processing results for a run date.
func (s *Store) CountProcessedForRun(runDate string) (int, error) {
	var n int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM processed p JOIN articles a ON p.article_id = a.id
		WHERE a.run_date = ?`, runDate,
	).Scan(&n)
	return n, err
}

func scanProcessed(rows *sql.Rows) (*ProcessedArticle, error) {
	var a ProcessedArticle
	var published, processedAt, category string
	var keyPoints, people sql.NullString
	var isPrimary int
	if err := rows.Scan(&a.ID, &a.URL, &a.TitleOriginal, &a.Source, &a.Language,
		&published, &a.TitleTranslated, &a.Summary, &keyPoints, &category,
		&a.Confidence, &a.Impact, &people, &isPrimary, &a.RelatedEventID,
		&processedAt); err != nil {
		return nil, err
	}
	a.PublishedAt = decodeTime(published)
	a.ProcessedAt = decodeTime(processedAt)
	a.Category = classify.Category(category)
	a.IsPrimary = isPrimary != 0
	if keyPoints.Valid && keyPoints.String != "" {
		if err := json.Unmarshal([]byte(keyPoints.String), &a.KeyPoints); err != nil {
			return nil, fmt.Errorf("decoding key points for %s: %w", a.ID, err)
		}
	}
	if people.Valid && people.String != "" {
		if err := json.Unmarshal([]byte(people.String), &a.MentionedPeople); err != nil {
			return nil, fmt.Errorf("decoding mentioned people for %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
