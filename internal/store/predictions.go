package store

import (
	"database/sql"

	"github.com/dailybrief/dailybrief/internal/classify"
)

// GetPrediction returns the stored prediction for a category and timeframe,
// or nil if none has been made yet.
func (s *Store) GetPrediction(category classify.Category, timeframe string) (*Prediction, error) {
	row := s.conn.QueryRow(
		`SELECT category, timeframe, content, updated_at
		FROM predictions WHERE category = ? AND timeframe = ?`,
		string(category), timeframe,
	)
	p, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertPrediction stores the latest prediction for its category and timeframe.
func (s *Store) UpsertPrediction(p *Prediction) error {
	_, err := s.conn.Exec(
		`INSERT INTO predictions (category, timeframe, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category, timeframe) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at`,
		string(p.Category), p.Timeframe, p.Content, encodeTime(p.UpdatedAt),
	)
	return err
}

// GetAllPredictions returns every stored prediction ordered by category and
// timeframe.
func (s *Store) GetAllPredictions() ([]Prediction, error) {
	rows, err := s.conn.Query(
		`SELECT category, timeframe, content, updated_at
		FROM predictions ORDER BY category, timeframe`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []Prediction
	for rows.Next() {
		var p Prediction
		var category, updated string
		if err := rows.Scan(&category, &p.Timeframe, &p.Content, &updated); err != nil {
			return nil, err
		}
		p.Category = classify.Category(category)
		p.UpdatedAt = decodeTime(updated)
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

func scanPrediction(row *sql.Row) (*Prediction, error) {
	var p Prediction
	var category, updated string
	if err := row.Scan(&category, &p.Timeframe, &p.Content, &updated); err != nil {
		return nil, err
	}
	p.Category = classify.Category(category)
	p.UpdatedAt = decodeTime(updated)
	return &p, nil
}
