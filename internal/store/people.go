package store

// AddPerson adds a person to the key-people watchlist. Adding an existing
// name reactivates it and updates the Chinese name.
func (s *Store) AddPerson(name, nameZh string) (int64, error) {
	result, err := s.conn.Exec(
		`INSERT INTO key_people (name, name_zh) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET name_zh = excluded.name_zh, active = 1`,
		name, nameZh,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetAllPeople returns the whole watchlist, newest first.
func (s *Store) GetAllPeople() ([]Person, error) {
	return s.queryPeople("SELECT id, name, name_zh, active, created_at FROM key_people ORDER BY created_at DESC")
}

// GetActivePeople returns the people currently watched for statements.
func (s *Store) GetActivePeople() ([]Person, error) {
	return s.queryPeople("SELECT id, name, name_zh, active, created_at FROM key_people WHERE active = 1 ORDER BY created_at DESC")
}

// TogglePerson flips a watchlist entry between active and inactive.
func (s *Store) TogglePerson(personID int64) error {
	_, err := s.conn.Exec(
		"UPDATE key_people SET active = NOT active WHERE id = ?", personID,
	)
	return err
}

// RemovePerson deletes a watchlist entry.
func (s *Store) RemovePerson(personID int64) error {
	_, err := s.conn.Exec("DELETE FROM key_people WHERE id = ?", personID)
	return err
}

func (s *Store) queryPeople(query string, args ...any) ([]Person, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		var active int
		if err := rows.Scan(&p.ID, &p.Name, &p.NameZh, &active, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Active = active != 0
		people = append(people, p)
	}
	return people, rows.Err()
}
