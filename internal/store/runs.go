package store

import "fmt"

// Run is one generation attempt for a day, kept for diagnostics.
type Run struct {
	ID        int64
	Day       string
	Rounds    int
	Score     float64
	Accepted  bool
	Detail    string
	CreatedAt string
}

// RecordRun appends a generation attempt to the audit log.
func (s *Store) RecordRun(day string, rounds int, score float64, accepted bool, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := 0
	if accepted {
		acc = 1
	}
	if _, err := s.conn.Exec(
		"INSERT INTO generation_runs (day, rounds, score, accepted, detail) VALUES (?, ?, ?, ?, ?)",
		day, rounds, score, acc, detail); err != nil {
		return fmt.Errorf("recording generation run: %w", err)
	}
	return nil
}

// RunsForDay returns the day's generation attempts, oldest first.
func (s *Store) RunsForDay(day string) ([]Run, error) {
	rows, err := s.conn.Query(
		"SELECT id, day, rounds, score, accepted, detail, created_at FROM generation_runs WHERE day = ? ORDER BY id ASC", day)
	if err != nil {
		return nil, fmt.Errorf("listing runs for %s: %w", day, err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var acc int
		if err := rows.Scan(&r.ID, &r.Day, &r.Rounds, &r.Score, &acc, &r.Detail, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Accepted = acc == 1
		out = append(out, r)
	}
	return out, rows.Err()
}
