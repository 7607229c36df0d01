package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mira/planbot/internal/goal"
)

// ErrNotFound is returned when the referenced goal does not exist.
var ErrNotFound = errors.New("goal not found")

// ErrBadTransition is returned for a status update that would move a goal
// backward in its lifecycle.
var ErrBadTransition = errors.New("illegal status transition")

const goalColumns = "id, name, description, activity_type, priority, status, day, start_min, end_min, created_at"

func scanGoal(scan func(...any) error) (goal.Goal, error) {
	var g goal.Goal
	err := scan(&g.ID, &g.Name, &g.Description, &g.Type, &g.Priority, &g.Status,
		&g.Day, &g.Window.Start, &g.Window.End, &g.CreatedAt)
	return g, err
}

// PutGoals inserts all goals in a single transaction. Either every row lands
// or none do.
func (s *Store) PutGoals(goals []goal.Goal) error {
	if len(goals) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertGoals(tx, goals); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing goals: %w", err)
	}
	return nil
}

// ReplaceDay deletes the day's goals and inserts the new set in the same
// transaction. A failed insert leaves the prior entries intact.
func (s *Store) ReplaceDay(day string, goals []goal.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM goals WHERE day = ?", day); err != nil {
		return fmt.Errorf("clearing day %s: %w", day, err)
	}
	if err := insertGoals(tx, goals); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replacement for %s: %w", day, err)
	}
	return nil
}

func insertGoals(tx *sql.Tx, goals []goal.Goal) error {
	stmt, err := tx.Prepare(
		"INSERT INTO goals (id, name, description, activity_type, priority, status, day, start_min, end_min) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range goals {
		if _, err := stmt.Exec(g.ID, g.Name, g.Description, string(g.Type),
			string(g.Priority), string(g.Status), g.Day, g.Window.Start, g.Window.End); err != nil {
			return fmt.Errorf("inserting goal %q: %w", g.Name, err)
		}
	}
	return nil
}

// GoalsForDay returns the day's goals ordered by window start.
func (s *Store) GoalsForDay(day string) ([]goal.Goal, error) {
	rows, err := s.conn.Query(
		"SELECT "+goalColumns+" FROM goals WHERE day = ? ORDER BY start_min ASC, name ASC", day)
	if err != nil {
		return nil, fmt.Errorf("listing goals for %s: %w", day, err)
	}
	defer rows.Close()

	var out []goal.Goal
	for rows.Next() {
		g, err := scanGoal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetGoal returns a single goal by ID.
func (s *Store) GetGoal(id string) (goal.Goal, error) {
	row := s.conn.QueryRow("SELECT "+goalColumns+" FROM goals WHERE id = ?", id)
	g, err := scanGoal(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return goal.Goal{}, ErrNotFound
	}
	if err != nil {
		return goal.Goal{}, fmt.Errorf("getting goal %s: %w", id, err)
	}
	return g, nil
}

// UpdateStatus moves a goal to a new status. Backward or repeated transitions
// are rejected with ErrBadTransition.
func (s *Store) UpdateStatus(id string, to goal.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var from goal.Status
	err := s.conn.QueryRow("SELECT status FROM goals WHERE id = ?", id).Scan(&from)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading status of %s: %w", id, err)
	}
	if !goal.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, from, to)
	}
	if _, err := s.conn.Exec(
		"UPDATE goals SET status = ?, updated_at = datetime('now') WHERE id = ?", string(to), id); err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	return nil
}

// CompleteExpired marks pending and active goals from days before today as
// completed, returning how many rows changed. Keeps old days from holding
// half-open entries forever.
func (s *Store) CompleteExpired(today string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec(
		"UPDATE goals SET status = 'completed', updated_at = datetime('now') WHERE day < ? AND status IN ('pending', 'active')", today)
	if err != nil {
		return 0, fmt.Errorf("completing expired goals: %w", err)
	}
	return res.RowsAffected()
}

// DeleteFinishedBefore removes completed and cancelled goals from days before
// the cutoff, returning the number deleted.
func (s *Store) DeleteFinishedBefore(day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec(
		"DELETE FROM goals WHERE day < ? AND status IN ('completed', 'cancelled')", day)
	if err != nil {
		return 0, fmt.Errorf("deleting finished goals: %w", err)
	}
	return res.RowsAffected()
}

// DeleteDay removes every goal on the given day, returning the count.
func (s *Store) DeleteDay(day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec("DELETE FROM goals WHERE day = ?", day)
	if err != nil {
		return 0, fmt.Errorf("clearing day %s: %w", day, err)
	}
	return res.RowsAffected()
}

// DeleteGoal removes a single goal by ID.
func (s *Store) DeleteGoal(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec("DELETE FROM goals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting goal %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDay returns how many goals exist on the given day.
func (s *Store) CountDay(day string) (int, error) {
	var n int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM goals WHERE day = ?", day).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting goals for %s: %w", day, err)
	}
	return n, nil
}

// ActiveAt returns the non-terminal goal whose window contains the given
// minute of the day, preferring higher priority on overlap. Returns
// ErrNotFound when nothing is scheduled.
func (s *Store) ActiveAt(day string, minute int) (goal.Goal, error) {
	goals, err := s.GoalsForDay(day)
	if err != nil {
		return goal.Goal{}, err
	}
	if g := goal.ActiveAt(goals, minute); g != nil {
		return *g, nil
	}
	return goal.Goal{}, ErrNotFound
}
