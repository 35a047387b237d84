package db

import (
	"database/sql"
	"fmt"
)

// ReplacePending drops every outstanding answer for userID and queues items in
// order.
func (d *DB) ReplacePending(userID string, items []Pending) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pending_answers WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clearing pending answers: %w", err)
	}
	for _, p := range items {
		if _, err := tx.Exec(
			"INSERT INTO pending_answers (user_id, field, date) VALUES (?, ?, ?)",
			userID, p.Field, p.Date,
		); err != nil {
			return fmt.Errorf("queueing pending answer: %w", err)
		}
	}
	return tx.Commit()
}

// NextPending returns the oldest outstanding answer for userID and its row id
// without removing it, or a nil Pending when nothing is waiting.
func (d *DB) NextPending(userID string) (int64, *Pending, error) {
	var id int64
	var p Pending
	err := d.conn.QueryRow(
		"SELECT id, field, date FROM pending_answers WHERE user_id = ? ORDER BY id ASC LIMIT 1", userID,
	).Scan(&id, &p.Field, &p.Date)
	if err == sql.ErrNoRows {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("getting pending answer: %w", err)
	}
	return id, &p, nil
}

// DeletePending removes one answer once it has been recorded.
func (d *DB) DeletePending(id int64) error {
	if _, err := d.conn.Exec("DELETE FROM pending_answers WHERE id = ?", id); err != nil {
		return fmt.Errorf("removing pending answer: %w", err)
	}
	return nil
}

// PopPending removes and returns the oldest outstanding answer for userID, or
// nil when nothing is waiting.
func (d *DB) PopPending(userID string) (*Pending, error) {
	id, p, err := d.NextPending(userID)
	if err != nil || p == nil {
		return nil, err
	}
	if err := d.DeletePending(id); err != nil {
		return nil, err
	}
	return p, nil
}
