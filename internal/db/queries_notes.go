package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// InternalNotePrefix marks notes that hold app state, such as the Discord
// user to DM. They are hidden from ListNotes and cannot be set through
// SetUserNote.
const InternalNotePrefix = "_"

// ErrReservedNote is returned when a user note would overwrite app state.
var ErrReservedNote = errors.New("note key is reserved")

// GetNote retrieves a note by key. A missing note is "".
func (d *DB) GetNote(key string) (string, error) {
	var value string
	err := d.conn.QueryRow("SELECT value FROM notes WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting note: %w", err)
	}
	return value, nil
}

// SetNote stores or replaces a note.
func (d *DB) SetNote(key, value string) error {
	_, err := d.conn.Exec(
		"INSERT INTO notes (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("setting note: %w", err)
	}
	return nil
}

// SetUserNote is SetNote for keys chosen by the user or the agent.
func (d *DB) SetUserNote(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, InternalNotePrefix) {
		return fmt.Errorf("%w: %q", ErrReservedNote, key)
	}
	return d.SetNote(key, value)
}

// ListNotes returns the user's notes ordered by key.
func (d *DB) ListNotes() ([]Note, error) {
	rows, err := d.conn.Query(
		"SELECT key, value, updated_at FROM notes WHERE substr(key, 1, 1) != ? ORDER BY key",
		InternalNotePrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()
	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.Key, &n.Value, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
