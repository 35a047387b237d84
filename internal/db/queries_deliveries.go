package db

import (
	"fmt"

	"github.com/google/uuid"
)

// RecordDelivery logs a send attempt and returns its ID. A non-nil sendErr
// marks the delivery failed.
func (d *DB) RecordDelivery(kind, channel, content string, sendErr error) (string, error) {
	id := uuid.NewString()
	status, errText := StatusSent, ""
	if sendErr != nil {
		status, errText = StatusFailed, sendErr.Error()
	}
	_, err := d.conn.Exec(
		"INSERT INTO deliveries (id, kind, channel, content, status, error) VALUES (?, ?, ?, ?, ?, ?)",
		id, kind, channel, content, status, nullStr(errText),
	)
	if err != nil {
		return "", fmt.Errorf("recording delivery: %w", err)
	}
	return id, nil
}

// ListDeliveries returns the most recent deliveries first, optionally for one
// kind only.
func (d *DB) ListDeliveries(kind string, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 20
	}
	q := "SELECT id, kind, channel, content, status, COALESCE(error,''), created_at FROM deliveries"
	var args []any
	if kind != "" {
		q += " WHERE kind = ?"
		args = append(args, kind)
	}
	q += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	defer rows.Close()
	var out []Delivery
	for rows.Next() {
		var dl Delivery
		if err := rows.Scan(&dl.ID, &dl.Kind, &dl.Channel, &dl.Content, &dl.Status, &dl.Error, &dl.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}
		out = append(out, dl)
	}
	return out, rows.Err()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
