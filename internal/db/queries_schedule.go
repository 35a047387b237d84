package db

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"
)

// ListSchedules returns all schedules, optionally only enabled ones.
func (d *DB) ListSchedules(enabledOnly bool) ([]Schedule, error) {
	q := "SELECT id, name, kind, cron_expr, COALESCE(arg,''), enabled, COALESCE(last_run,''), created_at FROM schedules"
	if enabledOnly {
		q += " WHERE enabled = 1"
	}
	q += " ORDER BY id ASC"
	rows, err := d.conn.Query(q)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close()
	var out []Schedule
	for rows.Next() {
		var s Schedule
		var enabled int
		if err := rows.Scan(&s.ID, &s.Name, &s.Kind, &s.CronExpr, &s.Arg, &enabled, &s.LastRun, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		s.Enabled = enabled == 1
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSchedule looks a schedule up by name. A missing schedule is (nil, nil).
func (d *DB) GetSchedule(name string) (*Schedule, error) {
	var s Schedule
	var enabled int
	err := d.conn.QueryRow(
		"SELECT id, name, kind, cron_expr, COALESCE(arg,''), enabled, COALESCE(last_run,''), created_at FROM schedules WHERE name = ?",
		name,
	).Scan(&s.ID, &s.Name, &s.Kind, &s.CronExpr, &s.Arg, &enabled, &s.LastRun, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting schedule: %w", err)
	}
	s.Enabled = enabled == 1
	return &s, nil
}

// CreateSchedule creates a new schedule and returns its ID.
func (d *DB) CreateSchedule(name, kind, cronExpr, arg string) (int64, error) {
	if !slices.Contains(Kinds(), kind) {
		return 0, fmt.Errorf("unknown schedule kind %q", kind)
	}
	res, err := d.conn.Exec(
		"INSERT INTO schedules (name, kind, cron_expr, arg) VALUES (?, ?, ?, ?)",
		name, kind, cronExpr, nullStr(arg),
	)
	if err != nil {
		return 0, fmt.Errorf("creating schedule: %w", err)
	}
	return res.LastInsertId()
}

// scheduleColumns are the columns UpdateSchedule may touch. Name and kind
// identify a schedule and never change.
var scheduleColumns = map[string]bool{"cron_expr": true, "arg": true, "enabled": true}

// UpdateSchedule sets the given columns on a schedule by ID. Bool values are
// stored as 0/1.
func (d *DB) UpdateSchedule(id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !scheduleColumns[col] {
			return fmt.Errorf("disallowed schedule column %q", col)
		}
		cols = append(cols, col)
	}
	slices.Sort(cols)

	set := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		val := fields[col]
		if b, ok := val.(bool); ok {
			val = boolInt(b)
		}
		set = append(set, col+" = ?")
		args = append(args, val)
	}
	set = append(set, "updated_at = datetime('now')")
	args = append(args, id)

	res, err := d.conn.Exec("UPDATE schedules SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating schedule %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule %d not found", id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DeleteSchedule deletes a schedule by name.
func (d *DB) DeleteSchedule(name string) error {
	_, err := d.conn.Exec("DELETE FROM schedules WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	return nil
}

// RecordScheduleRun updates last_run to now for a schedule.
func (d *DB) RecordScheduleRun(id int64) error {
	_, err := d.conn.Exec(
		"UPDATE schedules SET last_run = datetime('now') WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("recording schedule run: %w", err)
	}
	return nil
}

// SeedSchedules inserts defaults when the table is empty and reports how many
// were added. Existing schedules are never touched.
func (d *DB) SeedSchedules(defaults []Schedule) (int, error) {
	var n int
	if err := d.conn.QueryRow("SELECT COUNT(*) FROM schedules").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting schedules: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	for _, s := range defaults {
		if _, err := d.CreateSchedule(s.Name, s.Kind, s.CronExpr, s.Arg); err != nil {
			return 0, fmt.Errorf("seeding %s: %w", s.Name, err)
		}
	}
	return len(defaults), nil
}
