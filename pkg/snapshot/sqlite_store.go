/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"

	"github.com/carverauto/downtimeradar/pkg/models"
)

const (
	dbOperationTimeout = 5 * time.Second

	createTablesSQL = `
	CREATE TABLE IF NOT EXISTS snapshots (
		week INTEGER PRIMARY KEY,
		open_time REAL NOT NULL,
		month TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_events (
		week INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		failure_type TEXT NOT NULL,
		machine TEXT NOT NULL DEFAULT '',
		down_time REAL,
		delay_time REAL,
		sub_defect TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (week, seq),
		FOREIGN KEY (week) REFERENCES snapshots(week) ON DELETE CASCADE
	);
	`
)

// SQLiteStore keeps snapshots in two tables: one row per week and one row
// per event. A missing duration is stored as NULL.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errOpenDB, err)
	}

	// SQLite allows a single writer, and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", errOpenDB, err)
	}

	if _, err := db.Exec(createTablesSQL); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", errInitSchema, err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap *models.WeeklySnapshot) (saved bool, err error) {
	if err = validate(snap); err != nil {
		return false, err
	}

	if len(snap.Events) == 0 {
		return false, nil
	}

	snap = prepare(snap, s.now)

	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errBeginTx, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Error rolling back transaction: %v", rbErr)
			}
		}
	}()

	const upsert = `
        INSERT INTO snapshots (week, open_time, month, saved_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(week) DO UPDATE SET
            open_time = excluded.open_time,
            month = excluded.month,
            saved_at = excluded.saved_at
    `

	if _, err = tx.ExecContext(ctx, upsert, snap.Week, snap.OpenTime, snap.Month, snap.SavedAt.UnixNano()); err != nil {
		return false, fmt.Errorf("%w: %w", errSaveSnapshot, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM snapshot_events WHERE week = ?", snap.Week); err != nil {
		return false, fmt.Errorf("%w: %w", errSaveSnapshot, err)
	}

	if err = insertEvents(ctx, tx, snap); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: %w", errSaveSnapshot, err)
	}

	return true, nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, snap *models.WeeklySnapshot) error {
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO snapshot_events (
            week, seq, failure_type, machine, down_time, delay_time, sub_defect
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("%w: %w", errSaveSnapshot, err)
	}

	defer func() { _ = stmt.Close() }()

	for i := range snap.Events {
		ev := &snap.Events[i]

		_, err = stmt.ExecContext(ctx,
			snap.Week, i, ev.FailureType, ev.Machine,
			nullHours(ev.DownTime), nullHours(ev.DelayTime),
			ev.SubDefect,
		)
		if err != nil {
			return fmt.Errorf("%w: event %d: %w", errSaveSnapshot, i, err)
		}
	}

	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, week int) (*models.WeeklySnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		"SELECT week, open_time, month, saved_at FROM snapshots WHERE week = ?", week)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: week %d", ErrSnapshotNotFound, week)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLoadSnapshot, err)
	}

	if snap.Events, err = s.loadEvents(ctx, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *SQLiteStore) LoadRecent(ctx context.Context, maxCount int) (*models.SnapshotSet, error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	limit := maxCount
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT week, open_time, month, saved_at FROM snapshots ORDER BY week DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListSnapshots, err)
	}

	var heads []*models.WeeklySnapshot

	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			_ = rows.Close()

			return nil, fmt.Errorf("%w: %w", errListSnapshots, err)
		}

		heads = append(heads, snap)
	}

	if err := rows.Close(); err != nil {
		log.Print("Error closing rows: ", err)
	}

	set := &models.SnapshotSet{Snapshots: []models.WeeklySnapshot{}}

	for _, snap := range heads {
		if validErr := validate(snap); validErr != nil {
			set.Skipped = append(set.Skipped, models.SkippedEntry{
				Name:   snap.Label(),
				Week:   snap.Week,
				Reason: validErr.Error(),
			})

			continue
		}

		events, err := s.loadEvents(ctx, snap)
		if err != nil {
			log.WithError(err).WithField("week", snap.Week).Warn("skipping unreadable snapshot")

			set.Skipped = append(set.Skipped, models.SkippedEntry{
				Name:   snap.Label(),
				Week:   snap.Week,
				Reason: err.Error(),
			})

			continue
		}

		snap.Events = events
		set.Snapshots = append(set.Snapshots, *snap)
	}

	return set, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*models.WeeklySnapshot, error) {
	var (
		snap    models.WeeklySnapshot
		savedAt int64
	)

	if err := row.Scan(&snap.Week, &snap.OpenTime, &snap.Month, &savedAt); err != nil {
		return nil, err
	}

	snap.SavedAt = time.Unix(0, savedAt).UTC()

	return &snap, nil
}

func (s *SQLiteStore) loadEvents(ctx context.Context, snap *models.WeeklySnapshot) ([]models.DowntimeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT failure_type, machine, down_time, delay_time, sub_defect
        FROM snapshot_events
        WHERE week = ?
        ORDER BY seq
    `, snap.Week)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLoadSnapshot, err)
	}

	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			log.Print("Error closing rows: ", err)
		}
	}(rows)

	events := []models.DowntimeEvent{}

	for rows.Next() {
		var (
			ev          models.DowntimeEvent
			down, delay sql.NullFloat64
		)

		if err := rows.Scan(&ev.FailureType, &ev.Machine, &down, &delay, &ev.SubDefect); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
		}

		ev.DownTime = hoursFromNull(down)
		ev.DelayTime = hoursFromNull(delay)
		ev.Week = snap.Week
		ev.Month = snap.Month

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errLoadSnapshot, err)
	}

	return events, nil
}

func (s *SQLiteStore) ClearAll(ctx context.Context) (err error) {
	ctx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errBeginTx, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Error rolling back transaction: %v", rbErr)
			}
		}
	}()

	for _, table := range []string{"snapshot_events", "snapshots"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("%w: %w", errClearStore, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullHours(h models.Hours) sql.NullFloat64 {
	return sql.NullFloat64{Float64: h.Value, Valid: h.Valid}
}

func hoursFromNull(v sql.NullFloat64) models.Hours {
	if !v.Valid {
		return models.MissingHours
	}

	return models.KnownHours(v.Float64)
}
