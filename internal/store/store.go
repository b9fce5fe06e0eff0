// Package store persists one simulation run's schedule items and
// negotiation events into a SQLite database, so a completed run can be
// queried with SQL afterward. Every row carries the run's UUID. An empty
// path gives an in-memory database that lasts only as long as the Store;
// a file path is opened as is, so rows from earlier runs stay in it,
// told apart by run ID.
package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/logger"
)

// Store wraps one run's SQLite connection.
type Store struct {
	sql   *sql.DB
	runID string
	path  string
}

// Open opens (or creates) the SQLite database at path and runs migrations.
// An empty path opens an in-memory, run-scoped database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	sqlDB, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}
	s := &Store{sql: sqlDB, runID: uuid.NewString(), path: path}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	logger.Success("store", fmt.Sprintf("opened run %s (%s)", s.runID, dsn))
	return s, nil
}

// RunID returns the UUID this store generated for the current run.
func (s *Store) RunID() string { return s.runID }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.sql.Close()
}

// migrate brings a fresh database up to the current schema version,
// version-gated the way the teacher's db.go does it: read the highest
// applied version, then run only the statements newer than it.
func (s *Store) migrate() error {
	if _, err := s.sql.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}

	version := 0
	s.sql.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)

	if version < 1 {
		_, err := s.sql.Exec(`
			CREATE TABLE schedule_items (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id        TEXT NOT NULL,
				courier_name  TEXT NOT NULL,
				order_name    TEXT,
				record_type   TEXT NOT NULL,
				start_time    REAL NOT NULL,
				end_time      REAL NOT NULL,
				cost          REAL NOT NULL,
				point_from_x  REAL NOT NULL,
				point_from_y  REAL NOT NULL,
				point_to_x    REAL NOT NULL,
				point_to_y    REAL NOT NULL
			);
			CREATE INDEX idx_schedule_items_run ON schedule_items(run_id);
			CREATE INDEX idx_schedule_items_courier ON schedule_items(run_id, courier_name);

			CREATE TABLE negotiation_events (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id     TEXT NOT NULL,
				tick_time  REAL NOT NULL,
				kind       TEXT NOT NULL,
				detail     TEXT NOT NULL
			);
			CREATE INDEX idx_negotiation_events_run ON negotiation_events(run_id);

			INSERT INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return err
		}
	}

	return nil
}

// RecordScheduleItem persists one committed schedule segment for courierName.
func (s *Store) RecordScheduleItem(courierName string, item domain.ScheduleItem) error {
	orderName := sql.NullString{}
	if item.Order != nil {
		orderName = sql.NullString{String: item.Order.Name, Valid: true}
	}
	_, err := s.sql.Exec(`
		INSERT INTO schedule_items
			(run_id, courier_name, order_name, record_type, start_time, end_time, cost,
			 point_from_x, point_from_y, point_to_x, point_to_y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, courierName, orderName, string(item.RecType), item.StartTime, item.EndTime, item.Cost,
		item.PointFrom.X, item.PointFrom.Y, item.PointTo.X, item.PointTo.Y,
	)
	return err
}

// RecordEvent persists one negotiation-protocol event (e.g. a commit, an
// eviction, a cascade reschedule) for later inspection.
func (s *Store) RecordEvent(tickTime float64, kind, detail string) error {
	_, err := s.sql.Exec(`
		INSERT INTO negotiation_events (run_id, tick_time, kind, detail) VALUES (?, ?, ?, ?)`,
		s.runID, tickTime, kind, detail,
	)
	return err
}

// ScheduleItemRow is one persisted row from schedule_items, used by ListScheduleItems for
// read-back and verification.
type ScheduleItemRow struct {
	CourierName string
	OrderName   string
	RecordType  string
	StartTime   float64
	EndTime     float64
	Cost        float64
}

// ListScheduleItems returns every schedule item recorded for this run, in
// insertion order.
func (s *Store) ListScheduleItems() ([]ScheduleItemRow, error) {
	rows, err := s.sql.Query(`
		SELECT courier_name, COALESCE(order_name, ''), record_type, start_time, end_time, cost
		FROM schedule_items WHERE run_id = ? ORDER BY id`, s.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScheduleItemRow
	for rows.Next() {
		var row ScheduleItemRow
		if err := rows.Scan(&row.CourierName, &row.OrderName, &row.RecordType, &row.StartTime, &row.EndTime, &row.Cost); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
