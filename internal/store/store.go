// Package store implements the durable queue of unsynchronized disease
// reports.
//
// The store is an embedded SQLite database. A report exists in the pending
// set if and only if it has not been durably acknowledged by the submission
// service: insertion and deletion are the only lifecycle transitions, with
// quarantine bookkeeping tracked in separate columns that never touch the
// payload.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
	"github.com/ubuntu/decorate"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/report"
)

var (
	// ErrStorageFault is returned when the backing storage is unavailable,
	// corrupt, or full. The submission flow cannot proceed without a place to
	// persist, so callers surface this as "cannot save offline".
	ErrStorageFault = errors.New("local report store fault")

	// ErrNotQuarantined is returned when a quarantine operation targets a
	// record that is not quarantined.
	ErrNotQuarantined = errors.New("report is not quarantined")
)

// Store is the durable pending report store.
type Store struct {
	path string
	log  *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// New returns a Store backed by the SQLite database at path.
// The backing database is not opened until Init is called.
func New(l *slog.Logger, path string) *Store {
	return &Store{path: path, log: l}
}

// Init opens the backing database and ensures its schema exists. It is
// idempotent and safe to call multiple times; it must complete before any
// other store operation is used.
func (s *Store) Init(ctx context.Context) (err error) {
	defer decorate.OnError(&err, "failed to initialize report store")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return errors.Join(ErrStorageFault, err)
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return errors.Join(ErrStorageFault, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Join(ErrStorageFault, err)
	}

	// WAL keeps the form flow's inserts from blocking on an in-flight sync
	// pass; the busy timeout covers the remaining write/write overlap.
	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`PRAGMA foreign_keys=ON`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return errors.Join(ErrStorageFault, err)
		}
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return errors.Join(ErrStorageFault, err)
	}

	s.db = db
	s.log.Debug("Report store initialized", "path", s.path)
	return nil
}

// Close closes the backing database. It is safe to call on an uninitialized
// store, and to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) database() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.Join(ErrStorageFault, errors.New("store is not initialized"))
	}
	return s.db, nil
}

// Insert appends a new pending report and returns its store-assigned local
// id. The id is monotonic and never reused.
func (s *Store) Insert(ctx context.Context, r report.PendingReport) (int64, error) {
	db, err := s.database()
	if err != nil {
		return 0, err
	}

	symptoms, err := report.EncodeSymptoms(r.Symptoms)
	if err != nil {
		return 0, err
	}

	var lat, lon, acc sql.NullFloat64
	if r.Location != nil {
		lat = sql.NullFloat64{Float64: r.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: r.Location.Longitude, Valid: true}
		acc = sql.NullFloat64{Float64: r.Location.Accuracy, Valid: true}
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO reports (
			report_uid, patient_name, age_group, latitude, longitude, location_accuracy,
			symptoms, onset_date, severity, description, water_source,
			reported_by, reported_by_name, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UID, r.PatientName, r.AgeGroup, lat, lon, acc,
		symptoms, r.OnsetDate, string(r.Severity), r.Description, r.WaterSource,
		r.ReportedBy, r.ReportedByName, r.ClientTimestamp)
	if err != nil {
		return 0, errors.Join(ErrStorageFault, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Join(ErrStorageFault, err)
	}

	s.log.Debug("Inserted pending report", "id", id, "uid", r.UID)
	return id, nil
}

const selectColumns = `
	id, report_uid, patient_name, age_group, latitude, longitude, location_accuracy,
	symptoms, onset_date, severity, description, water_source,
	reported_by, reported_by_name, timestamp, permanent_rejections`

// ListAll returns a snapshot of all pending reports in ascending local id
// order, with the symptom list decoded. Quarantined reports are excluded.
func (s *Store) ListAll(ctx context.Context) ([]report.PendingReport, error) {
	return s.list(ctx, `SELECT`+selectColumns+` FROM reports WHERE quarantined_at IS NULL ORDER BY id ASC`)
}

// ListQuarantined returns all quarantined reports in ascending local id order.
func (s *Store) ListQuarantined(ctx context.Context) ([]report.PendingReport, error) {
	return s.list(ctx, `SELECT`+selectColumns+` FROM reports WHERE quarantined_at IS NOT NULL ORDER BY id ASC`)
}

func (s *Store) list(ctx context.Context, query string) (_ []report.PendingReport, err error) {
	defer decorate.OnError(&err, "failed to list reports")

	db, err := s.database()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Join(ErrStorageFault, err)
	}
	defer rows.Close()

	var reports []report.PendingReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFault, err)
	}

	return reports, nil
}

func scanReport(rows *sql.Rows) (report.PendingReport, error) {
	var r report.PendingReport
	var lat, lon, acc sql.NullFloat64
	var patientName, ageGroup, symptoms, onsetDate, severity sql.NullString
	var description, waterSource, reportedBy, reportedByName, timestamp sql.NullString

	if err := rows.Scan(&r.LocalID, &r.UID, &patientName, &ageGroup, &lat, &lon, &acc,
		&symptoms, &onsetDate, &severity, &description, &waterSource,
		&reportedBy, &reportedByName, &timestamp, &r.PermanentRejections); err != nil {
		return report.PendingReport{}, errors.Join(ErrStorageFault, err)
	}

	r.PatientName = patientName.String
	r.AgeGroup = ageGroup.String
	r.OnsetDate = onsetDate.String
	r.Severity = report.Severity(severity.String)
	r.Description = description.String
	r.WaterSource = waterSource.String
	r.ReportedBy = reportedBy.String
	r.ReportedByName = reportedByName.String
	r.ClientTimestamp = timestamp.String

	if lat.Valid && lon.Valid {
		r.Location = &report.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64, Accuracy: acc.Float64}
	}

	decoded, err := report.DecodeSymptoms(symptoms.String)
	if err != nil {
		return report.PendingReport{}, err
	}
	r.Symptoms = decoded

	return r, nil
}

// DeleteByID removes exactly one report. Deleting an absent id is a no-op,
// so duplicate delete calls after partial failures are harmless.
func (s *Store) DeleteByID(ctx context.Context, id int64) error {
	db, err := s.database()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id); err != nil {
		return errors.Join(ErrStorageFault, err)
	}

	s.log.Debug("Deleted report", "id", id)
	return nil
}

// CountPending returns the number of pending reports. It reflects the same
// data ListAll would return at that instant.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	db, err := s.database()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		return 0, errors.Join(ErrStorageFault, err)
	}
	return count, nil
}

// MarkPermanentRejection increments the permanent rejection counter of a
// report. When the counter reaches threshold, the report is quarantined: it
// stays in the database but no longer appears in the pending set. Returns
// whether the report is now quarantined.
func (s *Store) MarkPermanentRejection(ctx context.Context, id int64, threshold int) (quarantined bool, err error) {
	defer decorate.OnError(&err, "failed to record permanent rejection for report %d", id)

	db, err := s.database()
	if err != nil {
		return false, err
	}

	if _, err := db.ExecContext(ctx, `UPDATE reports SET permanent_rejections = permanent_rejections + 1 WHERE id = ?`, id); err != nil {
		return false, errors.Join(ErrStorageFault, err)
	}

	var rejections int
	err = db.QueryRowContext(ctx, `SELECT permanent_rejections FROM reports WHERE id = ?`, id).Scan(&rejections)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Join(ErrStorageFault, err)
	}

	if threshold <= 0 || rejections < threshold {
		return false, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.ExecContext(ctx, `UPDATE reports SET quarantined_at = ? WHERE id = ? AND quarantined_at IS NULL`, now, id); err != nil {
		return false, errors.Join(ErrStorageFault, err)
	}

	s.log.Warn("Report quarantined after repeated permanent rejections", "id", id, "rejections", rejections)
	return true, nil
}

// ReleaseQuarantined clears the quarantine marker and rejection counter of a
// report, returning it to the pending set.
func (s *Store) ReleaseQuarantined(ctx context.Context, id int64) error {
	return s.updateQuarantined(ctx, id, `UPDATE reports SET quarantined_at = NULL, permanent_rejections = 0 WHERE id = ? AND quarantined_at IS NOT NULL`)
}

// DiscardQuarantined permanently removes a quarantined report. Pending
// reports cannot be discarded this way.
func (s *Store) DiscardQuarantined(ctx context.Context, id int64) error {
	return s.updateQuarantined(ctx, id, `DELETE FROM reports WHERE id = ? AND quarantined_at IS NOT NULL`)
}

func (s *Store) updateQuarantined(ctx context.Context, id int64, query string) error {
	db, err := s.database()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Join(ErrStorageFault, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Join(ErrStorageFault, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotQuarantined, id)
	}
	return nil
}
