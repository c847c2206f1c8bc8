// Package pathstore keeps the propagation paths of a run in a SQLite
// database so they can be replayed or inspected after the run. Paths are
// stored in their compact binary encoding, one row per path.
package pathstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/noisemap/internal/noise"
	"github.com/banshee-data/noisemap/internal/noise/path"
)

// ErrUnknownRun is returned when a run id is not in the store.
var ErrUnknownRun = errors.New("pathstore: unknown run")

// Store is a SQLite database of runs and their paths.
type Store struct {
	*sql.DB
}

// Run describes one stored run.
type Run struct {
	ID            string
	Label         string
	ConfigJSON    string
	CreatedAt     time.Time
	CompletedAt   *time.Time
	ReceiverCount int
	PathCount     int
}

// Row is one stored path with the ids it was found for.
type Row struct {
	ReceiverID int
	SourceID   int
	Path       *path.PropagationPath
}

// Open opens or creates the database at file and migrates it to the latest
// schema.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, err
	}
	// One writer at a time; workers queue on the pool instead of failing
	// with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// CreateRun registers a new run and returns its id. cfg is stored as JSON
// when not nil.
func (s *Store) CreateRun(label string, cfg any) (string, error) {
	var cfgJSON sql.NullString
	if cfg != nil {
		b, err := json.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("failed to encode run config: %w", err)
		}
		cfgJSON = sql.NullString{String: string(b), Valid: true}
	}
	id := uuid.New().String()
	if _, err := s.Exec(`INSERT INTO runs (run_id, label, config_json) VALUES (?, ?, ?)`, id, label, cfgJSON); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	noise.Opsf("pathstore: created run %s (%s)", id, label)
	return id, nil
}

// CompleteRun stamps the run as finished and refreshes its counters.
func (s *Store) CompleteRun(runID string) error {
	res, err := s.Exec(`
		UPDATE runs SET
			completed_at   = CURRENT_TIMESTAMP,
			path_count     = (SELECT COUNT(*) FROM paths WHERE run_id = ?1),
			receiver_count = (SELECT COUNT(DISTINCT receiver_id) FROM paths WHERE run_id = ?1)
		WHERE run_id = ?1`, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}

// Runs lists the stored runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.Query(`
		SELECT run_id, COALESCE(label, ''), COALESCE(config_json, ''),
			CAST(strftime('%s', created_at) AS INTEGER),
			CAST(strftime('%s', completed_at) AS INTEGER),
			receiver_count, path_count
		FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created int64
		var completed sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Label, &r.ConfigJSON, &created, &completed, &r.ReceiverCount, &r.PathCount); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		if completed.Valid {
			t := time.Unix(completed.Int64, 0).UTC()
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SavePaths stores the paths of one receiver in a single transaction.
func (s *Store) SavePaths(runID string, receiverID int, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO paths (run_id, receiver_id, source_id, kind, data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(runID, receiverID, r.SourceID, int(r.Path.Kind), path.Marshal(r.Path)); err != nil {
			return fmt.Errorf("failed to insert path of receiver %d: %w", receiverID, err)
		}
	}
	return tx.Commit()
}

// Paths returns the stored paths of a receiver in the order they were
// found. The paths are initialised and ready for evaluation.
func (s *Store) Paths(runID string, receiverID int) ([]Row, error) {
	return s.query(`SELECT receiver_id, source_id, data FROM paths WHERE run_id = ? AND receiver_id = ? ORDER BY path_id`,
		runID, receiverID)
}

// AllPaths returns every path of a run ordered by receiver.
func (s *Store) AllPaths(runID string) ([]Row, error) {
	return s.query(`SELECT receiver_id, source_id, data FROM paths WHERE run_id = ? ORDER BY receiver_id, path_id`, runID)
}

func (s *Store) query(q string, args ...any) ([]Row, error) {
	rows, err := s.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var data []byte
		if err := rows.Scan(&r.ReceiverID, &r.SourceID, &data); err != nil {
			return nil, err
		}
		p, err := path.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("receiver %d: %w", r.ReceiverID, err)
		}
		p.Init()
		r.Path = p
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its paths.
func (s *Store) DeleteRun(runID string) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM paths WHERE run_id = ?`, runID); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return tx.Commit()
}
