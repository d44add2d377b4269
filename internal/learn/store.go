package learn

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	apperr "github.com/gamewatch/gamewatch/internal/errors"
	"github.com/gamewatch/gamewatch/internal/imaging"
)

const schema = `
CREATE TABLE IF NOT EXISTS validations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	alert      TEXT NOT NULL,
	confidence REAL NOT NULL,
	accepted   INTEGER NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_validations_alert ON validations(alert);

CREATE TABLE IF NOT EXISTS fp_patterns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	alert      TEXT NOT NULL,
	signature  TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_fp_patterns_alert ON fp_patterns(alert);

CREATE TABLE IF NOT EXISTS threshold_adjustments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	alert      TEXT NOT NULL,
	def        REAL NOT NULL,
	adjusted   REAL NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Validation is one persisted accept/reject decision.
type Validation struct {
	Confidence float64
	Accepted   bool
}

// Store persists feedback history in a local sqlite database so learned
// suppression survives restarts.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the learning database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStore, fmt.Sprintf("open %q", path))
	}
	// One writer at a time keeps sqlite's locking simple.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.Wrap(err, apperr.KindStore, "migrate schema")
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// InsertValidation appends one accept/reject decision.
func (s *Store) InsertValidation(alert string, confidence float64, accepted bool) error {
	_, err := s.db.Exec(
		"INSERT INTO validations (alert, confidence, accepted) VALUES (?, ?, ?)",
		alert, confidence, accepted)
	return err
}

// InsertPattern appends one rejected-region signature and trims the alert's
// stored patterns to the retention bound.
func (s *Store) InsertPattern(alert string, sig imaging.Signature) error {
	blob, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(
		"INSERT INTO fp_patterns (alert, signature) VALUES (?, ?)",
		alert, string(blob)); err != nil {
		return err
	}
	_, err = s.db.Exec(`
		DELETE FROM fp_patterns WHERE alert = ? AND id NOT IN (
			SELECT id FROM fp_patterns WHERE alert = ? ORDER BY id DESC LIMIT ?
		)`, alert, alert, MaxPatternsPerAlert)
	return err
}

// RecordAdjustment logs one threshold change for the dashboard's history view.
func (s *Store) RecordAdjustment(alert string, def, adjusted float64) error {
	_, err := s.db.Exec(
		"INSERT INTO threshold_adjustments (alert, def, adjusted) VALUES (?, ?, ?)",
		alert, def, adjusted)
	return err
}

// LoadPatterns returns every alert's stored signatures, oldest first.
func (s *Store) LoadPatterns() (map[string][]imaging.Signature, error) {
	rows, err := s.db.Query("SELECT alert, signature FROM fp_patterns ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]imaging.Signature)
	for rows.Next() {
		var alert, blob string
		if err := rows.Scan(&alert, &blob); err != nil {
			return nil, err
		}
		var sig imaging.Signature
		if err := json.Unmarshal([]byte(blob), &sig); err != nil {
			return nil, fmt.Errorf("learn: corrupt signature for %q: %w", alert, err)
		}
		out[alert] = append(out[alert], sig)
	}
	for alert, sigs := range out {
		if len(sigs) > MaxPatternsPerAlert {
			out[alert] = sigs[len(sigs)-MaxPatternsPerAlert:]
		}
	}
	return out, rows.Err()
}

// LoadValidations returns every alert's decision history, oldest first.
func (s *Store) LoadValidations() (map[string][]Validation, error) {
	rows, err := s.db.Query("SELECT alert, confidence, accepted FROM validations ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Validation)
	for rows.Next() {
		var (
			alert      string
			confidence float64
			accepted   bool
		)
		if err := rows.Scan(&alert, &confidence, &accepted); err != nil {
			return nil, err
		}
		out[alert] = append(out[alert], Validation{Confidence: confidence, Accepted: accepted})
	}
	return out, rows.Err()
}
