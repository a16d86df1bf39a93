package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/pipeline"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is one persisted sequence run.
type RunRecord struct {
	RunID       string          `json:"run_id"`
	SweepID     string          `json:"sweep_id"`
	Sequence    string          `json:"sequence"`
	Method      string          `json:"method"`
	Structure   string          `json:"structure"`
	Frames      int             `json:"frames"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Propagation json.RawMessage `json:"propagation,omitempty"`
	Coverage    json.RawMessage `json:"coverage,omitempty"`
	Host        json.RawMessage `json:"host,omitempty"`
	Tuning      json.RawMessage `json:"tuning,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// RunStore persists run records.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullJSON(b json.RawMessage) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Insert stores rec, generating RunID and StartedAt when unset.
func (s *RunStore) Insert(rec *RunRecord) error {
	if rec.RunID == "" {
		rec.RunID = uuid.New().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = StatusRunning
	}
	var completed interface{}
	if rec.CompletedAt != nil {
		completed = rec.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO roiqp_runs (
				run_id, sweep_id, sequence, method, structure, frames, status, error,
				propagation, coverage, host, tuning, started_at, completed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID, rec.SweepID, rec.Sequence, rec.Method, rec.Structure, rec.Frames, rec.Status, nullStr(rec.Error),
			nullJSON(rec.Propagation), nullJSON(rec.Coverage), nullJSON(rec.Host), nullJSON(rec.Tuning),
			rec.StartedAt.UTC().Format(time.RFC3339Nano), completed,
		)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "inserting run %s", rec.RunID)
	}
	return nil
}

// Complete marks a run finished. A non-empty errMsg marks it failed.
func (s *RunStore) Complete(runID string, completedAt time.Time, errMsg string) error {
	status := StatusCompleted
	if errMsg != "" {
		status = StatusFailed
	}
	var n int64
	err := retryOnBusy(func() error {
		res, err := s.db.Exec(`UPDATE roiqp_runs SET status = ?, error = ?, completed_at = ? WHERE run_id = ?`,
			status, nullStr(errMsg), completedAt.UTC().Format(time.RFC3339Nano), runID)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "completing run %s", runID)
	}
	if n == 0 {
		return errors.Newf("run %s not found", runID)
	}
	return nil
}

const runColumns = `run_id, sweep_id, sequence, method, structure, frames, status, error,
	propagation, coverage, host, tuning, started_at, completed_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var r RunRecord
	var errMsg, prop, cov, host, tuning, completed sql.NullString
	var started string
	if err := sc.Scan(&r.RunID, &r.SweepID, &r.Sequence, &r.Method, &r.Structure, &r.Frames, &r.Status, &errMsg,
		&prop, &cov, &host, &tuning, &started, &completed); err != nil {
		return nil, err
	}
	r.Error = errMsg.String
	if prop.Valid {
		r.Propagation = json.RawMessage(prop.String)
	}
	if cov.Valid {
		r.Coverage = json.RawMessage(cov.String)
	}
	if host.Valid {
		r.Host = json.RawMessage(host.String)
	}
	if tuning.Valid {
		r.Tuning = json.RawMessage(tuning.String)
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, errors.Wrapf(err, "parse started_at of %s", r.RunID)
	}
	r.StartedAt = t
	if completed.Valid {
		t, err := time.Parse(time.RFC3339Nano, completed.String)
		if err != nil {
			return nil, errors.Wrapf(err, "parse completed_at of %s", r.RunID)
		}
		r.CompletedAt = &t
	}
	return &r, nil
}

// Get returns one run, or sql.ErrNoRows wrapped when absent.
func (s *RunStore) Get(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM roiqp_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		return nil, errors.Wrapf(err, "get run %s", runID)
	}
	return r, nil
}

// ListBySweep returns the runs of a sweep in start order.
func (s *RunStore) ListBySweep(sweepID string) ([]*RunRecord, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM roiqp_runs WHERE sweep_id = ? ORDER BY started_at, rowid`, sweepID)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()
	var out []*RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RDStore persists rate-distortion rows.
type RDStore struct {
	db *sql.DB
}

// NewRDStore creates an RDStore.
func NewRDStore(db *sql.DB) *RDStore {
	return &RDStore{db: db}
}

// InsertRows stores rows for runID in one transaction.
func (s *RDStore) InsertRows(runID string, rows []pipeline.RDRow) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`
			INSERT INTO roiqp_rd_rows (
				run_id, qp, bitrate, psnr_y, psnr_u, psnr_v, roi_psnr,
				core_percent, context_percent, background_percent,
				unnormalized_frames, mean_rate_ratio, detections, encoding_time_s, qp_stats
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			qs, err := json.Marshal(r.QPStats)
			if err != nil {
				tx.Rollback()
				return errors.Wrap(err, "marshal qp stats")
			}
			if _, err := stmt.Exec(runID, r.QP, r.Bitrate, r.PSNRY, r.PSNRU, r.PSNRV, r.ROIPSNR,
				r.CorePercent, r.ContextPercent, r.BackgroundPercent,
				r.UnnormalizedFrames, r.MeanRateRatio, r.Detections, r.EncodingTime, string(qs)); err != nil {
				tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// ListByRun returns the rows of a run ordered by QP. The run's identity
// columns are filled from roiqp_runs.
func (s *RDStore) ListByRun(runID string) ([]pipeline.RDRow, error) {
	rows, err := s.db.Query(`
		SELECT r.sequence, r.method, r.structure,
		       d.qp, d.bitrate, d.psnr_y, d.psnr_u, d.psnr_v, d.roi_psnr,
		       d.core_percent, d.context_percent, d.background_percent,
		       d.unnormalized_frames, d.mean_rate_ratio, d.detections, d.encoding_time_s, d.qp_stats
		FROM roiqp_rd_rows d JOIN roiqp_runs r ON r.run_id = d.run_id
		WHERE d.run_id = ?
		ORDER BY d.qp`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query rd rows")
	}
	defer rows.Close()
	var out []pipeline.RDRow
	for rows.Next() {
		var r pipeline.RDRow
		var qs sql.NullString
		if err := rows.Scan(&r.Sequence, &r.Method, &r.Structure,
			&r.QP, &r.Bitrate, &r.PSNRY, &r.PSNRU, &r.PSNRV, &r.ROIPSNR,
			&r.CorePercent, &r.ContextPercent, &r.BackgroundPercent,
			&r.UnnormalizedFrames, &r.MeanRateRatio, &r.Detections, &r.EncodingTime, &qs); err != nil {
			return nil, err
		}
		if qs.Valid {
			if err := json.Unmarshal([]byte(qs.String), &r.QPStats); err != nil {
				return nil, errors.Wrapf(err, "decode qp stats of run %s", runID)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
