package sqlite

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/roiqp/internal/bdrate"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/pipeline"
)

// Evaluation is a persisted BD comparison.
type Evaluation struct {
	EvaluationID string `json:"evaluation_id"`
	SweepID      string `json:"sweep_id"`
	pipeline.Comparison
	CreatedAt int64 `json:"created_at"`
}

// EvaluationStore persists comparisons.
type EvaluationStore struct {
	db *sql.DB
}

// NewEvaluationStore creates an EvaluationStore.
func NewEvaluationStore(db *sql.DB) *EvaluationStore {
	return &EvaluationStore{db: db}
}

// resultColumns splits a BD result into its nullable value and reason.
func resultColumns(r bdrate.Result) (interface{}, interface{}) {
	if !r.Valid {
		return nil, nullStr(string(r.Reason))
	}
	return r.Value, nil
}

func resultFrom(v sql.NullFloat64, reason sql.NullString, mode bdrate.Mode) bdrate.Result {
	if v.Valid {
		return bdrate.Result{Valid: true, Value: v.Float64, Mode: mode}
	}
	return bdrate.Result{Mode: mode, Reason: bdrate.Reason(reason.String)}
}

// Insert stores e, generating the ID and timestamp when unset.
func (s *EvaluationStore) Insert(e *Evaluation) error {
	if e.EvaluationID == "" {
		e.EvaluationID = uuid.New().String()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixNano()
	}
	rate, rateReason := resultColumns(e.BDRate)
	psnr, psnrReason := resultColumns(e.BDPSNR)
	roi, roiReason := resultColumns(e.BDRateROI)
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO roiqp_evaluations (
				evaluation_id, sweep_id, sequence, structure, anchor, test,
				bd_rate, bd_rate_reason, bd_psnr, bd_psnr_reason, bd_rate_roi, bd_rate_roi_reason,
				time_saving, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.EvaluationID, e.SweepID, e.Sequence, e.Structure, e.Anchor, e.Test,
			rate, rateReason, psnr, psnrReason, roi, roiReason,
			e.TimeSaving, e.CreatedAt,
		)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "inserting evaluation %s", e.EvaluationID)
	}
	return nil
}

// ListBySweep returns the evaluations of a sweep in insertion order.
func (s *EvaluationStore) ListBySweep(sweepID string) ([]*Evaluation, error) {
	rows, err := s.db.Query(`
		SELECT evaluation_id, sweep_id, sequence, structure, anchor, test,
		       bd_rate, bd_rate_reason, bd_psnr, bd_psnr_reason, bd_rate_roi, bd_rate_roi_reason,
		       time_saving, created_at
		FROM roiqp_evaluations
		WHERE sweep_id = ?
		ORDER BY created_at, rowid`, sweepID)
	if err != nil {
		return nil, errors.Wrap(err, "query evaluations")
	}
	defer rows.Close()

	var out []*Evaluation
	for rows.Next() {
		var e Evaluation
		var rate, psnr, roi sql.NullFloat64
		var rateReason, psnrReason, roiReason sql.NullString
		if err := rows.Scan(&e.EvaluationID, &e.SweepID, &e.Sequence, &e.Structure, &e.Anchor, &e.Test,
			&rate, &rateReason, &psnr, &psnrReason, &roi, &roiReason,
			&e.TimeSaving, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.BDRate = resultFrom(rate, rateReason, bdrate.ModeRate)
		e.BDPSNR = resultFrom(psnr, psnrReason, bdrate.ModeMetric)
		e.BDRateROI = resultFrom(roi, roiReason, bdrate.ModeRate)
		out = append(out, &e)
	}
	return out, rows.Err()
}
