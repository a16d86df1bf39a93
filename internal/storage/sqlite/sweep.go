package sqlite

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/pipeline"
	"github.com/banshee-data/roiqp/internal/timeutil"
)

// Recorder writes a whole sweep through the three stores.
type Recorder struct {
	SweepID     string
	Runs        *RunStore
	RD          *RDStore
	Evaluations *EvaluationStore
	// Host and Tuning are attached to every run record.
	Host   json.RawMessage
	Tuning json.RawMessage
	// Clock stamps completion and evaluation times.
	Clock timeutil.Clock
}

// NewRecorder returns a Recorder on db with a fresh sweep ID.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{
		SweepID:     uuid.New().String(),
		Runs:        NewRunStore(db.DB),
		RD:          NewRDStore(db.DB),
		Evaluations: NewEvaluationStore(db.DB),
		Clock:       timeutil.RealClock{},
	}
}

// SaveResult persists one sequence result and its rows, returning the run
// ID. Failed sequences are stored with their error and no rows.
func (r *Recorder) SaveResult(res *pipeline.SequenceResult, started time.Time) (string, error) {
	prop, err := json.Marshal(res.Propagation)
	if err != nil {
		return "", errors.Wrap(err, "marshal propagation stats")
	}
	cov, err := json.Marshal(res.Coverage)
	if err != nil {
		return "", errors.Wrap(err, "marshal coverage")
	}
	rec := &RunRecord{
		SweepID:     r.SweepID,
		Sequence:    res.Sequence,
		Method:      res.Method.Name,
		Structure:   res.Structure,
		Frames:      res.Frames,
		Propagation: prop,
		Coverage:    cov,
		Host:        r.Host,
		Tuning:      r.Tuning,
		StartedAt:   started,
	}
	if err := r.Runs.Insert(rec); err != nil {
		return "", err
	}
	if !res.Failed() {
		if err := r.RD.InsertRows(rec.RunID, res.Rows); err != nil {
			return rec.RunID, errors.Wrapf(err, "rows of run %s", rec.RunID)
		}
	}
	return rec.RunID, r.Runs.Complete(rec.RunID, r.Clock.Now(), res.Error)
}

// SaveSweep persists every non-nil result and comparison.
func (r *Recorder) SaveSweep(results []*pipeline.SequenceResult, comparisons []pipeline.Comparison, started time.Time) error {
	for _, res := range results {
		if res == nil {
			continue
		}
		if _, err := r.SaveResult(res, started); err != nil {
			return err
		}
	}
	for _, c := range comparisons {
		e := &Evaluation{SweepID: r.SweepID, Comparison: c, CreatedAt: r.Clock.Now().UnixNano()}
		if err := r.Evaluations.Insert(e); err != nil {
			return err
		}
	}
	return nil
}
