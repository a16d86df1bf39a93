package sqlite

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roiqp/internal/bdrate"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/pipeline"
	"github.com/banshee-data/roiqp/internal/qp"
	"github.com/banshee-data/roiqp/internal/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMigrates(t *testing.T) {
	db := openTestDB(t)
	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(3), v)
	assert.False(t, dirty)

	// Migrating again is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestOpenMemory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM roiqp_runs`).Scan(&n))
	assert.Zero(t, n)
}

func TestRunStoreLifecycle(t *testing.T) {
	db := openTestDB(t)
	runs := NewRunStore(db.DB)

	rec := &RunRecord{
		SweepID:     "sweep-1",
		Sequence:    "synthetic",
		Method:      "full",
		Structure:   "RA",
		Frames:      12,
		Propagation: json.RawMessage(`{"detections":2}`),
	}
	require.NoError(t, runs.Insert(rec))
	assert.NotEmpty(t, rec.RunID)
	assert.Equal(t, StatusRunning, rec.Status)

	got, err := runs.Get(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, "full", got.Method)
	assert.JSONEq(t, `{"detections":2}`, string(got.Propagation))
	assert.Nil(t, got.CompletedAt)
	assert.WithinDuration(t, rec.StartedAt, got.StartedAt, time.Microsecond)

	require.NoError(t, runs.Complete(rec.RunID, time.Now(), ""))
	got, err = runs.Get(rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	assert.Error(t, runs.Complete("missing", time.Now(), ""))
	_, err = runs.Get("missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRDStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	runs := NewRunStore(db.DB)
	rec := &RunRecord{SweepID: "s", Sequence: "seq", Method: "roi", Structure: "LD"}
	require.NoError(t, runs.Insert(rec))

	rows := []pipeline.RDRow{
		{QP: 32, Bitrate: 800, PSNRY: 35, PSNRU: 41, PSNRV: 41, ROIPSNR: 37, CorePercent: 10, BackgroundPercent: 90, MeanRateRatio: 1, Detections: 4},
		{QP: 22, Bitrate: 3000, PSNRY: 40, PSNRU: 46, PSNRV: 46, ROIPSNR: 42, CorePercent: 10, BackgroundPercent: 90, MeanRateRatio: 1, Detections: 4, UnnormalizedFrames: 1},
	}
	rows[1].QPStats[geometry.Core] = qp.LevelStats{Pixels: 120, MeanQP: 18.5, MinQP: 17, MaxQP: 20, StdQP: 1.25}
	rd := NewRDStore(db.DB)
	require.NoError(t, rd.InsertRows(rec.RunID, rows))

	got, err := rd.ListByRun(rec.RunID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 22, got[0].QP)
	assert.Equal(t, "seq", got[0].Sequence)
	assert.Equal(t, "roi", got[0].Method)
	assert.Equal(t, "LD", got[0].Structure)
	assert.Equal(t, 1, got[0].UnnormalizedFrames)
	assert.Equal(t, 800.0, got[1].Bitrate)
	assert.Equal(t, rows[1].QPStats, got[0].QPStats)
	assert.Zero(t, got[1].QPStats[geometry.Core].Pixels)
}

func TestRDStoreReadsRowsWithoutQPStats(t *testing.T) {
	db := openTestDB(t)
	runs := NewRunStore(db.DB)
	rec := &RunRecord{SweepID: "s", Sequence: "seq", Method: "baseline", Structure: "AI"}
	require.NoError(t, runs.Insert(rec))
	_, err := db.Exec(`
		INSERT INTO roiqp_rd_rows (
			run_id, qp, bitrate, psnr_y, psnr_u, psnr_v, roi_psnr,
			core_percent, context_percent, background_percent,
			unnormalized_frames, mean_rate_ratio, detections, encoding_time_s
		) VALUES (?, 27, 1000, 36, 40, 40, 36, 0, 0, 100, 0, 1, 0, 0.5)`, rec.RunID)
	require.NoError(t, err)

	got, err := NewRDStore(db.DB).ListByRun(rec.RunID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1000.0, got[0].Bitrate)
	assert.Zero(t, got[0].QPStats)
}

func TestEvaluationStoreKeepsReasons(t *testing.T) {
	db := openTestDB(t)
	store := NewEvaluationStore(db.DB)

	e := &Evaluation{SweepID: "s", Comparison: pipeline.Comparison{
		Sequence: "seq", Structure: "RA", Anchor: "baseline", Test: "full",
		BDRate:     bdrate.Result{Valid: true, Value: -12.5, Mode: bdrate.ModeRate},
		BDPSNR:     bdrate.Result{Mode: bdrate.ModeMetric, Reason: bdrate.ReasonNoOverlap},
		BDRateROI:  bdrate.Result{Valid: true, Value: -20, Mode: bdrate.ModeRate},
		TimeSaving: 5,
	}}
	require.NoError(t, store.Insert(e))
	require.NoError(t, store.Insert(&Evaluation{SweepID: "other"}))

	got, err := store.ListBySweep("s")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e.EvaluationID, got[0].EvaluationID)
	assert.Equal(t, e.BDRate, got[0].BDRate)
	assert.Equal(t, e.BDRateROI, got[0].BDRateROI)
	assert.False(t, got[0].BDPSNR.Valid)
	assert.Equal(t, bdrate.ReasonNoOverlap, got[0].BDPSNR.Reason)
	assert.Equal(t, "N/A (no overlap)", got[0].BDPSNR.String())
	assert.Equal(t, 5.0, got[0].TimeSaving)
}

func TestRecorderSaveSweep(t *testing.T) {
	db := openTestDB(t)
	rec := NewRecorder(db)
	rec.Host = json.RawMessage(`{"hostname":"bench"}`)
	started := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(started.Add(3 * time.Minute))
	rec.Clock = clock

	ok := &pipeline.SequenceResult{
		Sequence: "seq", Method: pipeline.Full, Structure: "RA", Frames: 8,
		Rows: []pipeline.RDRow{{Sequence: "seq", Method: "full", Structure: "RA", QP: 27, Bitrate: 1200, PSNRY: 38}},
	}
	failErr := errors.New("detection retries exhausted")
	failed := &pipeline.SequenceResult{
		Sequence: "seq", Method: pipeline.ROIOnly, Structure: "RA",
		Err: failErr, Error: failErr.Error(),
	}
	cmp := pipeline.Comparison{Sequence: "seq", Structure: "RA", Anchor: "baseline", Test: "full",
		BDRate: bdrate.Result{Reason: bdrate.ReasonInsufficientPoints}}

	require.NoError(t, rec.SaveSweep([]*pipeline.SequenceResult{ok, nil, failed}, []pipeline.Comparison{cmp}, started))

	runs, err := rec.Runs.ListBySweep(rec.SweepID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, StatusCompleted, runs[0].Status)
	assert.True(t, runs[0].StartedAt.Equal(started))
	require.NotNil(t, runs[0].CompletedAt)
	assert.True(t, runs[0].CompletedAt.Equal(started.Add(3*time.Minute)))
	assert.JSONEq(t, `{"hostname":"bench"}`, string(runs[0].Host))
	assert.Equal(t, StatusFailed, runs[1].Status)
	assert.Equal(t, "detection retries exhausted", runs[1].Error)

	rows, err := rec.RD.ListByRun(runs[0].RunID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	rows, err = rec.RD.ListByRun(runs[1].RunID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	evals, err := rec.Evaluations.ListBySweep(rec.SweepID)
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, bdrate.ReasonInsufficientPoints, evals[0].BDRate.Reason)
	assert.Equal(t, clock.Now().UnixNano(), evals[0].CreatedAt)
}
