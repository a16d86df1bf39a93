package pipeline

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/detect"
	"github.com/banshee-data/roiqp/internal/encoder"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/gop"
	"github.com/banshee-data/roiqp/internal/motion"
)

var testQPs = []int{22, 27, 32, 37}

func testSource(frames int) *Synthetic {
	return &Synthetic{
		Label:   "synth",
		Width:   256,
		Height:  128,
		Frames:  frames,
		Objects: []Object{{Box: geometry.NewBox(40, 30, 100, 90), VX: 2}},
	}
}

func testRunner(t *testing.T) *Runner {
	t.Helper()
	cfg := config.DefaultTuningConfig()
	block := 16
	cfg.BlockSize = &block
	return &Runner{
		Tuning:    cfg,
		Detector:  detect.Threshold{Level: 150, MinArea: 50},
		Estimator: motion.NewBlockMatcher(cfg),
		Encoder:   encoder.NewRateModel(),
		OutDir:    t.TempDir(),
	}
}

func randomAccess(t *testing.T) gop.Structure {
	t.Helper()
	s, err := gop.NewStructure(gop.RandomAccess, 32)
	require.NoError(t, err)
	return s
}

func TestRunSequenceBaseline(t *testing.T) {
	r := testRunner(t)
	res, err := r.RunSequence(context.Background(), testSource(6), Baseline, randomAccess(t), testQPs)
	require.NoError(t, err)
	require.Len(t, res.Rows, len(testQPs))

	assert.Equal(t, "synth", res.Sequence)
	assert.Equal(t, "RA[32]", res.Structure)
	assert.Equal(t, 0, res.Propagation.Detections)
	assert.InDelta(t, 100.0, res.Coverage.Percent[geometry.Background], 1e-9)
	assert.Zero(t, res.TruthIoU, "baseline tracks nothing")
	for i := 1; i < len(res.Rows); i++ {
		assert.Less(t, res.Rows[i].Bitrate, res.Rows[i-1].Bitrate, "bitrate falls as QP rises")
		assert.Less(t, res.Rows[i].PSNRY, res.Rows[i-1].PSNRY)
	}
	for i, row := range res.Rows {
		assert.Equal(t, 1.0, row.MeanRateRatio)
		assert.Equal(t, row.PSNRY, row.ROIPSNR)

		bg := row.QPStats[geometry.Background]
		assert.Equal(t, 256*128*6, bg.Pixels)
		assert.LessOrEqual(t, bg.MinQP, bg.MaxQP)
		assert.Zero(t, row.QPStats[geometry.Core].Pixels)
		if i > 0 {
			assert.Greater(t, bg.MeanQP, res.Rows[i-1].QPStats[geometry.Background].MeanQP)
		}
	}
}

func TestRunSequenceFullPropagates(t *testing.T) {
	r := testRunner(t)
	const n = 12
	full, err := r.RunSequence(context.Background(), testSource(n), Full, randomAccess(t), testQPs)
	require.NoError(t, err)
	roi, err := r.RunSequence(context.Background(), testSource(n), ROIOnly, randomAccess(t), testQPs)
	require.NoError(t, err)

	assert.Equal(t, n, full.Propagation.Frames)
	assert.Equal(t, n, roi.Propagation.Detections, "without propagation every frame is detected")
	assert.Less(t, full.Propagation.Detections, n)
	assert.GreaterOrEqual(t, full.Propagation.Detections, 1)
	require.Len(t, full.Steps, n)
	assert.True(t, full.Steps[0].Detected)

	row := full.Rows[0]
	assert.Greater(t, row.CorePercent, 0.0)
	assert.Greater(t, row.ContextPercent, 0.0)
	assert.Equal(t, full.Propagation.Detections, row.Detections)
	assert.Zero(t, roi.Rows[0].ContextPercent, "flat methods have no context ring")

	assert.Greater(t, roi.TruthIoU, 0.5, "detected boxes sit on the synthetic objects")
	assert.Greater(t, full.TruthIoU, 0.5)
	assert.LessOrEqual(t, full.TruthIoU, 1.0)
}

func TestRunSequenceNormalizedRate(t *testing.T) {
	r := testRunner(t)
	res, err := r.RunSequence(context.Background(), testSource(4), Hierarchical, randomAccess(t), []int{32})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Zero(t, row.UnnormalizedFrames)
	assert.Greater(t, row.ROIPSNR, row.PSNRY, "core blocks are coded finer than the frame average")

	core, bg := row.QPStats[geometry.Core], row.QPStats[geometry.Background]
	require.Positive(t, core.Pixels)
	assert.Less(t, core.MeanQP, bg.MeanQP)
	total := 0
	for _, s := range row.QPStats {
		total += s.Pixels
	}
	assert.Equal(t, 256*128*4, total)
}

func TestRunSequenceDetectorFailureAborts(t *testing.T) {
	r := testRunner(t)
	r.Detector = detect.Func(func(context.Context, image.Image) (geometry.ROISet, error) {
		return nil, errors.New("offline")
	})
	res, err := r.RunSequence(context.Background(), testSource(8), Full, randomAccess(t), testQPs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRetriesExhausted))
	require.NotNil(t, res)
	assert.True(t, res.Failed())
	assert.Empty(t, res.Rows, "an aborted sequence emits no rows")
}

func TestRunSequenceValidation(t *testing.T) {
	r := testRunner(t)
	ctx := context.Background()

	_, err := r.RunSequence(ctx, testSource(2), Baseline, randomAccess(t), nil)
	assert.Error(t, err)

	noDet := testRunner(t)
	noDet.Detector = nil
	_, err = noDet.RunSequence(ctx, testSource(2), Full, randomAccess(t), testQPs)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.RunSequence(cancelled, testSource(2), Baseline, randomAccess(t), testQPs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunSequenceEncoderFailure(t *testing.T) {
	r := testRunner(t)
	r.Encoder = failingEncoder{}
	res, err := r.RunSequence(context.Background(), testSource(2), Baseline, randomAccess(t), testQPs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode synth qp 22")
	assert.True(t, res.Failed())
}

type failingEncoder struct{}

func (failingEncoder) Encode(context.Context, encoder.Job) (encoder.Result, error) {
	return encoder.Result{}, errors.New("boom")
}

func TestRunSequencePassesFramePlans(t *testing.T) {
	r := testRunner(t)
	rec := &recordingEncoder{}
	r.Encoder = rec
	_, err := r.RunSequence(context.Background(), testSource(5), Full, randomAccess(t), []int{30})
	require.NoError(t, err)
	require.Len(t, rec.jobs, 1)

	job := rec.jobs[0]
	assert.Equal(t, filepath.Join(r.OutDir, "synth_full_RA_32_qp30.266"), job.Output)
	assert.Equal(t, 30, job.BaseQP)
	assert.Equal(t, 256, job.Width)
	assert.Equal(t, 30, job.FrameRate)
	require.Len(t, job.Frames, 5)
	assert.Equal(t, gop.FrameI, job.Frames[0].Info.Type)
	for _, fp := range job.Frames {
		require.NotNil(t, fp.QP)
		require.NotNil(t, fp.Importance)
	}
}

type recordingEncoder struct {
	jobs []encoder.Job
}

func (e *recordingEncoder) Encode(_ context.Context, job encoder.Job) (encoder.Result, error) {
	e.jobs = append(e.jobs, job)
	return encoder.Result{Bitrate: 100, PSNRY: 40, Frames: len(job.Frames)}, nil
}

func TestRunSequenceOnFrame(t *testing.T) {
	r := testRunner(t)
	var views []FrameView
	r.OnFrame = func(v FrameView) { views = append(views, v) }
	_, err := r.RunSequence(context.Background(), testSource(4), Full, randomAccess(t), []int{30, 34})
	require.NoError(t, err)

	require.Len(t, views, 4, "one view per frame, not per QP")
	for i, v := range views {
		assert.Equal(t, i, v.Info.Index)
		assert.Equal(t, "synth", v.Sequence)
		assert.Equal(t, gop.RandomAccess, v.Structure.Mode)
		require.NotNil(t, v.Importance)
		assert.NotEmpty(t, v.ROIs)
	}
}
