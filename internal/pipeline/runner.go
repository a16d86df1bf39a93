package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/encoder"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/geometry"
	"github.com/banshee-data/roiqp/internal/gop"
	"github.com/banshee-data/roiqp/internal/hierarchy"
	"github.com/banshee-data/roiqp/internal/monitoring"
	"github.com/banshee-data/roiqp/internal/motion"
	"github.com/banshee-data/roiqp/internal/propagation"
	"github.com/banshee-data/roiqp/internal/qp"
	"github.com/banshee-data/roiqp/internal/security"
)

// Runner holds the collaborators shared by every sequence of a sweep. All
// of them must be safe for concurrent use; per-sequence state lives inside
// RunSequence.
type Runner struct {
	Tuning    *config.TuningConfig
	Detector  propagation.Detector
	Estimator motion.Estimator
	Encoder   encoder.Encoder
	// OutDir receives bitstreams and QP map files. Defaults to os.TempDir().
	OutDir    string
	FrameRate int
	// OnFrame, when set, is called with every frame's importance map. It is
	// called from the sweep workers concurrently.
	OnFrame func(FrameView)
}

// FrameView is the per-frame state passed to Runner.OnFrame.
type FrameView struct {
	Sequence   string
	Method     Method
	Structure  gop.Structure
	Info       gop.FrameInfo
	Frame      image.Image
	ROIs       geometry.ROISet
	Importance *geometry.ImportanceMap
}

// RDRow is one rate-distortion operating point.
type RDRow struct {
	Sequence  string  `json:"sequence"`
	Method    string  `json:"method"`
	Structure string  `json:"structure"`
	QP        int     `json:"qp"`
	Bitrate   float64 `json:"bitrate"`
	PSNRY     float64 `json:"psnr_y"`
	PSNRU     float64 `json:"psnr_u"`
	PSNRV     float64 `json:"psnr_v"`
	ROIPSNR   float64 `json:"roi_psnr"`

	Coverage          string  `json:"coverage"`
	CorePercent       float64 `json:"core_percent"`
	ContextPercent    float64 `json:"context_percent"`
	BackgroundPercent float64 `json:"background_percent"`

	UnnormalizedFrames int     `json:"unnormalized_frames"`
	MeanRateRatio      float64 `json:"mean_rate_ratio"`
	Detections         int     `json:"detections"`
	EncodingTime       float64 `json:"encoding_time_s"`

	// QPStats is the block QP distribution per level, pooled over every
	// frame of the run.
	QPStats [geometry.NumLevels]qp.LevelStats `json:"qp_stats"`
}

// SequenceResult is everything produced for one (sequence, method,
// structure) job.
type SequenceResult struct {
	Sequence    string               `json:"sequence"`
	Method      Method               `json:"method"`
	Structure   string               `json:"structure"`
	Frames      int                  `json:"frames"`
	Rows        []RDRow              `json:"rows"`
	Propagation propagation.Stats    `json:"propagation"`
	Coverage    hierarchy.Coverage   `json:"coverage"`
	// TruthIoU is the mean best-match IoU of the tracked ROIs against the
	// source's known object boxes. Zero when the source has none.
	TruthIoU    float64              `json:"truth_iou,omitempty"`
	Steps       []propagation.Result `json:"-"`
	Err         error                `json:"-"`
	Error       string               `json:"error,omitempty"`
}

// Failed reports whether the sequence was aborted.
func (r *SequenceResult) Failed() bool { return r.Err != nil }

// perQP accumulates the frame plans for one base QP.
type perQP struct {
	base         int
	plans        []encoder.FramePlan
	unnormalized int
	rateRatio    float64
	qpStats      [geometry.NumLevels]qp.LevelStats
}

// RunSequence runs one method over src and encodes it at every base QP.
// ctx is only consulted before the first frame: once started, a sequence
// runs to completion or to a sequence-level failure.
func (r *Runner) RunSequence(ctx context.Context, src Source, m Method, structure gop.Structure, baseQPs []int) (*SequenceResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(baseQPs) == 0 {
		return nil, errors.New("no base QPs")
	}
	if r.Encoder == nil {
		return nil, errors.New("no encoder configured")
	}
	if m.ROI && r.Detector == nil {
		return nil, errors.Newf("method %s needs a detector", m.Name)
	}
	runCtx := context.WithoutCancel(ctx)
	tuning := r.Tuning
	if tuning == nil {
		tuning = config.DefaultTuningConfig()
	}

	total := src.Len()
	infos, err := structure.Generate(total)
	if err != nil {
		return nil, err
	}
	w, h := src.Size()
	res := &SequenceResult{
		Sequence:  src.Name(),
		Method:    m,
		Structure: structure.String(),
		Frames:    total,
	}

	var prop *propagation.Propagator
	if m.ROI {
		pcfg := propagation.ConfigFromTuning(tuning)
		if !m.Propagate {
			pcfg.MaxFramesSinceDetection = 0
		}
		prop = propagation.New(pcfg, r.Detector)
	}
	hcfg := hierarchy.ConfigFromTuning(tuning)
	if !m.Hierarchical {
		hcfg.BaseRingRatio, hcfg.RingMin, hcfg.RingMax = 0, 0, 0
	}
	mapper := hierarchy.NewMapper(hcfg)
	smooth := &importanceWindow{size: tuning.GetImportanceWindow()}
	ctrl := qp.NewController(qp.ConfigFromTuning(tuning))
	qpMin, qpMax := ctrl.Config().QPMin, ctrl.Config().QPMax

	runs := make([]*perQP, len(baseQPs))
	for k, q := range baseQPs {
		runs[k] = &perQP{base: q, plans: make([]encoder.FramePlan, 0, total)}
	}

	truth, _ := src.(truthSource)
	var iouSum float64
	var iouN int

	var prev image.Image
	for i, info := range infos {
		frame, err := src.Frame(i)
		if err != nil {
			return r.fail(res, errors.Wrapf(err, "%s frame %d", src.Name(), i))
		}
		gray := geometry.ToGray(frame)

		var rois geometry.ROISet
		var field *geometry.MotionField
		if prop != nil {
			if m.Propagate && prev != nil && r.Estimator != nil {
				field, err = r.Estimator.Estimate(runCtx, prev, gray)
				switch {
				case errors.IsMotionUnavailable(err):
					monitoring.Debugf("%s frame %d: %v", src.Name(), i, err)
					field = nil
				case err != nil:
					monitoring.Logf("%s frame %d: motion estimation failed, treating as unavailable: %v", src.Name(), i, err)
					field = nil
				default:
					s := motion.Summarize(field)
					monitoring.Debugf("%s frame %d: motion mean %.2f max %.2f var %.1f px", src.Name(), i, s.MeanMagnitude, s.MaxMagnitude, s.Variance)
				}
			}
			step, err := prop.Step(runCtx, propagation.Input{
				Index:      i,
				Frame:      gray,
				Motion:     field,
				IsKeyframe: info.IsKeyframe,
			})
			if err != nil {
				return r.fail(res, errors.Wrapf(err, "%s frame %d", src.Name(), i))
			}
			rois = step.ROIs
			res.Steps = append(res.Steps, step)
			if truth != nil {
				s, n := matchTruth(truth.Truth(i), rois)
				iouSum += s
				iouN += n
			}
		}

		boxMotion := hierarchy.BoxMotion(rois, field)
		imp, err := smooth.push(mapper.Generate(w, h, rois, boxMotion))
		if err != nil {
			return r.fail(res, errors.Wrapf(err, "%s frame %d", src.Name(), i))
		}
		res.Coverage.Add(hierarchy.LevelCoverage(imp))
		if r.OnFrame != nil {
			r.OnFrame(FrameView{
				Sequence:   src.Name(),
				Method:     m,
				Structure:  structure,
				Info:       info,
				Frame:      frame,
				ROIs:       rois,
				Importance: imp,
			})
		}

		for _, run := range runs {
			plan := encoder.FramePlan{Info: info, Importance: imp}
			frameStats := qp.UniformStats(imp, min(max(run.base+info.QPOffset, qpMin), qpMax))
			if m.ROI {
				fq, err := ctrl.Generate(gray, imp, rois, boxMotion, run.base+info.QPOffset)
				if err != nil {
					return r.fail(res, errors.Wrapf(err, "%s frame %d qp %d", src.Name(), i, run.base))
				}
				plan.QP = fq.Map
				if fq.Unnormalized() {
					run.unnormalized++
				}
				run.rateRatio += fq.RateRatio
				if frameStats, err = qp.Stats(fq.Map, imp); err != nil {
					return r.fail(res, errors.Wrapf(err, "%s frame %d qp %d", src.Name(), i, run.base))
				}
			}
			for l := range frameStats {
				run.qpStats[l] = run.qpStats[l].Merge(frameStats[l])
			}
			run.plans = append(run.plans, plan)
		}
		prev = gray
	}
	if prop != nil {
		res.Propagation = prop.Stats()
	}
	if iouN > 0 {
		res.TruthIoU = iouSum / float64(iouN)
		monitoring.Debugf("%s %s: mean truth IoU %.3f over %d boxes", src.Name(), m.Name, res.TruthIoU, iouN)
	}

	for _, run := range runs {
		row, err := r.encode(runCtx, src, m, structure, run, res)
		if err != nil {
			return r.fail(res, err)
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func (r *Runner) fail(res *SequenceResult, err error) (*SequenceResult, error) {
	res.Err = err
	res.Error = err.Error()
	res.Rows = nil
	return res, err
}

func (r *Runner) encode(ctx context.Context, src Source, m Method, structure gop.Structure, run *perQP, res *SequenceResult) (RDRow, error) {
	w, h := src.Size()
	outDir := r.OutDir
	if outDir == "" {
		outDir = os.TempDir()
	}
	fps := r.FrameRate
	if fps <= 0 {
		fps = 30
	}
	output, err := security.OutputPath(outDir, ".266", src.Name(), m.Name, structure.String(), fmt.Sprintf("qp%d", run.base))
	if err != nil {
		return RDRow{}, err
	}
	job := encoder.Job{
		Sequence:  src.Name(),
		Output:    output,
		Width:     w,
		Height:    h,
		FrameRate: fps,
		Structure: structure,
		BaseQP:    run.base,
		Frames:    run.plans,
	}
	if fb, ok := src.(fileBacked); ok {
		job.Input = fb.Path()
	}

	start := time.Now()
	out, err := r.Encoder.Encode(ctx, job)
	if err != nil {
		return RDRow{}, errors.Wrapf(err, "encode %s qp %d", src.Name(), run.base)
	}
	elapsed := out.EncodingTime
	if elapsed == 0 {
		elapsed = time.Since(start)
	}
	monitoring.Logf("%s %s %s qp=%d: %.1f kbps, Y-PSNR %.2f dB", src.Name(), m.Name, structure, run.base, out.Bitrate, out.PSNRY)

	row := RDRow{
		Sequence:           src.Name(),
		Method:             m.Name,
		Structure:          structure.String(),
		QP:                 run.base,
		Bitrate:            out.Bitrate,
		PSNRY:              out.PSNRY,
		PSNRU:              out.PSNRU,
		PSNRV:              out.PSNRV,
		ROIPSNR:            out.ROIPSNR,
		Coverage:           res.Coverage.String(),
		CorePercent:        res.Coverage.Percent[geometry.Core],
		ContextPercent:     res.Coverage.Percent[geometry.Context],
		BackgroundPercent:  res.Coverage.Percent[geometry.Background],
		UnnormalizedFrames: run.unnormalized,
		MeanRateRatio:      1,
		Detections:         res.Propagation.Detections,
		EncodingTime:       elapsed.Seconds(),
		QPStats:            run.qpStats,
	}
	if m.ROI && len(run.plans) > 0 {
		row.MeanRateRatio = run.rateRatio / float64(len(run.plans))
	}
	return row, nil
}
