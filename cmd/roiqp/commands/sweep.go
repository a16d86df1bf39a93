package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/banshee-data/roiqp/internal/bdrate"
	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/detect"
	"github.com/banshee-data/roiqp/internal/encoder"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/gop"
	"github.com/banshee-data/roiqp/internal/hostinfo"
	"github.com/banshee-data/roiqp/internal/monitoring"
	"github.com/banshee-data/roiqp/internal/motion"
	"github.com/banshee-data/roiqp/internal/pipeline"
	"github.com/banshee-data/roiqp/internal/report"
	"github.com/banshee-data/roiqp/internal/security"
	"github.com/banshee-data/roiqp/internal/storage/sqlite"
)

// NewSweepCmd returns the command encoding every (sequence, structure,
// method, QP) combination and evaluating the methods against the anchor.
func NewSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run an ROI QP sweep and evaluate it",
		Long: `Run every method on every input sequence and coding structure at each base
QP, then compute BD-Rate, BD-PSNR and the ROI BD-Rate against the anchor.

Inputs are raw I420 files (--yuv with --size), image directories such as
MOT17 img1 folders (--images), or a generated sequence (--synthetic).
Without any input a 32-frame synthetic sequence is used.

Reports are written to --out: rd.csv, bdrate.csv, bdrate.md, results.json,
rd.html and, with --plots, one PNG per sequence and structure. With --db the
sweep is also recorded in SQLite.`,
		RunE: runSweep,
	}
	f := cmd.Flags()
	f.StringSlice("yuv", nil, "Raw I420 input files")
	f.String("size", "", "Frame size of the --yuv inputs, WIDTHxHEIGHT")
	f.StringSlice("images", nil, "Directories of numbered JPEG or PNG frames")
	f.Int("synthetic", 0, "Add a generated sequence with this many frames")
	f.String("methods", "baseline,roi,temporal,hierarchical,full", "Methods to run")
	f.String("structures", "", "Coding structures, e.g. AI,RA,LD (default from tuning)")
	f.String("qps", "", "Base QPs, e.g. 22,27,32,37 (default from tuning)")
	f.String("encoder", "model", "Encoder: model or vvenc")
	f.Int("fps", 30, "Frame rate passed to the encoder")
	f.Int("workers", 0, "Concurrent sequences (default from tuning, 0 for one per CPU)")
	f.String("anchor", pipeline.Baseline.Name, "Method the others are compared against")
	f.Bool("sampled", false, "Integrate BD deltas on a sampled grid instead of analytically")
	f.StringP("out", "o", "results", "Output directory")
	f.String("db", "", "SQLite database recording the sweep")
	f.Bool("plots", true, "Write RD plots as PNG")
	f.Int("overlay-every", 0, "Save an importance overlay every N frames (0 disables)")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	started := time.Now()
	cfg, err := loadTuning()
	if err != nil {
		return err
	}

	sources, closeSources, err := openSources()
	if err != nil {
		return err
	}
	defer closeSources()

	methods, err := pipeline.ParseMethods(settings.GetString("methods"))
	if err != nil {
		return err
	}
	structures, err := parseStructures(cfg, settings.GetString("structures"))
	if err != nil {
		return err
	}
	qps := cfg.GetQPValues()
	if s := settings.GetString("qps"); s != "" {
		if qps, err = parseInts(s); err != nil {
			return err
		}
	}
	workers := cfg.GetWorkers()
	if w := settings.GetInt("workers"); w > 0 {
		workers = w
	}

	out := settings.GetString("out")
	bitstreams := filepath.Join(out, "bitstreams")
	if err := os.MkdirAll(bitstreams, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	det, err := detect.FromTuning(cfg, nil)
	if err != nil {
		return err
	}
	if needsDetector(methods) {
		if err := detect.CheckHealth(ctx, det); err != nil {
			return errors.WithHint(err, "start the inference service or unset detector_endpoint to use the built-in detector")
		}
	}
	enc, err := newEncoder(ctx, cfg, settings.GetString("encoder"))
	if err != nil {
		return err
	}
	runner := &pipeline.Runner{
		Tuning:    cfg,
		Detector:  det,
		Estimator: motion.NewBlockMatcher(cfg),
		Encoder:   enc,
		OutDir:    bitstreams,
		FrameRate: settings.GetInt("fps"),
	}
	if every := settings.GetInt("overlay-every"); every > 0 {
		dir := filepath.Join(out, "overlays")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create overlay directory")
		}
		runner.OnFrame = overlayWriter(dir, every)
	}

	jobs := pipeline.Jobs(sources, methods, structures, qps)
	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Running %d sequences at %d QPs", len(jobs), len(qps)))
	results, err := runner.Sweep(ctx, jobs, workers)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	failed := 0
	for _, r := range results {
		if r != nil && r.Failed() {
			failed++
		}
	}
	spinner.Success(fmt.Sprintf("Encoded %d sequences in %s", len(results)-failed, time.Since(started).Round(time.Millisecond)))
	if failed > 0 {
		pterm.Warning.Printf("%d sequences failed, see results.json\n", failed)
	}

	integration := bdrate.Analytic
	if settings.GetBool("sampled") {
		integration = bdrate.Sampled
	}
	rows := pipeline.Rows(results)
	comparisons := pipeline.CompareAll(rows, settings.GetString("anchor"), integration)

	if err := writeReports(out, results, rows, comparisons, settings.GetBool("plots")); err != nil {
		return err
	}
	if path := settings.GetString("db"); path != "" {
		id, err := recordSweep(ctx, path, cfg, results, comparisons, started)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Recorded sweep %s in %s\n", id, path)
	}
	if err := printPropagation(cmd, results); err != nil {
		return err
	}
	return printComparisons(cmd, comparisons)
}

func needsDetector(methods []pipeline.Method) bool {
	for _, m := range methods {
		if m.ROI {
			return true
		}
	}
	return false
}

// openSources opens the inputs named by the flags. The returned function
// closes the file-backed ones.
func openSources() ([]pipeline.Source, func(), error) {
	var sources []pipeline.Source
	var yuvs []*pipeline.YUVSource
	closeAll := func() {
		for _, y := range yuvs {
			y.Close()
		}
	}
	if paths := settings.GetStringSlice("yuv"); len(paths) > 0 {
		w, h, err := parseSize(settings.GetString("size"))
		if err != nil {
			return nil, nil, err
		}
		for _, p := range paths {
			y, err := pipeline.OpenYUV(p, w, h)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			yuvs = append(yuvs, y)
			sources = append(sources, y)
		}
	}
	for _, dir := range settings.GetStringSlice("images") {
		s, err := pipeline.OpenImageDir(dir)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sources = append(sources, s)
	}
	if n := settings.GetInt("synthetic"); n > 0 || len(sources) == 0 {
		if n <= 0 {
			n = 32
		}
		sources = append(sources, pipeline.DefaultSynthetic(n))
	}
	return sources, closeAll, nil
}

func parseSize(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, errors.WithHint(errors.Newf("invalid frame size %q", s), "raw inputs need --size WIDTHxHEIGHT")
	}
	return w, h, nil
}

// parseStructures applies each named mode to the tuning structure so the
// GOP size and QP offsets carry over.
func parseStructures(cfg *config.TuningConfig, list string) ([]gop.Structure, error) {
	base, err := gop.StructureFromTuning(cfg)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(list) == "" {
		return []gop.Structure{base}, nil
	}
	var out []gop.Structure
	for _, name := range strings.Split(list, ",") {
		mode, err := gop.ParseMode(name)
		if err != nil {
			return nil, err
		}
		s := base
		s.Mode = mode
		if err := s.Validate(); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func newEncoder(ctx context.Context, cfg *config.TuningConfig, name string) (encoder.Encoder, error) {
	switch name {
	case "model":
		return encoder.NewRateModel(), nil
	case "vvenc":
		v, err := encoder.NewVVenCFromTuning(cfg)
		if err != nil {
			return nil, err
		}
		ver, err := v.CheckVersion(ctx, cfg.GetEncoderVersion())
		if err != nil {
			return nil, err
		}
		pterm.Info.Printf("Using %s %s\n", v.Path, ver)
		if v.QPMapFlag == "" {
			pterm.Warning.Println("qp_map_flag is not set: QP maps are written but the encoder runs at uniform QP")
		}
		return v, nil
	default:
		return nil, errors.Newf("unknown encoder %q (want model or vvenc)", name)
	}
}

// overlayWriter saves a thumbnail of the importance overlay of every n-th
// frame of the ROI methods.
func overlayWriter(dir string, n int) func(pipeline.FrameView) {
	return func(v pipeline.FrameView) {
		if !v.Method.ROI || v.Info.Index%n != 0 {
			return
		}
		img, err := report.Overlay(v.Frame, v.Importance)
		if err != nil {
			monitoring.Logf("overlay %s frame %d: %v", v.Sequence, v.Info.Index, err)
			return
		}
		path, err := security.OutputPath(dir, ".png", v.Sequence, v.Method.Name, v.Structure.String(), fmt.Sprintf("%04d", v.Info.Index))
		if err == nil {
			err = report.SavePNG(path, report.Thumbnail(img, 640))
		}
		if err != nil {
			monitoring.Logf("overlay %s frame %d: %v", v.Sequence, v.Info.Index, err)
		}
	}
}

func writeReports(out string, results []*pipeline.SequenceResult, rows []pipeline.RDRow, comparisons []pipeline.Comparison, plots bool) error {
	write := func(name string, fn func(f *os.File) error) error {
		f, err := os.Create(filepath.Join(out, name))
		if err != nil {
			return errors.Wrapf(err, "create %s", name)
		}
		if err := fn(f); err != nil {
			f.Close()
			return errors.Wrapf(err, "write %s", name)
		}
		return f.Close()
	}
	if err := write("rd.csv", func(f *os.File) error { return report.WriteRowsCSV(f, rows) }); err != nil {
		return err
	}
	if err := write("bdrate.csv", func(f *os.File) error { return report.WriteComparisonsCSV(f, comparisons) }); err != nil {
		return err
	}
	if err := write("bdrate.md", func(f *os.File) error { return report.WriteComparisonsMarkdown(f, comparisons) }); err != nil {
		return err
	}
	if err := report.WriteJSON(filepath.Join(out, "results.json"), results); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := write("rd.html", func(f *os.File) error { return report.RenderRDPage(f, rows, pipeline.MetricPSNRY) }); err != nil {
		return err
	}
	if !plots {
		return nil
	}
	for key, group := range groupRows(rows) {
		for _, m := range []pipeline.Metric{pipeline.MetricPSNRY, pipeline.MetricROIPSNR} {
			path, err := security.OutputPath(out, ".png", "rd", key[0], key[1], string(m))
			if err != nil {
				return err
			}
			if err := report.SaveRDPlot(path, key[0]+" "+key[1], group, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func groupRows(rows []pipeline.RDRow) map[[2]string][]pipeline.RDRow {
	out := map[[2]string][]pipeline.RDRow{}
	for _, r := range rows {
		k := [2]string{r.Sequence, r.Structure}
		out[k] = append(out[k], r)
	}
	return out
}

func recordSweep(ctx context.Context, path string, cfg *config.TuningConfig, results []*pipeline.SequenceResult, comparisons []pipeline.Comparison, started time.Time) (string, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()
	tuning, err := json.Marshal(cfg)
	if err != nil {
		return "", errors.Wrap(err, "marshal tuning")
	}
	rec := sqlite.NewRecorder(db)
	rec.Host = hostinfo.Collect(ctx).JSON()
	rec.Tuning = tuning
	if err := rec.SaveSweep(results, comparisons, started); err != nil {
		return "", errors.Wrap(err, "record sweep")
	}
	return rec.SweepID, nil
}

// printPropagation lists how often the detector ran for each ROI job.
func printPropagation(cmd *cobra.Command, results []*pipeline.SequenceResult) error {
	data := pterm.TableData{{"Sequence", "Structure", "Method", "Detections", "Triggered", "Detection reduction", "Truth IoU"}}
	for _, r := range results {
		if r == nil || r.Failed() || !r.Method.ROI {
			continue
		}
		p := r.Propagation
		iou := "-"
		if r.TruthIoU > 0 {
			iou = fmt.Sprintf("%.3f", r.TruthIoU)
		}
		data = append(data, []string{
			r.Sequence, r.Structure, r.Method.Name,
			fmt.Sprintf("%d/%d", p.Detections, p.Frames), strconv.Itoa(p.Triggered()),
			fmt.Sprintf("%.1f%%", p.DetectionReduction()), iou,
		})
	}
	if len(data) == 1 {
		return nil
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
	return err
}

func printComparisons(cmd *cobra.Command, cs []pipeline.Comparison) error {
	if len(cs) == 0 {
		pterm.Warning.Println("No comparisons: the anchor method produced no rows")
		return nil
	}
	data := pterm.TableData{{"Sequence", "Structure", "Method", "BD-Rate", "BD-PSNR", "BD-Rate (ROI)", "Time saving"}}
	for _, c := range cs {
		data = append(data, []string{
			c.Sequence, c.Structure, c.Test + " vs " + c.Anchor,
			report.FormatResult(c.BDRate), report.FormatResult(c.BDPSNR), report.FormatResult(c.BDRateROI),
			fmt.Sprintf("%.1f%%", c.TimeSaving),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
	return err
}
