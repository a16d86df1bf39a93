package encoder

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/kballard/go-shellquote"

	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/gop"
	"github.com/banshee-data/roiqp/internal/monitoring"
)

// VVenC runs vvencapp. QP maps are written next to the bitstream; they are
// passed to the encoder only when QPMapFlag names the option the build
// accepts, since the stock command line has none.
type VVenC struct {
	Path      string
	Preset    string
	Threads   int
	QPMapFlag string
	// ExtraArgs are appended after the generated options.
	ExtraArgs []string
	Runner    CommandRunner
}

// NewVVenC returns an adapter for the binary at path using ExecRunner.
func NewVVenC(path string) *VVenC {
	if path == "" {
		path = "vvencapp"
	}
	return &VVenC{Path: path, Preset: "medium", Threads: 8, Runner: ExecRunner{}}
}

// NewVVenCFromTuning builds the adapter from the encoder section of cfg.
// encoder_args is split with shell quoting rules.
func NewVVenCFromTuning(cfg *config.TuningConfig) (*VVenC, error) {
	v := NewVVenC(cfg.GetEncoderPath())
	v.Preset = cfg.GetEncoderPreset()
	v.Threads = cfg.GetEncoderThreads()
	v.QPMapFlag = cfg.GetQPMapFlag()
	if extra := cfg.GetEncoderArgs(); extra != "" {
		args, err := shellquote.Split(extra)
		if err != nil {
			return nil, errors.Wrapf(err, "parse encoder_args %q", extra)
		}
		v.ExtraArgs = args
	}
	return v, nil
}

var versionPattern = regexp.MustCompile(`(?i)ver(?:sion)?\.?\s*v?(\d+\.\d+(?:\.\d+)?)`)

// Version runs the binary with --version and parses the reported release.
func (v *VVenC) Version(ctx context.Context) (*semver.Version, error) {
	out, err := v.Runner.Run(ctx, v.Path, "--version")
	if err != nil {
		return nil, errors.WithDetail(errors.Wrapf(err, "run %s --version", v.Path), tail(string(out), 5))
	}
	m := versionPattern.FindStringSubmatch(string(out))
	if m == nil {
		return nil, errors.WithDetail(errors.Newf("%s: version not found", v.Path), tail(string(out), 5))
	}
	ver, err := semver.NewVersion(m[1])
	if err != nil {
		return nil, errors.Wrapf(err, "parse encoder version %q", m[1])
	}
	return ver, nil
}

// CheckVersion fails when the installed encoder does not satisfy constraint.
// An empty constraint accepts any version.
func (v *VVenC) CheckVersion(ctx context.Context, constraint string) (*semver.Version, error) {
	ver, err := v.Version(ctx)
	if err != nil {
		return nil, err
	}
	if constraint == "" {
		return ver, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, errors.Wrapf(err, "encoder version constraint %q", constraint)
	}
	if ok, reasons := c.Validate(ver); !ok {
		msgs := make([]string, len(reasons))
		for i, r := range reasons {
			msgs[i] = r.Error()
		}
		return ver, errors.Newf("%s %s does not satisfy %q: %s", v.Path, ver, constraint, strings.Join(msgs, "; "))
	}
	return ver, nil
}

// Args returns the vvencapp command line for job, without the binary.
func (v *VVenC) Args(job Job, qpMapPath string) []string {
	args := []string{
		"-i", job.Input,
		"-o", job.Output,
		"-s", strconv.Itoa(job.Width) + "x" + strconv.Itoa(job.Height),
		"-q", strconv.Itoa(job.BaseQP),
		"-r", strconv.Itoa(max(job.FrameRate, 1)),
		"--preset", v.Preset,
	}
	if n := len(job.Frames); n > 0 {
		args = append(args, "-f", strconv.Itoa(n))
	}
	s := job.Structure
	switch s.Mode {
	case gop.AllIntra:
		args = append(args, "--IntraPeriod", "1")
	case gop.RandomAccess:
		args = append(args, "--IntraPeriod", strconv.Itoa(s.Period), "--GOPSize", strconv.Itoa(s.GOPSize))
	case gop.LowDelay:
		args = append(args, "--IntraPeriod", strconv.Itoa(s.Period), "--GOPSize", strconv.Itoa(s.GOPSize), "--LowDelay", "1")
	}
	args = append(args, "--threads", strconv.Itoa(v.Threads), "--verbosity", "4")
	if qpMapPath != "" && v.QPMapFlag != "" {
		args = append(args, v.QPMapFlag, qpMapPath)
	}
	return append(args, v.ExtraArgs...)
}

// Encode writes the QP maps, runs the encoder and parses its summary.
func (v *VVenC) Encode(ctx context.Context, job Job) (Result, error) {
	if job.Input == "" || job.Output == "" {
		return Result{}, errors.New("vvenc: input and output paths are required")
	}
	var qpMapPath string
	if len(job.Frames) > 0 && job.Frames[0].QP != nil {
		qpMapPath = strings.TrimSuffix(job.Output, filepath.Ext(job.Output)) + ".qpmap.txt"
		if err := WriteQPMaps(qpMapPath, job.Frames); err != nil {
			return Result{}, err
		}
		if v.QPMapFlag == "" {
			monitoring.Logf("vvenc: %s written but not applied, set a QP map flag to pass it", qpMapPath)
		}
	}

	args := v.Args(job, qpMapPath)
	monitoring.Debugf("vvenc: %s", shellquote.Join(append([]string{v.Path}, args...)...))
	start := time.Now()
	out, err := v.Runner.Run(ctx, v.Path, args...)
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, errors.WithDetail(errors.Wrapf(err, "vvenc %s qp %d", job.Sequence, job.BaseQP), tail(string(out), 20))
	}
	res, err := ParseOutput(string(out))
	if err != nil {
		return Result{}, errors.Wrapf(err, "vvenc %s qp %d", job.Sequence, job.BaseQP)
	}
	res.EncodingTime = elapsed
	return res, nil
}

var (
	bitratePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)avg_bitrate[=\s]+([\d.]+)\s+kbps`),
		regexp.MustCompile(`(?i)Total Bitrate:\s+([\d.]+)\s+kbps`),
		regexp.MustCompile(`(?i)avg bitrate\s+([\d.]+)\s+kbit/s`),
	}
	// Summary table: "  50    a   29914.8816   42.5487   50.7075   50.9686   43.9565"
	summaryPattern = regexp.MustCompile(`(?i)Y-PSNR\s+U-PSNR\s+V-PSNR[^\n]*\n[^\d\n]*(\d+)\s+[a-z]?\s+([\d.]+)\s+([\d.]+)\s+([\d.]+)\s+([\d.]+)`)
	psnrPattern    = regexp.MustCompile(`(?i)Y-PSNR[:\s]+([\d.]+)\s+U-PSNR[:\s]+([\d.]+)\s+V-PSNR[:\s]+([\d.]+)`)
	framesPattern  = regexp.MustCompile(`(?i)(\d+)\s+frames`)
)

// ParseOutput extracts bitrate, PSNR and frame count from vvencapp output.
// A summary without a bitrate or luma PSNR is an error.
func ParseOutput(text string) (Result, error) {
	var res Result
	if m := summaryPattern.FindStringSubmatch(text); m != nil {
		res.Frames, _ = strconv.Atoi(m[1])
		res.Bitrate = parseFloat(m[2])
		res.PSNRY = parseFloat(m[3])
		res.PSNRU = parseFloat(m[4])
		res.PSNRV = parseFloat(m[5])
	}
	for _, p := range bitratePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			res.Bitrate = parseFloat(m[1])
			break
		}
	}
	if res.PSNRY == 0 {
		if m := psnrPattern.FindStringSubmatch(text); m != nil {
			res.PSNRY = parseFloat(m[1])
			res.PSNRU = parseFloat(m[2])
			res.PSNRV = parseFloat(m[3])
		}
	}
	if res.Frames == 0 {
		if m := framesPattern.FindStringSubmatch(text); m != nil {
			res.Frames, _ = strconv.Atoi(m[1])
		}
	}
	if res.Bitrate <= 0 || res.PSNRY <= 0 {
		return res, errors.WithDetail(errors.New("encoder summary not found"), tail(text, 20))
	}
	return res, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// WriteQPMaps writes one block map per frame, separated by a comment line
// naming the frame and its block size.
func WriteQPMaps(path string, frames []FramePlan) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create qp map file")
	}
	defer f.Close()
	for _, fr := range frames {
		if fr.QP == nil {
			continue
		}
		header := "# frame " + strconv.Itoa(fr.Info.Index) + " block " + strconv.Itoa(fr.QP.BlockSize) +
			" grid " + strconv.Itoa(fr.QP.Cols) + "x" + strconv.Itoa(fr.QP.Rows) + "\n"
		if _, err := f.WriteString(header); err != nil {
			return errors.Wrap(err, "write qp map header")
		}
		if _, err := fr.QP.WriteTo(f); err != nil {
			return errors.Wrap(err, "write qp map")
		}
	}
	return f.Close()
}
